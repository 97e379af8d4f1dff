package models_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/models"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"github.com/shopspring/decimal"
)

func createTestProjectWithBudget(t *testing.T, ctx context.Context, name string, allocated int64) *models.Project {
	t.Helper()
	project, err := models.CreateProject(ctx, &models.NewProject{
		Name:      name,
		Donor:     "Test Donor",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := models.CreateProjectBudget(ctx, &models.NewProjectBudget{
		ProjectId:       project.ID,
		AllocatedAmount: decimal.NewFromInt(allocated),
	}); err != nil {
		t.Fatalf("CreateProjectBudget: %v", err)
	}
	return project
}

func TestPaymentPostingNeverExceedsAllocation(t *testing.T) {
	ctx := setupRegressionEnv(t)

	project := createTestProjectWithBudget(t, ctx, "Winter Cash 2026", 50000)
	payDate := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Two approved postings within budget.
	for i, amount := range []int64{5000, 2500} {
		if _, err := models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
			InvoiceNo:      fmt.Sprintf("INV-%03d", i+1),
			ProjectId:      project.ID,
			Amount:         decimal.NewFromInt(amount),
			PayDate:        payDate,
			ApprovalStatus: models.ApprovalStatusAdminApproved,
		}); err != nil {
			t.Fatalf("CreatePaymentPosting(%d): %v", amount, err)
		}
	}

	remaining, err := models.GetRemainingBudget(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetRemainingBudget: %v", err)
	}
	if remaining.Cmp(decimal.NewFromInt(42500)) != 0 {
		t.Fatalf("expected remaining 42500; got %s", remaining)
	}

	// An approved posting that would overdraw must be rejected outright.
	_, err = models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
		InvoiceNo:      "INV-OVER",
		ProjectId:      project.ID,
		Amount:         decimal.NewFromInt(45000),
		PayDate:        payDate,
		ApprovalStatus: models.ApprovalStatusAdminApproved,
	})
	if !errors.Is(err, utils.ErrorBudgetExceeded) {
		t.Fatalf("expected ErrorBudgetExceeded; got %v", err)
	}

	// Remaining is unchanged after the rejected attempt.
	remaining, err = models.GetRemainingBudget(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetRemainingBudget: %v", err)
	}
	if remaining.Cmp(decimal.NewFromInt(42500)) != 0 {
		t.Fatalf("expected remaining 42500 after rejected posting; got %s", remaining)
	}

	// An exact-fit posting is allowed (spend == allocation is not an overdraw).
	if _, err := models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
		InvoiceNo:      "INV-FIT",
		ProjectId:      project.ID,
		Amount:         decimal.NewFromInt(42500),
		PayDate:        payDate,
		ApprovalStatus: models.ApprovalStatusAdminApproved,
	}); err != nil {
		t.Fatalf("exact-fit posting should succeed: %v", err)
	}
	remaining, err = models.GetRemainingBudget(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetRemainingBudget: %v", err)
	}
	if !remaining.IsZero() {
		t.Fatalf("expected remaining 0 after exact fit; got %s", remaining)
	}
}

func TestPendingPostingDoesNotConsumeBudgetUntilApproved(t *testing.T) {
	ctx := setupRegressionEnv(t)

	project := createTestProjectWithBudget(t, ctx, "Food Baskets Q1", 10000)
	payDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// A pending posting larger than the budget is accepted; it holds nothing.
	big, err := models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
		InvoiceNo: "INV-PEND-1",
		ProjectId: project.ID,
		Amount:    decimal.NewFromInt(45000),
		PayDate:   payDate,
	})
	if err != nil {
		t.Fatalf("pending posting should be accepted regardless of amount: %v", err)
	}
	if big.ApprovalStatus != models.ApprovalStatusPending {
		t.Fatalf("expected default status pending; got %s", big.ApprovalStatus)
	}

	remaining, err := models.GetRemainingBudget(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetRemainingBudget: %v", err)
	}
	if remaining.Cmp(decimal.NewFromInt(10000)) != 0 {
		t.Fatalf("pending posting must not consume budget; remaining=%s", remaining)
	}

	// Approving it re-runs the budget check and fails; the posting stays pending.
	_, err = models.UpdatePaymentPostingStatus(ctx, big.ID, models.ApprovalStatusAdminApproved)
	if !errors.Is(err, utils.ErrorBudgetExceeded) {
		t.Fatalf("expected ErrorBudgetExceeded on approve; got %v", err)
	}
	after, err := models.GetPaymentPosting(ctx, big.ID)
	if err != nil {
		t.Fatalf("GetPaymentPosting: %v", err)
	}
	if after.ApprovalStatus != models.ApprovalStatusPending {
		t.Fatalf("failed approval must leave posting pending; got %s", after.ApprovalStatus)
	}

	// Rejecting it is always allowed, and a rejected posting is terminal.
	if _, err := models.UpdatePaymentPostingStatus(ctx, big.ID, models.ApprovalStatusRejected); err != nil {
		t.Fatalf("reject should succeed: %v", err)
	}
	if _, err := models.UpdatePaymentPostingStatus(ctx, big.ID, models.ApprovalStatusAdminApproved); err == nil {
		t.Fatalf("rejected posting must not transition again")
	}
}

func TestConcurrentPostingsCannotOverdrawBudget(t *testing.T) {
	ctx := setupRegressionEnv(t)

	project := createTestProjectWithBudget(t, ctx, "Shelter Kits", 10000)
	payDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// 20 workers race to post 1000 each against a 10000 budget. The budget row
	// lock serializes the check-then-insert, so exactly 10 must win.
	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
				InvoiceNo:      fmt.Sprintf("INV-RACE-%02d", n),
				ProjectId:      project.ID,
				Amount:         decimal.NewFromInt(1000),
				PayDate:        payDate,
				ApprovalStatus: models.ApprovalStatusAdminApproved,
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded, overdrawn := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, utils.ErrorBudgetExceeded):
			overdrawn++
		default:
			t.Fatalf("unexpected posting error: %v", err)
		}
	}
	if succeeded != 10 || overdrawn != 10 {
		t.Fatalf("expected exactly 10 winners and 10 rejections; got %d/%d", succeeded, overdrawn)
	}

	remaining, err := models.GetRemainingBudget(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetRemainingBudget: %v", err)
	}
	if !remaining.IsZero() {
		t.Fatalf("expected remaining 0 after race; got %s", remaining)
	}

	status := models.ApprovalStatusAdminApproved
	postings, err := models.GetPaymentPostings(ctx, project.ID, &status)
	if err != nil {
		t.Fatalf("GetPaymentPostings: %v", err)
	}
	if len(postings) != 10 {
		t.Fatalf("expected 10 approved postings; got %d", len(postings))
	}
}

func TestBudgetAllocationCannotDropBelowApprovedSpend(t *testing.T) {
	ctx := setupRegressionEnv(t)

	project := createTestProjectWithBudget(t, ctx, "Hygiene Kits", 20000)
	if _, err := models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
		InvoiceNo:      "INV-H-1",
		ProjectId:      project.ID,
		Amount:         decimal.NewFromInt(8000),
		PayDate:        time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		ApprovalStatus: models.ApprovalStatusAdminApproved,
	}); err != nil {
		t.Fatalf("CreatePaymentPosting: %v", err)
	}

	// Lowering below approved spend would silently break the invariant.
	_, err := models.UpdateProjectBudgetAllocation(ctx, project.ID, decimal.NewFromInt(5000))
	if !errors.Is(err, utils.ErrorBudgetExceeded) {
		t.Fatalf("expected ErrorBudgetExceeded; got %v", err)
	}

	// Lowering to exactly the approved spend is fine.
	budget, err := models.UpdateProjectBudgetAllocation(ctx, project.ID, decimal.NewFromInt(8000))
	if err != nil {
		t.Fatalf("UpdateProjectBudgetAllocation: %v", err)
	}
	if budget.AllocatedAmount.Cmp(decimal.NewFromInt(8000)) != 0 {
		t.Fatalf("expected allocation 8000; got %s", budget.AllocatedAmount)
	}
}

func TestPostingWithoutBudgetIsRejected(t *testing.T) {
	ctx := setupRegressionEnv(t)

	project, err := models.CreateProject(ctx, &models.NewProject{
		Name:      "No Budget Yet",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	_, err = models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
		InvoiceNo: "INV-NB-1",
		ProjectId: project.ID,
		Amount:    decimal.NewFromInt(100),
		PayDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, utils.ErrorNoBudgetDefined) {
		t.Fatalf("expected ErrorNoBudgetDefined; got %v", err)
	}

	_, err = models.GetRemainingBudget(ctx, project.ID)
	if !errors.Is(err, utils.ErrorNoBudgetDefined) {
		t.Fatalf("expected ErrorNoBudgetDefined from GetRemainingBudget; got %v", err)
	}
}

func TestPostingAgainstMissingProjectIsNotFound(t *testing.T) {
	ctx := setupRegressionEnv(t)

	// Referencing a project that does not exist is a not-found condition, not
	// a generic validation failure.
	_, err := models.CreatePaymentPosting(ctx, &models.NewPaymentPosting{
		InvoiceNo: "INV-MISSING-1",
		ProjectId: 424242,
		Amount:    decimal.NewFromInt(100),
		PayDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound; got %v", err)
	}

	_, err = models.CreateProjectBudget(ctx, &models.NewProjectBudget{
		ProjectId:       424242,
		AllocatedAmount: decimal.NewFromInt(100),
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound from CreateProjectBudget; got %v", err)
	}
}
