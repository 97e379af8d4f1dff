package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentPosting is immutable after create except for approval_status
// transitions. Only admin_approved postings count toward project spend.
type PaymentPosting struct {
	ID             int             `gorm:"primary_key" json:"id"`
	InvoiceNo      string          `gorm:"size:255;not null;index" json:"invoice_no" binding:"required"`
	ProjectId      int             `gorm:"index;not null" json:"project_id" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PayDate        time.Time       `gorm:"not null;index" json:"pay_date"`
	ApprovalStatus ApprovalStatus  `gorm:"type:enum('pending','admin_approved','rejected');default:pending;index" json:"approval_status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaymentPosting struct {
	InvoiceNo      string          `json:"invoice_no" binding:"required"`
	ProjectId      int             `json:"project_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	PayDate        time.Time       `json:"pay_date" binding:"required"`
	ApprovalStatus ApprovalStatus  `json:"approval_status"`
}

// approvedSpendForProject sums admin_approved postings. Callers that need the
// sum to stay stable for a check-then-insert must hold the project's budget
// row lock on the same tx.
func approvedSpendForProject(tx *gorm.DB, projectId int) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.Model(&PaymentPosting{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("project_id = ? AND approval_status = ?", projectId, ApprovalStatusAdminApproved).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// lockProjectBudget takes a FOR UPDATE lock on the project's budget row.
// Every approved-spend check-then-write goes through this lock, so two
// concurrent postings on the same project cannot both read the pre-insert sum.
func lockProjectBudget(tx *gorm.DB, projectId int) (*ProjectBudget, error) {
	var budget ProjectBudget
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ?", projectId).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorNoBudgetDefined
		}
		return nil, err
	}
	return &budget, nil
}

// CreatePaymentPosting records a payment against a project budget.
//
// For admin_approved postings the approved-sum check and the insert run as one
// atomic unit under the budget row lock: no interleaving of two concurrent
// calls on the same project can both pass the check and together exceed the
// allocation. Non-approved postings skip the sum check but still require the
// budget row to exist.
func CreatePaymentPosting(ctx context.Context, input *NewPaymentPosting) (*PaymentPosting, error) {
	if !input.Amount.IsPositive() {
		return nil, errors.New("amount must be greater than zero")
	}
	status := input.ApprovalStatus
	if status == "" {
		status = ApprovalStatusPending
	}
	if !status.Valid() {
		return nil, errors.New("invalid approval status")
	}
	if err := utils.ValidateResourceId[Project](ctx, input.ProjectId); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	posting := PaymentPosting{
		InvoiceNo:      input.InvoiceNo,
		ProjectId:      input.ProjectId,
		Amount:         input.Amount,
		PayDate:        input.PayDate,
		ApprovalStatus: status,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := lockProjectBudget(tx, input.ProjectId)
		if err != nil {
			return err
		}

		if status == ApprovalStatusAdminApproved {
			approved, err := approvedSpendForProject(tx, input.ProjectId)
			if err != nil {
				return err
			}
			if approved.Add(input.Amount).GreaterThan(budget.AllocatedAmount) {
				return utils.ErrorBudgetExceeded
			}
		}

		return tx.Create(&posting).Error
	})
	if err != nil {
		return nil, err
	}
	return &posting, nil
}

// UpdatePaymentPostingStatus transitions a pending posting. The transition to
// admin_approved re-runs the budget check under the same lock discipline as
// create; amount and project are never editable.
func UpdatePaymentPostingStatus(ctx context.Context, id int, status ApprovalStatus) (*PaymentPosting, error) {
	if status != ApprovalStatusAdminApproved && status != ApprovalStatusRejected {
		return nil, errors.New("status must be admin_approved or rejected")
	}

	db := config.GetDB()
	var posting PaymentPosting
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the posting row too, so two racing approvals of the same
		// posting serialize on the pending check.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&posting, id).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if posting.ApprovalStatus != ApprovalStatusPending {
			return errors.New("only pending postings can change status")
		}

		if status == ApprovalStatusAdminApproved {
			budget, err := lockProjectBudget(tx, posting.ProjectId)
			if err != nil {
				return err
			}
			// posting is still pending, so the sum does not include it
			approved, err := approvedSpendForProject(tx, posting.ProjectId)
			if err != nil {
				return err
			}
			if approved.Add(posting.Amount).GreaterThan(budget.AllocatedAmount) {
				return utils.ErrorBudgetExceeded
			}
		}

		posting.ApprovalStatus = status
		return tx.Model(&PaymentPosting{}).Where("id = ?", id).
			Update("approval_status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return &posting, nil
}

// GetRemainingBudget reports allocated minus approved spend from one committed
// snapshot. It takes no locks; concurrent posters may change the value right
// after, but it is never negative under the budget invariant.
func GetRemainingBudget(ctx context.Context, projectId int) (decimal.Decimal, error) {
	db := config.GetDB()
	var remaining decimal.Decimal
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var budget ProjectBudget
		if err := tx.Where("project_id = ?", projectId).First(&budget).Error; err != nil {
			return utils.ErrorNoBudgetDefined
		}
		approved, err := approvedSpendForProject(tx, projectId)
		if err != nil {
			return err
		}
		remaining = budget.AllocatedAmount.Sub(approved)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return remaining, nil
}

func GetPaymentPosting(ctx context.Context, id int) (*PaymentPosting, error) {
	return utils.FetchModel[PaymentPosting](ctx, id)
}

func GetPaymentPostings(ctx context.Context, projectId int, status *ApprovalStatus) ([]*PaymentPosting, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if projectId > 0 {
		dbCtx = dbCtx.Where("project_id = ?", projectId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("approval_status = ?", *status)
	}
	var postings []*PaymentPosting
	if err := dbCtx.Order("pay_date DESC, id DESC").Find(&postings).Error; err != nil {
		return nil, err
	}
	return postings, nil
}
