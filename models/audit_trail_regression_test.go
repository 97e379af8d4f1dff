package models_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/aidledger_backend/models"
)

func auditEntriesFor(t *testing.T, ctx context.Context, table string, rowId int) []*models.AuditEntry {
	t.Helper()
	entries, err := models.GetAuditEntries(ctx, &table, &rowId, nil)
	if err != nil {
		t.Fatalf("GetAuditEntries: %v", err)
	}
	return entries
}

func TestBeneficiaryMutationsWriteAuditEntries(t *testing.T) {
	ctx := setupRegressionEnv(t)

	beneficiary, err := models.CreateBeneficiary(ctx, &models.NewBeneficiary{
		Name:    "Amina",
		Village: "Jableh",
	})
	if err != nil {
		t.Fatalf("CreateBeneficiary: %v", err)
	}

	entries := auditEntriesFor(t, ctx, "beneficiaries", beneficiary.ID)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one audit entry after create; got %d", len(entries))
	}
	created := entries[0]
	if created.Action != models.AuditActionCreate {
		t.Fatalf("expected CREATE action; got %s", created.Action)
	}
	// table_name is recorded on the entry itself, not only usable as a filter
	if created.TableName != "beneficiaries" || created.RowId != beneficiary.ID {
		t.Fatalf("entry target mismatch: table=%q row=%d", created.TableName, created.RowId)
	}
	if created.UserId == nil || *created.UserId != 1 {
		t.Fatalf("expected actor user_id=1; got %v", created.UserId)
	}
	if created.OldValues != "" {
		t.Fatalf("create entry must have empty old_values; got %q", created.OldValues)
	}
	var snapshot models.Beneficiary
	if err := json.Unmarshal([]byte(created.NewValues), &snapshot); err != nil {
		t.Fatalf("new_values is not valid json: %v", err)
	}
	if snapshot.Name != "Amina" {
		t.Fatalf("new_values snapshot mismatch: %+v", snapshot)
	}

	// Update appends a second entry carrying both snapshots.
	if _, err := models.UpdateBeneficiary(ctx, beneficiary.ID, &models.NewBeneficiary{
		Name:    "Amina Khalil",
		Village: "Jableh",
	}); err != nil {
		t.Fatalf("UpdateBeneficiary: %v", err)
	}
	entries = auditEntriesFor(t, ctx, "beneficiaries", beneficiary.ID)
	if len(entries) != 2 {
		t.Fatalf("expected two audit entries after update; got %d", len(entries))
	}
	var updated *models.AuditEntry
	for _, e := range entries {
		if e.Action == models.AuditActionUpdate {
			updated = e
		}
	}
	if updated == nil {
		t.Fatalf("no UPDATE entry found: %+v", entries)
	}
	if !strings.Contains(updated.OldValues, "Amina") || !strings.Contains(updated.NewValues, "Amina Khalil") {
		t.Fatalf("update entry snapshots mismatch: old=%q new=%q", updated.OldValues, updated.NewValues)
	}

	// Delete appends a third entry; prior entries are never touched.
	if _, err := models.DeleteBeneficiary(ctx, beneficiary.ID); err != nil {
		t.Fatalf("DeleteBeneficiary: %v", err)
	}
	entries = auditEntriesFor(t, ctx, "beneficiaries", beneficiary.ID)
	if len(entries) != 3 {
		t.Fatalf("expected three audit entries after delete; got %d", len(entries))
	}
	// Entries come back newest-first; the original create is still intact.
	if entries[0].Action != models.AuditActionDelete || entries[2].Action != models.AuditActionCreate {
		t.Fatalf("audit trail reordered or mutated: %+v", entries)
	}
}

func TestAuditEntryRecordsNullActorForUnauthenticatedContext(t *testing.T) {
	setupRegressionEnv(t)

	// Background context carries no user claims; the mutation still succeeds
	// and the entry records a NULL actor.
	bare := context.Background()
	beneficiary, err := models.CreateBeneficiary(bare, &models.NewBeneficiary{Name: "Anonymous Intake"})
	if err != nil {
		t.Fatalf("CreateBeneficiary without actor: %v", err)
	}

	entries := auditEntriesFor(t, bare, "beneficiaries", beneficiary.ID)
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry; got %d", len(entries))
	}
	if entries[0].UserId != nil {
		t.Fatalf("expected NULL user_id; got %v", *entries[0].UserId)
	}
}

func TestFailedMutationLeavesNoAuditEntry(t *testing.T) {
	ctx := setupRegressionEnv(t)

	// A mutation that never happens must leave no trace.
	if _, err := models.UpdateBeneficiary(ctx, 424242, &models.NewBeneficiary{Name: "Ghost"}); err == nil {
		t.Fatalf("expected update of missing beneficiary to fail")
	}
	entries := auditEntriesFor(t, ctx, "beneficiaries", 424242)
	if len(entries) != 0 {
		t.Fatalf("expected no audit entries for failed mutation; got %d", len(entries))
	}
}
