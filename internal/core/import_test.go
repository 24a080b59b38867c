package core

import (
	"context"
	"strings"
	"testing"

	"github.com/palletline/cyclecount/internal/schema"
	"github.com/palletline/cyclecount/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st := store.NewTestStore(t, Tables...)
	return NewService(st, NewAuditor(st))
}

func mustImport(t *testing.T, s *Service, rows []RawRow) *ImportResult {
	t.Helper()
	res, err := s.Import(context.Background(), rows, "op-1")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	return res
}

func TestImport_ValidRows(t *testing.T) {
	s := newTestService(t)

	res := mustImport(t, s, []RawRow{
		invRow("PAL-001", "A-1"),
		invRow("PAL-002", "A-1"),
	})

	if len(res.Imported) != 2 || len(res.Rejected) != 0 {
		t.Fatalf("imported %d / rejected %d, want 2 / 0", len(res.Imported), len(res.Rejected))
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
	if res.BatchID == "" {
		t.Error("BatchID is empty")
	}

	rec := res.Imported[0]
	if rec.ID == "" || rec.BatchID != res.BatchID || rec.ImportedAt.IsZero() {
		t.Errorf("record identity not filled: %+v", rec)
	}
	if rec.UOM != "Unit" {
		t.Errorf("UOM = %q, want default %q", rec.UOM, "Unit")
	}
	if rec.Status != StatusActive {
		t.Errorf("Status = %q, want default %q", rec.Status, StatusActive)
	}
}

func TestImport_InvalidRowsCollected(t *testing.T) {
	s := newTestService(t)

	bad := invRow("PAL-003", "A-1")
	bad[schema.ColSystemQuantity] = "many"
	missing := RawRow{schema.ColLocation: "DOCK-A"}

	res := mustImport(t, s, []RawRow{invRow("PAL-001", "A-1"), bad, missing})

	if len(res.Imported) != 1 {
		t.Fatalf("imported %d, want 1", len(res.Imported))
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("rejected %d, want 2", len(res.Rejected))
	}
	if want := "SystemQuantity must be a number, got: many"; res.Rejected[0].Reason != want {
		t.Errorf("reason = %q, want %q", res.Rejected[0].Reason, want)
	}
	if !strings.Contains(res.Rejected[1].Reason, "Missing required column: Bin") {
		t.Errorf("reason = %q, want missing-column errors", res.Rejected[1].Reason)
	}
}

func TestImport_DuplicateWithinBatch(t *testing.T) {
	s := newTestService(t)

	res := mustImport(t, s, []RawRow{
		invRow("PAL-001", "A-1"),
		invRow("PAL-001", "A-1"),
		invRow("PAL-001", "A-2"), // different bin, not a duplicate
	})

	if len(res.Imported) != 2 || len(res.Rejected) != 1 {
		t.Fatalf("imported %d / rejected %d, want 2 / 1", len(res.Imported), len(res.Rejected))
	}
	if res.Rejected[0].Reason != DuplicateReason {
		t.Errorf("reason = %q, want %q", res.Rejected[0].Reason, DuplicateReason)
	}
}

func TestImport_DuplicateAcrossBatches(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	mustImport(t, s, []RawRow{invRow("PAL-001", "A-1")})

	// Same identity in a later batch is rejected, never overwritten.
	changed := invRow("PAL-001", "A-1")
	changed[schema.ColSystemQuantity] = "999"
	res := mustImport(t, s, []RawRow{changed})

	if len(res.Imported) != 0 || len(res.Rejected) != 1 {
		t.Fatalf("imported %d / rejected %d, want 0 / 1", len(res.Imported), len(res.Rejected))
	}

	records, err := s.Inventory(ctx, "", "")
	if err != nil {
		t.Fatalf("Inventory() error = %v", err)
	}
	if len(records) != 1 || records[0].SystemQuantity != 10 {
		t.Errorf("stored record = %+v, want original quantity 10", records)
	}
}

func TestImport_SeparatorCharactersInIdentity(t *testing.T) {
	s := newTestService(t)

	// (PalletID, Bin) pairs that only differ in where the parts split are
	// distinct identities, even when the ids contain separator-looking text.
	res := mustImport(t, s, []RawRow{
		invRow("PAL|X", "B-1"),
		invRow("PAL", "X|B-1"),
	})

	if len(res.Imported) != 2 || len(res.Rejected) != 0 {
		t.Fatalf("imported %d / rejected %d, want 2 / 0: %+v", len(res.Imported), len(res.Rejected), res.Rejected)
	}

	// And the same pair twice is still one duplicate.
	res = mustImport(t, s, []RawRow{invRow("PAL|X", "B-1")})
	if len(res.Rejected) != 1 || res.Rejected[0].Reason != DuplicateReason {
		t.Errorf("rejected = %+v, want one duplicate", res.Rejected)
	}
}

func TestImport_EmitsSystemAuditEntry(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	mustImport(t, s, []RawRow{invRow("PAL-001", "A-1")})

	entries, err := s.Audit().All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Actor != ActorSystem || e.Action != "inventory_import" {
		t.Errorf("entry = %s/%s, want SYSTEM/inventory_import", e.Actor, e.Action)
	}
	if e.Details["imported"] != float64(1) { // JSON round-trip makes numbers float64
		t.Errorf("details.imported = %v, want 1", e.Details["imported"])
	}
}

func TestImport_StatusCoercion(t *testing.T) {
	s := newTestService(t)

	row := invRow("PAL-001", "A-1")
	row[schema.ColStatus] = "pending"

	res := mustImport(t, s, []RawRow{row})
	if res.Imported[0].Status != StatusPending {
		t.Errorf("Status = %q, want canonical %q", res.Imported[0].Status, StatusPending)
	}
}
