package core

import (
	"context"
	"testing"

	"github.com/palletline/cyclecount/internal/schema"
)

// TestCycleCountPipeline walks one reconciliation cycle end to end:
// import, deduplication, session scoping, counting, aggregation, submit.
func TestCycleCountPipeline(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	row := func(palletID, bin, qty string) RawRow {
		r := invRow(palletID, bin)
		r[schema.ColSystemQuantity] = qty
		return r
	}

	res := mustImport(t, s, []RawRow{
		row("PAL-001", "A-1", "50"),
		row("PAL-002", "A-1", "75"),
		row("PAL-001", "A-2", "20"),
		row("PAL-001", "A-1", "50"), // duplicate identity
	})
	if len(res.Imported) != 3 {
		t.Fatalf("imported %d, want 3", len(res.Imported))
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Reason != DuplicateReason {
		t.Fatalf("rejected = %+v, want one duplicate", res.Rejected)
	}

	sess, err := s.OpenSession(ctx, "DOCK-A", []string{"A-1"}, "op-1")
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if sess.TotalPallets != 2 {
		t.Fatalf("TotalPallets = %d, want 2 (A-2 pallet is out of scope)", sess.TotalPallets)
	}

	if _, err := s.RecordCount(ctx, countReq(sess.SessionID, "PAL-001", "A-1", 50)); err != nil {
		t.Fatalf("RecordCount(PAL-001) error = %v", err)
	}
	if _, err := s.RecordCount(ctx, countReq(sess.SessionID, "PAL-002", "A-1", 40)); err != nil {
		t.Fatalf("RecordCount(PAL-002) error = %v", err)
	}

	actions, err := s.SessionActions(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("SessionActions() error = %v", err)
	}
	stats, err := VarianceStats(actions)
	if err != nil {
		t.Fatalf("VarianceStats() error = %v", err)
	}
	if stats.ZeroCount != 1 || stats.NegativeCount != 1 || stats.PositiveCount != 0 {
		t.Errorf("buckets = +%d/-%d/0:%d, want 0/1/1", stats.PositiveCount, stats.NegativeCount, stats.ZeroCount)
	}
	if stats.TotalVariance != -35 {
		t.Errorf("TotalVariance = %d, want -35", stats.TotalVariance)
	}
	if stats.AccuracyPercentage != "50.00" {
		t.Errorf("AccuracyPercentage = %q, want %q", stats.AccuracyPercentage, "50.00")
	}

	completed, err := s.CompleteSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("CompleteSession() error = %v", err)
	}
	metrics := SessionMetrics(completed, actions, s.now())
	if metrics.CompletionPercentage != "100.00" {
		t.Errorf("CompletionPercentage = %q, want %q", metrics.CompletionPercentage, "100.00")
	}

	submitted, err := s.SubmitSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("SubmitSession() error = %v", err)
	}
	if submitted.Status != SessionSubmitted {
		t.Fatalf("Status = %q, want %q", submitted.Status, SessionSubmitted)
	}

	// The whole cycle leaves a coherent audit trail in time order.
	entries, err := s.Audit().All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	want := []string{
		"inventory_import",
		"session_opened",
		"count_recorded",
		"count_recorded",
		"session_completed",
		"session_submitted",
	}
	if len(entries) != len(want) {
		t.Fatalf("audit entries = %d, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Action != want[i] {
			t.Errorf("entries[%d].Action = %q, want %q", i, e.Action, want[i])
		}
	}
}
