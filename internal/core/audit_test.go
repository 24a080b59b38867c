package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/palletline/cyclecount/internal/store"
)

func newTestAuditor(t *testing.T) *Auditor {
	t.Helper()
	return NewAuditor(store.NewTestStore(t, Tables...))
}

func TestAuditor_TimeOrder(t *testing.T) {
	a := newTestAuditor(t)
	ctx := context.Background()

	// Feed timestamps out of order; scan order must still be time order.
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stamps := []time.Time{base.Add(2 * time.Hour), base, base.Add(time.Hour)}
	i := 0
	a.now = func() time.Time { ts := stamps[i]; i++; return ts }

	a.Log(ctx, ActorSystem, "third", "", nil)
	a.Log(ctx, ActorUser, "first", "", nil)
	a.Log(ctx, ActorUser, "second", "", nil)

	entries, err := a.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Action
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestAuditor_Recent(t *testing.T) {
	a := newTestAuditor(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	a.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Second) }

	for _, action := range []string{"a", "b", "c", "d"} {
		a.Log(ctx, ActorSystem, action, "", nil)
	}

	recent, err := a.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(recent))
	}
	if recent[0].Action != "d" || recent[1].Action != "c" {
		t.Errorf("Recent(2) = [%s %s], want newest first [d c]", recent[0].Action, recent[1].Action)
	}
}

// brokenStore fails every write, for exercising the auditor's no-fail
// contract.
type brokenStore struct {
	puts int
}

func (b *brokenStore) Get(ctx context.Context, table, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (b *brokenStore) Put(ctx context.Context, table, key string, value []byte) error {
	b.puts++
	return errors.New("disk full")
}

func (b *brokenStore) Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error {
	return nil
}

func TestAuditor_LogNeverFails(t *testing.T) {
	bs := &brokenStore{}
	a := NewAuditor(bs)

	// Must not panic or surface the error; one retry as an ERROR entry,
	// no retry loop.
	a.Log(context.Background(), ActorUser, "count_recorded", "CS-1", map[string]any{"x": 1})

	if bs.puts != 2 {
		t.Errorf("Put attempts = %d, want 2 (entry plus one failure record)", bs.puts)
	}
}

func TestAuditor_ExportJSON(t *testing.T) {
	a := newTestAuditor(t)
	ctx := context.Background()

	a.Log(ctx, ActorSystem, "session_opened", "CS-1", map[string]any{"totalPallets": 2})
	a.Log(ctx, ActorUser, "count_recorded", "CS-1", map[string]any{"variance": -3})

	var buf bytes.Buffer
	if err := a.ExportJSON(ctx, &buf); err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	var entries []AuditLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("exported %d entries, want 2", len(entries))
	}
	if entries[0].Action != "session_opened" || entries[1].Action != "count_recorded" {
		t.Errorf("order = [%s %s], want time order", entries[0].Action, entries[1].Action)
	}
}

func TestAuditor_ExportJSON_Empty(t *testing.T) {
	a := newTestAuditor(t)

	var buf bytes.Buffer
	if err := a.ExportJSON(context.Background(), &buf); err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}
	var entries []AuditLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil || entries == nil {
		t.Errorf("empty export = %q, want a JSON array", buf.String())
	}
}

func TestAuditor_ExportCSV(t *testing.T) {
	a := newTestAuditor(t)
	ctx := context.Background()

	a.Log(ctx, ActorUser, "count_recorded", "CS-1", map[string]any{"variance": -3})

	var buf bytes.Buffer
	if err := a.ExportCSV(ctx, &buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("CSV has %d records, want header plus 1", len(records))
	}

	header := []string{"logId", "sessionId", "timestamp", "actor", "action", "details"}
	for i, col := range header {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	row := records[1]
	if row[1] != "CS-1" || row[3] != "USER" || row[4] != "count_recorded" {
		t.Errorf("row = %v", row)
	}
	if _, err := time.Parse(time.RFC3339, row[2]); err != nil {
		t.Errorf("timestamp %q is not RFC 3339: %v", row[2], err)
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(row[5]), &details); err != nil {
		t.Errorf("details cell %q is not JSON: %v", row[5], err)
	} else if details["variance"] != float64(-3) {
		t.Errorf("details = %v", details)
	}
}
