package store

import "testing"

// NewTestStore creates a fresh in-memory store with the given tables, closed
// automatically when the test finishes.
func NewTestStore(t *testing.T, tables ...string) *Store {
	t.Helper()

	s, err := Open(":memory:", tables...)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}
