package core

import (
	"context"
	"time"

	"github.com/palletline/cyclecount/internal/schema"
)

// Store is the local key-sorted table store supplied by the host
// environment. Implementations must return rows from Scan in ascending key
// order. Satisfied by *store.Store and by test doubles.
type Store interface {
	// Get returns the value stored under key, or ok=false if absent.
	Get(ctx context.Context, table, key string) (value []byte, ok bool, err error)
	// Put inserts or replaces the value stored under key.
	Put(ctx context.Context, table, key string, value []byte) error
	// Scan visits every row of table in ascending key order. Returning an
	// error from fn stops the scan and propagates the error.
	Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error
}

// Logical table names used by the pipeline.
const (
	TableInventory = "InventoryImport"
	TableSessions  = "CountSessions"
	TableActions   = "CountActions"
	TableAudit     = "AuditLog"
)

// Tables lists every table the pipeline stores data in.
var Tables = []string{TableInventory, TableSessions, TableActions, TableAudit}

// RawRow is one spreadsheet row as delivered by an ingest reader.
// It aliases [schema.Row] so pipeline callers don't need to import the
// schema package just to hand rows through.
type RawRow = schema.Row

// RecordStatus enumerates the lifecycle status of an imported pallet record.
type RecordStatus string

const (
	StatusActive   RecordStatus = "Active"
	StatusInactive RecordStatus = "Inactive"
	StatusPending  RecordStatus = "Pending"
)

// InventoryImportRecord is one expected pallet at import time. Records are
// immutable after creation: superseding data requires a new import batch.
// The pair (PalletID, Bin) is unique across all imported records.
type InventoryImportRecord struct {
	ID             string       `json:"id"`
	Location       string       `json:"location"`
	Bin            string       `json:"bin"`
	PalletID       string       `json:"palletId"`
	ItemNumber     string       `json:"itemNumber"`
	SystemQuantity int          `json:"systemQuantity"`
	Description    string       `json:"description,omitempty"`
	UOM            string       `json:"uom"`
	ExpiryDate     string       `json:"expiryDate,omitempty"` // YYYY-MM-DD
	Status         RecordStatus `json:"status"`
	ImportedAt     time.Time    `json:"importedAt"`
	BatchID        string       `json:"batchId"`
}

// storeKey returns the key an import record is stored under. Keying by
// (PalletID, Bin) makes the uniqueness invariant a plain existence check.
func (r InventoryImportRecord) storeKey() string {
	return inventoryKey(r.PalletID, r.Bin)
}

// keySep joins composite key parts. Pallet ids and bins are free text, so
// the separator must be a byte that cannot appear in either.
const keySep = "\x00"

func inventoryKey(palletID, bin string) string {
	return palletID + keySep + bin
}

// SessionStatus enumerates the lifecycle of a counting session.
// Transitions only move forward: in-progress -> completed -> submitted.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
	SessionSubmitted  SessionStatus = "submitted"
)

// CountSession is the scope and lifecycle of one counting pass.
// TotalPallets is fixed when the session is opened and never recomputed,
// even if inventory changes later.
type CountSession struct {
	SessionID      string        `json:"sessionId"`
	CreatedAt      time.Time     `json:"createdAt"`
	Location       string        `json:"location"`
	Bins           []string      `json:"bins"`
	OperatorID     string        `json:"operatorId"`
	StartTime      time.Time     `json:"startTime"`
	EndTime        *time.Time    `json:"endTime,omitempty"` // nil while in progress
	Status         SessionStatus `json:"status"`
	TotalPallets   int           `json:"totalPallets"`
	CompletedCount int           `json:"completedCount"`
	VarianceCount  int           `json:"varianceCount"`
}

// InScope reports whether bin belongs to the session's bin set.
func (s *CountSession) InScope(bin string) bool {
	for _, b := range s.Bins {
		if b == bin {
			return true
		}
	}
	return false
}

// ActionStatus enumerates the review state of a count action.
type ActionStatus string

const (
	ActionConfirmed     ActionStatus = "confirmed"
	ActionFlagged       ActionStatus = "flagged"
	ActionPendingReview ActionStatus = "pending_review"
)

// CountAction is one immutable observation against one pallet within a
// session. Core count fields are never modified after creation; re-counting
// supersedes the action with a fresh record under a new id.
type CountAction struct {
	ActionID       string       `json:"actionId"`
	SessionID      string       `json:"sessionId"`
	PalletID       string       `json:"palletId"`
	Bin            string       `json:"bin"`
	ItemNumber     string       `json:"itemNumber"`
	SystemQuantity int          `json:"systemQuantity"`
	CountedQty     int          `json:"countedQuantity"`
	Variance       int          `json:"variance"` // CountedQty - SystemQuantity
	Timestamp      time.Time    `json:"timestamp"`
	OperatorID     string       `json:"operatorId"`
	Flagged        bool         `json:"flagged"`
	Notes          string       `json:"notes,omitempty"`
	Status         ActionStatus `json:"status"`
}

func actionKey(sessionID, palletID string) string {
	return sessionID + keySep + palletID
}

// RejectedRow is an input row that was refused during import, annotated
// with the reason. Rejections are results, not errors: the import continues
// for the remaining rows.
type RejectedRow struct {
	Row    RawRow `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult is the outcome of one import batch.
type ImportResult struct {
	BatchID  string                  `json:"batchId"`
	Imported []InventoryImportRecord `json:"imported"`
	Rejected []RejectedRow           `json:"rejected"`
	Total    int                     `json:"total"`
}
