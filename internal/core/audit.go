package core

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Actor identifies who (or what) produced an audit entry.
type Actor string

const (
	ActorUser   Actor = "USER"
	ActorSystem Actor = "SYSTEM"
	ActorError  Actor = "ERROR"
)

// AuditLogEntry is one append-only record of a noteworthy event. Entries are
// never updated or deleted after creation; the log is a strictly
// time-ordered sequence.
type AuditLogEntry struct {
	LogID     string         `json:"logId"`
	SessionID string         `json:"sessionId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     Actor          `json:"actor"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}

// Auditor appends structured entries to the audit trail. It exposes no
// mutation of existing entries.
//
// Log never reports failure to its caller: audit logging must not block
// business operations. A persistence failure is recorded as an ERROR entry
// when possible and otherwise dropped with an operational log line.
type Auditor struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditor creates an audit logger writing to the AuditLog table.
func NewAuditor(st Store) *Auditor {
	return &Auditor{
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// auditKeyFormat keeps scan order equal to time order: a fixed-width UTC
// timestamp sorts lexicographically.
const auditKeyFormat = "2006-01-02T15:04:05.000000000"

// Log appends a new entry with a fresh id and the current timestamp.
// sessionID and details may be empty.
func (a *Auditor) Log(ctx context.Context, actor Actor, action, sessionID string, details map[string]any) {
	a.append(ctx, actor, action, sessionID, details, true)
}

// Error records a failed operation on behalf of another component, carrying
// the error message in details.error.
func (a *Auditor) Error(ctx context.Context, action, sessionID string, err error) {
	a.append(ctx, ActorError, action, sessionID, map[string]any{"error": err.Error()}, true)
}

func (a *Auditor) append(ctx context.Context, actor Actor, action, sessionID string, details map[string]any, retry bool) {
	entry := AuditLogEntry{
		LogID:     uuid.NewString(),
		SessionID: sessionID,
		Timestamp: a.now(),
		Actor:     actor,
		Action:    action,
		Details:   details,
	}

	value, err := json.Marshal(entry)
	if err != nil {
		a.logger.Warn("audit entry not serializable, dropping", "action", action, "error", err)
		return
	}

	key := entry.Timestamp.UTC().Format(auditKeyFormat) + "|" + entry.LogID
	if err := a.store.Put(ctx, TableAudit, key, value); err != nil {
		a.logger.Warn("audit entry not persisted", "action", action, "error", err)
		if retry {
			// Best effort: record the logging failure itself, once.
			a.append(ctx, ActorError, "audit_write_failed", sessionID, map[string]any{
				"error":  err.Error(),
				"action": action,
			}, false)
		}
	}
}

// All returns the full audit trail in time order.
func (a *Auditor) All(ctx context.Context) ([]AuditLogEntry, error) {
	var entries []AuditLogEntry
	err := a.store.Scan(ctx, TableAudit, func(key string, value []byte) error {
		var e AuditLogEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, Wrap(KindStorageFailed, err, "reading audit log")
	}
	return entries, nil
}

// Recent returns the n most recent entries, newest first. The host surfaces
// the last 30 for operational inspection.
func (a *Auditor) Recent(ctx context.Context, n int) ([]AuditLogEntry, error) {
	entries, err := a.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// ExportJSON writes the full audit trail as a UTF-8 JSON array with RFC 3339
// timestamps, for compliance export.
func (a *Auditor) ExportJSON(ctx context.Context, w io.Writer) error {
	entries, err := a.All(ctx)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []AuditLogEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// ExportCSV writes the full audit trail as CSV, one record per line.
// The details payload is serialized as a JSON cell since its shape varies
// by action.
func (a *Auditor) ExportCSV(ctx context.Context, w io.Writer) error {
	entries, err := a.All(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"logId", "sessionId", "timestamp", "actor", "action", "details"}); err != nil {
		return err
	}
	for _, e := range entries {
		var details string
		if e.Details != nil {
			b, err := json.Marshal(e.Details)
			if err == nil {
				details = string(b)
			}
		}
		record := []string{
			e.LogID,
			e.SessionID,
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Actor),
			e.Action,
			details,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
