package core

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Service is the entry point for all state-changing pipeline operations.
// It owns no state of its own: everything lives in the store, and every
// transition is observed by the audit logger.
//
// A Service assumes a single logical thread of control per operator session;
// multi-user concurrent counting is out of scope.
type Service struct {
	store Store
	audit *Auditor
	now   func() time.Time
}

// NewService creates a pipeline service over the given store and auditor.
func NewService(st Store, audit *Auditor) *Service {
	return &Service{
		store: st,
		audit: audit,
		now:   time.Now,
	}
}

// Audit exposes the service's audit logger for host-level reads (recent
// window, compliance export).
func (s *Service) Audit() *Auditor { return s.audit }

// getRecord loads one import record by its (PalletID, Bin) identity.
func (s *Service) getRecord(ctx context.Context, palletID, bin string) (*InventoryImportRecord, error) {
	value, ok, err := s.store.Get(ctx, TableInventory, inventoryKey(palletID, bin))
	if err != nil {
		return nil, Wrap(KindStorageFailed, err, "reading import record %s/%s", palletID, bin)
	}
	if !ok {
		return nil, Errf(KindNotFound, "no import record for pallet %s in bin %s", palletID, bin)
	}
	var rec InventoryImportRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, Wrap(KindStorageFailed, err, "decoding import record %s/%s", palletID, bin)
	}
	return &rec, nil
}

// Inventory returns imported records, optionally filtered by location and
// bin. Records come back in (PalletID, Bin) key order.
func (s *Service) Inventory(ctx context.Context, location, bin string) ([]InventoryImportRecord, error) {
	var records []InventoryImportRecord
	err := s.store.Scan(ctx, TableInventory, func(key string, value []byte) error {
		var rec InventoryImportRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}
		if location != "" && !strings.EqualFold(rec.Location, location) {
			return nil
		}
		if bin != "" && rec.Bin != bin {
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, Wrap(KindStorageFailed, err, "scanning inventory")
	}
	return records, nil
}

// GetSession loads one counting session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*CountSession, error) {
	value, ok, err := s.store.Get(ctx, TableSessions, sessionID)
	if err != nil {
		return nil, Wrap(KindStorageFailed, err, "reading session %s", sessionID)
	}
	if !ok {
		return nil, Errf(KindNotFound, "session %s not found", sessionID)
	}
	var sess CountSession
	if err := json.Unmarshal(value, &sess); err != nil {
		return nil, Wrap(KindStorageFailed, err, "decoding session %s", sessionID)
	}
	return &sess, nil
}

// Sessions returns every session, most recently created first.
func (s *Service) Sessions(ctx context.Context) ([]CountSession, error) {
	var sessions []CountSession
	err := s.store.Scan(ctx, TableSessions, func(key string, value []byte) error {
		var sess CountSession
		if err := json.Unmarshal(value, &sess); err != nil {
			return err
		}
		sessions = append(sessions, sess)
		return nil
	})
	if err != nil {
		return nil, Wrap(KindStorageFailed, err, "scanning sessions")
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// SessionActions returns the effective count actions of a session in
// observation order (oldest first), for variance table rendering.
func (s *Service) SessionActions(ctx context.Context, sessionID string) ([]CountAction, error) {
	prefix := sessionID + keySep
	var actions []CountAction
	err := s.store.Scan(ctx, TableActions, func(key string, value []byte) error {
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		var act CountAction
		if err := json.Unmarshal(value, &act); err != nil {
			return err
		}
		actions = append(actions, act)
		return nil
	})
	if err != nil {
		return nil, Wrap(KindStorageFailed, err, "scanning actions for session %s", sessionID)
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Timestamp.Before(actions[j].Timestamp)
	})
	return actions, nil
}

func (s *Service) putJSON(ctx context.Context, table, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return Wrap(KindStorageFailed, err, "encoding %s/%s", table, key)
	}
	if err := s.store.Put(ctx, table, key, value); err != nil {
		return Wrap(KindStorageFailed, err, "writing %s/%s", table, key)
	}
	return nil
}
