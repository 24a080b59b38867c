package core

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// CountRequest carries one count observation into RecordCount.
type CountRequest struct {
	SessionID  string `json:"sessionId"`
	PalletID   string `json:"palletId"`
	Bin        string `json:"bin"`
	CountedQty int    `json:"countedQuantity"`
	OperatorID string `json:"operatorId"`
	Flagged    bool   `json:"flagged"`
	Notes      string `json:"notes,omitempty"`
}

// RecordCount converts one observation into an immutable CountAction,
// computing variance (counted - system, signed) and flag status. Flagging is
// an explicit operator action; a nonzero variance alone still confirms.
//
// Re-counting a pallet supersedes: the fresh action (new id) replaces the
// prior one as the effective record for that pallet, while the prior action
// survives in the audit trail. On a first count the session's completedCount
// grows by one and varianceCount grows when variance is nonzero; on a
// re-count completedCount is unchanged and varianceCount tracks the
// effective action.
//
// On success a USER audit entry records pallet, bin, quantities and
// variance. On failure the operation has no side effect.
func (s *Service) RecordCount(ctx context.Context, req CountRequest) (*CountAction, error) {
	if req.CountedQty < 0 {
		return nil, Errf(KindInvalidQuantity, "counted quantity must be a non-negative integer, got %d", req.CountedQty)
	}

	sess, err := s.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	rec, err := s.getRecord(ctx, req.PalletID, req.Bin)
	if err != nil {
		return nil, err
	}

	// Locations compare case-insensitively, matching the scope computation
	// at session open. Bins compare exactly.
	if !sess.InScope(rec.Bin) || !strings.EqualFold(rec.Location, sess.Location) {
		return nil, Errf(KindOutOfScope, "pallet %s in %s/%s is outside session scope", rec.PalletID, rec.Location, rec.Bin)
	}

	if sess.Status != SessionInProgress {
		return nil, Errf(KindSessionClosed, "session %s is %s", sess.SessionID, sess.Status)
	}

	prior, err := s.effectiveAction(ctx, sess.SessionID, req.PalletID)
	if err != nil {
		return nil, err
	}

	action := &CountAction{
		ActionID:       uuid.NewString(),
		SessionID:      sess.SessionID,
		PalletID:       rec.PalletID,
		Bin:            rec.Bin,
		ItemNumber:     rec.ItemNumber,
		SystemQuantity: rec.SystemQuantity,
		CountedQty:     req.CountedQty,
		Variance:       req.CountedQty - rec.SystemQuantity,
		Timestamp:      s.now(),
		OperatorID:     req.OperatorID,
		Flagged:        req.Flagged,
		Notes:          req.Notes,
		Status:         ActionConfirmed,
	}
	if req.Flagged {
		action.Status = ActionFlagged
	}

	// The effective record lives under (sessionId, palletId); a re-count
	// overwrites it, which is the supersede. Prior observations remain in
	// the audit trail.
	if err := s.putJSON(ctx, TableActions, actionKey(sess.SessionID, rec.PalletID), action); err != nil {
		s.audit.Error(ctx, "count_recorded", sess.SessionID, err)
		return nil, err
	}

	if prior == nil {
		sess.CompletedCount++
		if action.Variance != 0 {
			sess.VarianceCount++
		}
	} else {
		// Keep varianceCount aligned with the effective actions.
		switch {
		case prior.Variance == 0 && action.Variance != 0:
			sess.VarianceCount++
		case prior.Variance != 0 && action.Variance == 0:
			sess.VarianceCount--
		}
	}

	if err := s.putJSON(ctx, TableSessions, sess.SessionID, sess); err != nil {
		s.audit.Error(ctx, "count_recorded", sess.SessionID, err)
		return nil, err
	}

	details := map[string]any{
		"actionId":   action.ActionID,
		"palletId":   action.PalletID,
		"bin":        action.Bin,
		"systemQty":  action.SystemQuantity,
		"countedQty": action.CountedQty,
		"variance":   action.Variance,
		"flagged":    action.Flagged,
	}
	if prior != nil {
		details["supersedes"] = prior.ActionID
		details["supersededCountedQty"] = prior.CountedQty
	}
	s.audit.Log(ctx, ActorUser, "count_recorded", sess.SessionID, details)

	return action, nil
}

// effectiveAction returns the current effective action for a pallet within a
// session, or nil when the pallet has not been counted yet.
func (s *Service) effectiveAction(ctx context.Context, sessionID, palletID string) (*CountAction, error) {
	value, ok, err := s.store.Get(ctx, TableActions, actionKey(sessionID, palletID))
	if err != nil {
		return nil, Wrap(KindStorageFailed, err, "reading action %s/%s", sessionID, palletID)
	}
	if !ok {
		return nil, nil
	}
	var act CountAction
	if err := json.Unmarshal(value, &act); err != nil {
		return nil, Wrap(KindStorageFailed, err, "decoding action %s/%s", sessionID, palletID)
	}
	return &act, nil
}
