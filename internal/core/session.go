package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OpenSession starts a counting pass over a location and a non-empty set of
// bins. TotalPallets is the count of import records matching the location
// and any bin in the set, fixed here and never recomputed. A SYSTEM audit
// entry records the scope.
func (s *Service) OpenSession(ctx context.Context, location string, bins []string, operatorID string) (*CountSession, error) {
	location = strings.TrimSpace(location)

	scope := make([]string, 0, len(bins))
	for _, b := range bins {
		if b = strings.TrimSpace(b); b != "" {
			scope = append(scope, b)
		}
	}
	if len(scope) == 0 {
		return nil, Errf(KindInvalidScope, "bins must be a non-empty set")
	}

	records, err := s.Inventory(ctx, location, "")
	if err != nil {
		s.audit.Error(ctx, "session_open", "", err)
		return nil, err
	}

	sess := &CountSession{
		Location:   location,
		Bins:       scope,
		OperatorID: operatorID,
		Status:     SessionInProgress,
	}
	total := 0
	for _, rec := range records {
		if sess.InScope(rec.Bin) {
			total++
		}
	}
	if total == 0 {
		return nil, Errf(KindInvalidScope, "no inventory matches location %q and bins %v", location, scope)
	}

	now := s.now()
	sess.SessionID = fmt.Sprintf("CS-%s-%s", now.Format("20060102-150405"), uuid.NewString()[:8])
	sess.CreatedAt = now
	sess.StartTime = now
	sess.TotalPallets = total

	if err := s.putJSON(ctx, TableSessions, sess.SessionID, sess); err != nil {
		s.audit.Error(ctx, "session_open", sess.SessionID, err)
		return nil, err
	}

	s.audit.Log(ctx, ActorSystem, "session_opened", sess.SessionID, map[string]any{
		"location":     location,
		"bins":         scope,
		"operator":     operatorID,
		"totalPallets": total,
	})

	return sess, nil
}

// CompleteSession closes the counting phase of an in-progress session,
// stamping its end time. Completed and submitted sessions cannot complete
// again: transitions only move forward, and nothing is ever rolled back.
// A misconfigured session is abandoned in place, never deleted.
func (s *Service) CompleteSession(ctx context.Context, sessionID string) (*CountSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != SessionInProgress {
		return nil, Errf(KindInvalidTransition, "cannot complete session in status %q", sess.Status)
	}

	end := s.now()
	sess.EndTime = &end
	sess.Status = SessionCompleted

	if err := s.putJSON(ctx, TableSessions, sess.SessionID, sess); err != nil {
		s.audit.Error(ctx, "session_complete", sessionID, err)
		return nil, err
	}

	s.audit.Log(ctx, ActorSystem, "session_completed", sessionID, map[string]any{
		"completedCount": sess.CompletedCount,
		"varianceCount":  sess.VarianceCount,
		"totalPallets":   sess.TotalPallets,
	})

	return sess, nil
}

// SubmitSession moves a completed session to its terminal submitted state
// and emits a SYSTEM audit entry with a final metrics snapshot.
func (s *Service) SubmitSession(ctx context.Context, sessionID string) (*CountSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != SessionCompleted {
		return nil, Errf(KindInvalidTransition, "cannot submit session in status %q", sess.Status)
	}

	sess.Status = SessionSubmitted

	if err := s.putJSON(ctx, TableSessions, sess.SessionID, sess); err != nil {
		s.audit.Error(ctx, "session_submit", sessionID, err)
		return nil, err
	}

	details := map[string]any{
		"completedCount": sess.CompletedCount,
		"varianceCount":  sess.VarianceCount,
		"totalPallets":   sess.TotalPallets,
	}
	if actions, err := s.SessionActions(ctx, sessionID); err == nil {
		metrics := SessionMetrics(sess, actions, s.now())
		details["completionPercentage"] = metrics.CompletionPercentage
		details["duration"] = metrics.DurationFormatted
		details["flaggedCount"] = metrics.FlaggedCount
		if stats, err := VarianceStats(actions); err == nil {
			details["totalVariance"] = stats.TotalVariance
			details["accuracyPercentage"] = stats.AccuracyPercentage
		}
	}

	s.audit.Log(ctx, ActorSystem, "session_submitted", sessionID, details)

	return sess, nil
}
