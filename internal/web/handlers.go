package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/palletline/cyclecount/internal/core"
	"github.com/palletline/cyclecount/internal/ingest"
	"github.com/palletline/cyclecount/internal/logging"
)

// operator returns the acting operator id for a request. Role gating is a UI
// affordance only; the header is informational, not authentication.
func operator(r *http.Request) string {
	if op := r.Header.Get("X-Operator-ID"); op != "" {
		return op
	}
	return "unknown"
}

// handleImport accepts a multipart spreadsheet upload (.csv or .xlsx) and
// runs it through the import pipeline.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		s.respondError(w, r, core.Wrap(core.KindImportFailed, err, "parsing upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.Wrap(core.KindImportFailed, err, "no file provided"))
		return
	}
	defer file.Close()

	var rows []core.RawRow
	switch ext := strings.ToLower(filepath.Ext(header.Filename)); ext {
	case ".csv":
		rows, err = ingest.ReadCSV(file)
	case ".xlsx":
		rows, err = ingest.ReadXLSX(file)
	default:
		err = core.Errf(core.KindImportFailed, "unsupported file type %q (use .csv or .xlsx)", ext)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(rows) > s.cfg.Import.MaxRows {
		s.respondError(w, r, core.Errf(core.KindImportFailed,
			"upload has %d rows, the limit is %d", len(rows), s.cfg.Import.MaxRows))
		return
	}

	result, err := s.service.Import(r.Context(), rows, operator(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import processed",
		"file", header.Filename,
		"batch", result.BatchID,
		"imported", len(result.Imported),
		"rejected", len(result.Rejected),
	)

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.Inventory(r.Context(), r.URL.Query().Get("location"), r.URL.Query().Get("bin"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.InventoryImportRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

type openSessionRequest struct {
	Location string   `json:"location"`
	Bins     []string `json:"bins"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, core.Wrap(core.KindInvalidScope, err, "decoding session request"))
		return
	}

	sess, err := s.service.OpenSession(r.Context(), req.Location, req.Bins, operator(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.Sessions(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []core.CountSession{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.CompleteSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.SubmitSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type recordCountRequest struct {
	PalletID   string `json:"palletId"`
	Bin        string `json:"bin"`
	CountedQty *int   `json:"countedQuantity"`
	Flagged    bool   `json:"flagged"`
	Notes      string `json:"notes"`
}

func (s *Server) handleRecordCount(w http.ResponseWriter, r *http.Request) {
	var req recordCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, core.Wrap(core.KindInvalidQuantity, err, "decoding count request"))
		return
	}
	if req.CountedQty == nil {
		s.respondError(w, r, core.Errf(core.KindInvalidQuantity, "countedQuantity is required"))
		return
	}

	action, err := s.service.RecordCount(r.Context(), core.CountRequest{
		SessionID:  chi.URLParam(r, "sessionID"),
		PalletID:   req.PalletID,
		Bin:        req.Bin,
		CountedQty: *req.CountedQty,
		OperatorID: operator(r),
		Flagged:    req.Flagged,
		Notes:      req.Notes,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, action)
}

func (s *Server) handleListCounts(w http.ResponseWriter, r *http.Request) {
	actions, err := s.service.SessionActions(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if actions == nil {
		actions = []core.CountAction{}
	}
	respondJSON(w, http.StatusOK, actions)
}

// sessionMetricsResponse bundles progress and variance figures for the
// summary screen.
type sessionMetricsResponse struct {
	Session  *core.CountSession        `json:"session"`
	Metrics  core.SessionMetricsResult `json:"metrics"`
	Variance *core.VarianceStatsResult `json:"variance,omitempty"`
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	actions, err := s.service.SessionActions(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := sessionMetricsResponse{
		Session: sess,
		Metrics: core.SessionMetrics(sess, actions, time.Now()),
	}
	// No counts yet is a valid state for the summary screen, not an error.
	if stats, err := core.VarianceStats(actions); err == nil {
		resp.Variance = &stats
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Audit().Recent(r.Context(), s.cfg.Audit.RecentLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.AuditLogEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	stamp := time.Now().Format("20060102-150405")

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=audit-%s.csv", stamp))
		if err := s.service.Audit().ExportCSV(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("audit csv export failed", "error", err)
		}
	case "json", "":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=audit-%s.json", stamp))
		if err := s.service.Audit().ExportJSON(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("audit json export failed", "error", err)
		}
	default:
		s.respondError(w, r, core.Errf(core.KindValidation, "unsupported export format %q (use csv or json)", format))
	}
}
