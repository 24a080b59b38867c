package web

// respond.go provides unified JSON responses for the host surface. Pipeline
// error kinds map to HTTP statuses here; handlers never inspect errors
// themselves.

import (
	"encoding/json"
	"net/http"

	"github.com/palletline/cyclecount/internal/core"
	"github.com/palletline/cyclecount/internal/logging"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string    `json:"error"`
	Kind  core.Kind `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError logs the technical error and writes a JSON error with the
// status its kind maps to.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)

	logger := logging.FromContext(r.Context())
	logger.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"kind", string(kind),
		"error", err,
	)

	respondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// statusFor maps pipeline error kinds to HTTP statuses. Everything
// recoverable is a client error; collaborator failures are 5xx.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInvalidTransition, core.KindSessionClosed, core.KindDuplicateRow:
		return http.StatusConflict
	case core.KindValidation, core.KindInvalidScope, core.KindInvalidQuantity,
		core.KindOutOfScope, core.KindEmptyInput, core.KindImportFailed:
		return http.StatusBadRequest
	case core.KindStorageFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
