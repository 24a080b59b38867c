// Package web provides the host HTTP surface wrapping the reconciliation
// pipeline: JSON endpoints for imports, sessions, counts, metrics and the
// audit trail. It holds no business rules of its own.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/palletline/cyclecount/internal/config"
	"github.com/palletline/cyclecount/internal/core"
)

// Server is the HTTP server for the cycle-count application.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Import pipeline
		r.Post("/imports", s.handleImport)
		r.Get("/inventory", s.handleInventory)

		// Session lifecycle
		r.Post("/sessions", s.handleOpenSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Post("/sessions/{sessionID}/complete", s.handleCompleteSession)
		r.Post("/sessions/{sessionID}/submit", s.handleSubmitSession)

		// Counting
		r.Post("/sessions/{sessionID}/counts", s.handleRecordCount)
		r.Get("/sessions/{sessionID}/counts", s.handleListCounts)
		r.Get("/sessions/{sessionID}/metrics", s.handleSessionMetrics)

		// Audit trail
		r.Get("/audit", s.handleAuditRecent)
		r.Get("/audit/export", s.handleAuditExport)
	})
}

// Start begins listening for HTTP requests. Blocks until shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
