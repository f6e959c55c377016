// Package health serves the daemon's optional HTTP introspection surface.
// It is off by default and enabled only by the HEALTH_ADDR configuration key,
// so the base daemon opens no network listener.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/syswatch/agent/internal/daemon"
	"github.com/syswatch/agent/internal/journal"
)

// defaultObservationLimit is the /observations page size when no limit query
// parameter is given.
const defaultObservationLimit = 50

// NewRouter returns the health API router.
//
// Route layout:
//
//	GET /healthz              – daemon health snapshot
//	GET /observations?limit=N – recent journal rows (404 when no journal)
func NewRouter(d *daemon.Daemon, j *journal.Journal, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", d.HealthzHandler)

	r.Get("/observations", func(w http.ResponseWriter, req *http.Request) {
		if j == nil {
			http.Error(w, "observation journal not configured", http.StatusNotFound)
			return
		}

		limit := defaultObservationLimit
		if raw := req.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				limit = n
			}
		}

		rows, err := j.Recent(req.Context(), limit)
		if err != nil {
			logger.Warn("health: observation query failed", slog.Any("error", err))
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []journal.Row{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rows); err != nil {
			logger.Warn("health: failed to encode response", slog.Any("error", err))
		}
	})

	return r
}

// Server wraps the http.Server lifecycle for the health API.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the health server for addr. Call Start to begin listening.
func New(addr string, d *daemon.Daemon, j *journal.Journal, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(d, j, logger),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine and returns immediately.
// Listener errors are logged, not fatal: the health surface is auxiliary to
// the monitoring loop.
func (s *Server) Start() {
	go func() {
		s.logger.Info("health server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("health server error", slog.Any("error", err))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
