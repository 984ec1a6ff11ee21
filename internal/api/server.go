package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summaries/internal/config"
	"github.com/JakeFAU/article-summaries/internal/metrics"
	"github.com/JakeFAU/article-summaries/internal/summary"
)

const (
	maxBodyBytes   = 1 << 20
	enqueueTimeout = 5 * time.Second
	readyTimeout   = 2 * time.Second
)

// Server wires HTTP handlers to the summary store and the task queue.
type Server struct {
	router   chi.Router
	store    summary.Store
	enqueuer summary.Enqueuer
	clock    summary.Clock
	settings atomic.Pointer[config.Config]
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store summary.Store,
	enqueuer summary.Enqueuer,
	clock summary.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    store,
		enqueuer: enqueuer,
		clock:    clock,
		logger:   logger.Named("api"),
	}
	s.settings.Store(&cfg)

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))
	r.Use(s.settingsMiddleware)
	r.Use(chimiddleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/ping", s.ping)

	r.Post("/summaries", s.createSummary)
	r.Get("/summaries", s.listSummaries)
	r.Get("/summaries/{id}", s.getSummary)
	r.Put("/summaries/{id}", s.updateSummary)
	r.Delete("/summaries/{id}", s.deleteSummary)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// OverrideSettings replaces the settings injected into every subsequent
// request context.
func (s *Server) OverrideSettings(cfg config.Config) {
	s.settings.Store(&cfg)
}

func (s *Server) settingsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := config.NewContext(r.Context(), *s.settings.Load())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	cfg, ok := config.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusInternalServerError, internalErrorDetail)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ping":        "pong!",
		"environment": cfg.Environment,
		"testing":     cfg.Testing,
	})
}
