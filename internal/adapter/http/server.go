package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openearth/coverage-etl/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AllReady combines checkers; the first failure wins.
func AllReady(checkers ...ReadinessChecker) ReadinessChecker {
	return readinessChain(checkers)
}

type readinessChain []ReadinessChecker

func (c readinessChain) CheckReadiness(ctx context.Context) error {
	for _, checker := range c {
		if err := checker.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Profiler samples coverages along lines.
type Profiler interface {
	Grid(ctx context.Context) (domain.Grid, error)
	Profile(ctx context.Context, line domain.Line, samplingFactor float64) (domain.LineProfile, error)
}

// Server exposes health, readiness, metrics, and the sampling API.
type Server struct {
	httpServer *http.Server
	profiles   Profiler
	points     domain.PointSampler
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics
// routes. The /v1 sampling routes are mounted when profiles is non-nil, and
// /v1/elevation only when points is non-nil too.
func NewServer(addr string, ready ReadinessChecker, profiles Profiler, points domain.PointSampler, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		profiles: profiles,
		points:   points,
		logger:   logger,
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	if profiles != nil {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/grid", s.handleGrid)
			r.Get("/profile", s.handleProfile)
			if points != nil {
				r.Get("/elevation", s.handleElevation)
			}
		})
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
