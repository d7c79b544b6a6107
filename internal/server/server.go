// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package server exposes pipeline results over HTTP: run metadata from the
// badger ledger, generated artifact files (reports, parquet exports), health,
// and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/wanderlens/internal/artifacts"
	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

// Server serves run history and artifacts for a WanderLens artifacts tree.
type Server struct {
	cfg          *config.ServerConfig
	ledger       *artifacts.Ledger
	artifactsDir string
	httpServer   *http.Server
}

// New builds a Server. The ledger may be nil when no ledger file exists yet;
// run endpoints then return empty lists.
func New(cfg *config.ServerConfig, ledger *artifacts.Ledger, artifactsDir string) *Server {
	s := &Server{
		cfg:          cfg,
		ledger:       ledger,
		artifactsDir: artifactsDir,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       2 * timeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMetrics)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	reqs := s.cfg.RateLimitReqs
	if reqs <= 0 {
		reqs = 100
	}
	window := s.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(reqs, window))

		r.Get("/runs", s.handleRuns)
		r.Get("/runs/latest", s.handleLatestRun)
	})

	// Artifact files are read-only exports; directory listings stay enabled
	// so run directories can be browsed.
	r.With(httprate.LimitByIP(reqs, window)).
		Handle("/artifacts/*", http.StripPrefix("/artifacts/", http.FileServer(http.Dir(s.artifactsDir))))

	return r
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", s.httpServer.Addr).
			Str("artifacts_dir", s.artifactsDir).
			Msg("artifact server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("artifact server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	stage := r.URL.Query().Get("stage")

	runs := []artifacts.RunMetadata{}
	if s.ledger != nil {
		var err error
		runs, err = s.ledger.List(stage)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "listing runs failed")
			logging.Error().Err(err).Msg("ledger list failed")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	stage := r.URL.Query().Get("stage")

	if s.ledger == nil {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	meta, err := s.ledger.Latest(stage)
	if err != nil {
		if errors.Is(err, artifacts.ErrNoRuns) {
			writeError(w, http.StatusNotFound, "no runs recorded")
			return
		}
		writeError(w, http.StatusInternalServerError, "reading ledger failed")
		logging.Error().Err(err).Msg("ledger latest failed")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// requestMetrics records request duration with the chi route pattern as the
// path label to keep cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("encoding response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
