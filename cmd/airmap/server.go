package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/inpost-airmap/pkg/job"
	"github.com/Sternrassler/inpost-airmap/pkg/metrics"
	"github.com/Sternrassler/inpost-airmap/pkg/status"
)

const (
	readyTimeout   = 2 * time.Second
	statusHistory  = 10
	generateBudget = 10 * time.Minute
)

// Runner runs one map generation. *job.Job implements it.
type Runner interface {
	Run(ctx context.Context) (*job.Result, error)
}

// server exposes map generation over HTTP.
type server struct {
	runner   Runner
	status   *status.Store // nil when Redis is not configured
	envelope func(*job.Result, error) job.Envelope
	logger   zerolog.Logger

	// running guards against overlapping generations.
	running sync.Mutex
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /generate", s.handleGenerate)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a map generation is already running"})
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), generateBudget)
	defer cancel()

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("Map generation triggered")

	result, err := s.runner.Run(ctx)
	writeEnvelope(w, s.envelope(result, err))
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.status != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := s.status.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "status store not configured"})
		return
	}

	ctx := r.Context()
	last, err := s.status.Last(ctx)
	if errors.Is(err, status.ErrNoRuns) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs recorded yet"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	history, err := s.status.History(ctx, statusHistory)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read run history")
	}
	total, err := s.status.RunsTotal(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read run counter")
	}

	writeJSON(w, http.StatusOK, struct {
		Last       *status.Summary  `json:"last"`
		Degraded   bool             `json:"degraded"`
		AgeSeconds float64          `json:"age_seconds"`
		RunsTotal  int64            `json:"runs_total"`
		History    []status.Summary `json:"history"`
	}{
		Last:       last,
		Degraded:   last.Degraded(),
		AgeSeconds: last.Age().Seconds(),
		RunsTotal:  total,
		History:    history,
	})
}

func writeEnvelope(w http.ResponseWriter, env job.Envelope) {
	for key, value := range env.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(env.StatusCode)
	w.Write([]byte(env.Body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
