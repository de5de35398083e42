// Package http exposes the panel backend over a JSON API: script listing,
// run/stop control, status, pool counts, and Prometheus metrics. Script
// output never flows through this layer; it stays on whatever surface hosts
// the run.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/scriptdeck/internal/discovery"
	"github.com/aretw0/scriptdeck/internal/metrics"
	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// Lifecycle is the slice of the lifecycle manager the API needs.
type Lifecycle interface {
	Request(ctx context.Context, identity domain.ScriptIdentity, params string) ([]string, error)
	Stop(ctx context.Context, identity domain.ScriptIdentity, mode domain.StopMode) error
	Status(identity domain.ScriptIdentity) domain.RunState
	Counts() domain.PoolCounts
}

// Server wires the lifecycle, scanner, and optional history store into a
// chi router.
type Server struct {
	lifecycle Lifecycle
	scanner   *discovery.Scanner
	history   ports.HistoryStore
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandler builds the HTTP handler for the panel API.
func NewHandler(lc Lifecycle, scanner *discovery.Scanner, history ports.HistoryStore, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	s := &Server{
		lifecycle: lc,
		scanner:   scanner,
		history:   history,
		metrics:   m,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Get("/api/scripts", s.listScripts)
	r.Post("/api/run", s.run)
	r.Post("/api/stop", s.stop)
	r.Get("/api/status", s.status)
	r.Get("/api/pool", s.pool)
	r.Get("/api/history", s.recentHistory)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

type runRequest struct {
	Path   string `json:"path"`
	Params string `json:"params"`
}

type runResponse struct {
	State    string   `json:"state"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	identity := domain.ScriptIdentity(body.Path)
	warnings, err := s.lifecycle.Request(r.Context(), identity, body.Params)
	if err != nil {
		s.writeRequestError(w, identity, err)
		return
	}

	writeJSON(w, s.logger, http.StatusAccepted, runResponse{
		State:    s.lifecycle.Status(identity).String(),
		Warnings: warnings,
	})
}

// writeRequestError maps the lifecycle error taxonomy onto HTTP statuses.
// AlreadyRunning and the security verdicts are client-resolvable; the rest
// are generic retryable failures.
func (s *Server) writeRequestError(w http.ResponseWriter, identity domain.ScriptIdentity, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSecurityDenied), errors.Is(err, domain.ErrSecurityDeclined):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrPermissionGrant), errors.Is(err, domain.ErrSessionAcquisition):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("run request failed", "script", identity, "err", err)
	}
	http.Error(w, err.Error(), status)
}

type stopRequest struct {
	Path  string `json:"path"`
	Force bool   `json:"force"`
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	var body stopRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	mode := domain.StopGraceful
	if body.Force {
		mode = domain.StopForce
	}

	err := s.lifecycle.Stop(r.Context(), domain.ScriptIdentity(body.Path), mode)
	if errors.Is(err, domain.ErrNotRunning) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("stop request failed", "script", body.Path, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path parameter", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"state": s.lifecycle.Status(domain.ScriptIdentity(path)).String(),
	})
}

func (s *Server) pool(w http.ResponseWriter, r *http.Request) {
	counts := s.lifecycle.Counts()
	if s.metrics != nil {
		s.metrics.SetPool(counts)
	}
	writeJSON(w, s.logger, http.StatusOK, counts)
}

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	groups, err := s.scanner.Scan()
	if err != nil {
		s.logger.Error("script scan failed", "err", err)
		http.Error(w, "scan failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, groups)
}

func (s *Server) recentHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, s.logger, http.StatusOK, []domain.HistoryEntry{})
		return
	}
	entries, err := s.history.Recent(r.Context(), 50)
	if err != nil {
		s.logger.Error("history read failed", "err", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, s.logger, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
