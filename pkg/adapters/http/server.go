// Package http exposes an engine as a JSON API over chi.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/domain"
	tgraph "github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RunRequest is the body of POST /sessions/{id}/run.
type RunRequest[S any] struct {
	State  S    `json:"state"`
	Resume bool `json:"resume"`
	// InterruptBefore replaces the engine's pause list for this call when present.
	// An empty list disables pausing.
	InterruptBefore *[]string `json:"interrupt_before,omitempty"`
}

// ErrorResponse is returned for every non-2xx reply.
// Result is set when a run failed after it started.
type ErrorResponse struct {
	Error  string `json:"error"`
	Result any    `json:"result,omitempty"`
}

// Server serves one engine.
type Server[S any] struct {
	engine   ports.Engine[S]
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	gated    []string
}

// Option configures a Server.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	gated    []string
}

// WithLogger sets the request logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithGatherer serves GET /metrics from g. Defaults to prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *config) { c.gatherer = g }
}

// WithGatedNodes marks nodes as approval gates in the mermaid output.
func WithGatedNodes(nodes ...string) Option {
	return func(c *config) { c.gated = nodes }
}

// NewHandler creates the HTTP handler for eng.
func NewHandler[S any](eng ports.Engine[S], opts ...Option) http.Handler {
	cfg := config{logger: logging.NewNop(), gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server[S]{engine: eng, logger: cfg.logger, gatherer: cfg.gatherer, gated: cfg.gated}

	contract, err := loadRouter()
	if err != nil {
		// The contract is embedded at build time; a broken one is a programming error.
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(s.validateRequests(contract))

	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/swagger", s.GetSwagger)
	r.Get("/health", s.GetHealth)
	r.Get("/graph", s.GetGraph)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/run", s.RunSession)
			r.Patch("/state", s.PatchState)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunSession handles POST /sessions/{id}/run.
func (s *Server[S]) RunSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body RunRequest[S]
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err, nil)
		return
	}

	var opts []domain.RunOption
	if body.Resume {
		opts = append(opts, domain.Resume())
	}
	if body.InterruptBefore != nil {
		opts = append(opts, domain.InterruptBefore(*body.InterruptBefore...))
	}

	res, err := s.engine.Run(r.Context(), id, body.State, opts...)
	if err != nil {
		s.logger.Warn("run failed", "session_id", id, "err", err)
		var result any
		if res != nil {
			result = res
		}
		s.writeError(w, statusFor(err), err, result)
		return
	}
	s.logger.Info("run finished", "session_id", id, "status", res.Status, "steps", res.Steps)
	writeJSON(w, http.StatusOK, res)
}

// GetSession handles GET /sessions/{id}.
func (s *Server[S]) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.State(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err, nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PatchState handles PATCH /sessions/{id}/state. The body is merged over the
// stored state with JSON semantics: fields it names are replaced, others kept.
func (s *Server[S]) PatchState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err, nil)
		return
	}
	if !json.Valid(patch) {
		s.writeError(w, http.StatusBadRequest, errors.New("body is not valid JSON"), nil)
		return
	}

	err = s.engine.UpdateState(r.Context(), id, func(state S) (S, error) {
		return mergeJSON(state, patch)
	})
	if err != nil {
		s.writeError(w, statusFor(err), err, nil)
		return
	}
	s.GetSession(w, r)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server[S]) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, statusFor(err), err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (s *Server[S]) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Sessions(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetGraph handles GET /graph. ?format=mermaid returns flowchart text;
// ?session=<id> highlights that session's cursor.
func (s *Server[S]) GetGraph(w http.ResponseWriter, r *http.Request) {
	var format, session string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		s.writeError(w, http.StatusBadRequest, err, nil)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "session", r.URL.Query(), &session); err != nil {
		s.writeError(w, http.StatusBadRequest, err, nil)
		return
	}

	topo := s.engine.Topology()
	if format != "mermaid" {
		writeJSON(w, http.StatusOK, topo)
		return
	}

	overlay := &graph.Overlay{Gated: s.gated}
	if id := session; id != "" {
		if snap, err := s.engine.State(r.Context(), id); err == nil {
			overlay.Cursor = snap.Cursor
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(topo, overlay))
}

// GetHealth handles GET /health.
func (s *Server[S]) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mergeJSON replaces the top-level fields of state named in patch and decodes
// the result into a fresh value, so arrays are swapped whole rather than
// merged element by element.
func mergeJSON[S any](state S, patch []byte) (S, error) {
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return state, &badRequest{err}
	}

	current, err := json.Marshal(state)
	if err != nil {
		return state, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &fields); err != nil {
		return state, &badRequest{fmt.Errorf("state is not a JSON object: %w", err)}
	}
	for k, v := range overlay {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return state, err
	}
	var next S
	if err := json.Unmarshal(merged, &next); err != nil {
		return state, &badRequest{err}
	}
	return next, nil
}

type badRequest struct{ error }

func (b *badRequest) Unwrap() error { return b.error }

func statusFor(err error) int {
	var br *badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, domain.ErrEmptySessionID),
		errors.Is(err, tgraph.ErrUnknownNode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNoCheckpoint):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnmappedRoute),
		errors.Is(err, domain.ErrStepLimit),
		errors.Is(err, domain.ErrStateDecode):
		return http.StatusUnprocessableEntity
	}
	var ne *domain.NodeExecutionError
	if errors.As(err, &ne) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server[S]) writeError(w http.ResponseWriter, status int, err error, result any) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: strings.TrimSpace(err.Error()), Result: result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
