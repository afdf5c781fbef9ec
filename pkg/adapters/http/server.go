package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/go-chi/chi/v5"
)

// Server exposes a session manager over HTTP.
type Server struct {
	Manager *session.Manager
	Loader  ports.DefinitionLoader
	Logger  *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler:
//
//	GET    /health, /info
//	GET    /definitions, /definitions/{name}, /definitions/{name}/graph
//	GET    /events                       hot reload (when the loader is watchable)
//	GET    /runs                         live run IDs
//	POST   /runs                         {"definition": "...", "id": "..."}
//	GET    /runs/{id}                    snapshot
//	DELETE /runs/{id}
//	POST   /runs/{id}/begin|complete|previous|reset
//	GET    /runs/{id}/graph              Mermaid with the run overlay
//	GET    /runs/{id}/events             SSE status stream
//	GET    /runs/{id}/variables
//	PUT    /runs/{id}/variables/{name}   {"value": "..."}
func NewHandler(manager *session.Manager, loader ports.DefinitionLoader, opts ...Option) http.Handler {
	s := &Server{
		Manager: manager,
		Loader:  loader,
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeReload)

	r.Route("/definitions", func(r chi.Router) {
		r.Get("/", s.ListDefinitions)
		r.Get("/{name}", s.GetDefinition)
		r.Get("/{name}/graph", s.GetDefinitionGraph)
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.ListRuns)
		r.Post("/", s.CreateRun)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(correlate)
			r.Get("/", s.GetRun)
			r.Delete("/", s.DeleteRun)
			r.Post("/begin", s.op(s.Manager.Begin))
			r.Post("/previous", s.op(s.Manager.Previous))
			r.Post("/reset", s.op(s.Manager.Reset))
			r.Post("/complete", s.Complete)
			r.Get("/graph", s.GetRunGraph)
			r.Get("/events", s.SubscribeRun)
			r.Get("/variables", s.GetVariables)
			r.Put("/variables/{name}", s.SetVariable)
		})
	})

	return enableCORS(r)
}

// correlate tags the request context with the run ID so every log record
// written through a CorrelationHandler carries it.
func correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRunID(r.Context(), chi.URLParam(r, "id"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"app":     "stepwise-http",
		"version": strings.TrimSpace(stepwise.Version),
	})
}

// ListDefinitions handles the GET /definitions request.
func (s *Server) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	names, err := s.Loader.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, names)
}

// GetDefinition handles the GET /definitions/{name} request.
func (s *Server) GetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.Loader.Load(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, def)
}

// GetDefinitionGraph handles the GET /definitions/{name}/graph request.
func (s *Server) GetDefinitionGraph(w http.ResponseWriter, r *http.Request) {
	def, err := s.Loader.Load(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeMermaid(w, graph.GenerateMermaid(def, nil))
}

type createRunRequest struct {
	Definition string `json:"definition"`
	ID         string `json:"id,omitempty"`
	Begin      bool   `json:"begin,omitempty"`
}

type runResponse struct {
	ID         string          `json:"id"`
	Definition string          `json:"definition"`
	Snapshot   domain.Snapshot `json:"snapshot"`
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.Manager.List())
}

// CreateRun handles the POST /runs request.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Definition == "" {
		http.Error(w, "Invalid request body: definition is required", http.StatusBadRequest)
		s.Logger.WarnContext(r.Context(), "CreateRun: invalid request body", "error", err)
		return
	}

	run, err := s.Manager.Create(r.Context(), body.Definition, body.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := logging.WithRunID(r.Context(), run.ID())

	op := func(ctx context.Context, id string) (domain.Snapshot, error) { return s.Manager.Snapshot(ctx, id) }
	if body.Begin {
		op = s.Manager.Begin
	}
	snap, err := op(ctx, run.ID())
	if err != nil {
		s.fail(w, r.WithContext(ctx), err)
		return
	}

	s.Logger.InfoContext(ctx, "run created", "definition", run.Definition())
	s.writeJSON(w, r, http.StatusCreated, runResponse{ID: run.ID(), Definition: run.Definition(), Snapshot: snap})
}

// GetRun handles the GET /runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Manager.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, snap)
}

// DeleteRun handles the DELETE /runs/{id} request.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// op adapts a manager operation to a handler returning the new snapshot.
func (s *Server) op(fn func(context.Context, string) (domain.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, snap)
	}
}

type completeRequest struct {
	Step string `json:"step,omitempty"`
}

// Complete handles the POST /runs/{id}/complete request. The body is
// optional; with a step ID only that step is completed.
func (s *Server) Complete(w http.ResponseWriter, r *http.Request) {
	var body completeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	snap, err := s.Manager.Complete(r.Context(), chi.URLParam(r, "id"), body.Step)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, snap)
}

// GetRunGraph handles the GET /runs/{id}/graph request.
func (s *Server) GetRunGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.Manager.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	def, err := s.Loader.Load(run.Definition())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.Manager.Snapshot(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeMermaid(w, graph.GenerateMermaid(def, graph.OverlayFromSnapshot(snap)))
}

// GetVariables handles the GET /runs/{id}/variables request.
func (s *Server) GetVariables(w http.ResponseWriter, r *http.Request) {
	vals, err := s.Manager.Variables(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, vals)
}

type setVariableRequest struct {
	Value json.RawMessage `json:"value"`
}

// SetVariable handles the PUT /runs/{id}/variables/{name} request. The value
// may be a JSON string or any JSON scalar.
func (s *Server) SetVariable(w http.ResponseWriter, r *http.Request) {
	var body setVariableRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Value) == 0 {
		http.Error(w, "Invalid request body: value is required", http.StatusBadRequest)
		return
	}
	raw := string(body.Value)
	var str string
	if err := json.Unmarshal(body.Value, &str); err == nil {
		raw = str
	}

	name := chi.URLParam(r, "name")
	if err := s.Manager.SetVariable(r.Context(), chi.URLParam(r, "id"), name, raw); err != nil {
		if !errors.Is(err, domain.ErrRunNotFound) && !errors.Is(err, domain.ErrUnknownVariable) && !errors.Is(err, session.ErrReadOnlyVariables) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.fail(w, r, err)
		return
	}
	s.Logger.DebugContext(r.Context(), "variable set", "var", name, "value", raw)
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeRun handles the GET /runs/{id}/events request (SSE).
func (s *Server) SubscribeRun(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, err := s.Manager.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sseHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.Logger.InfoContext(r.Context(), "SSE: subscribed to run")

	for {
		select {
		case <-r.Context().Done():
			s.Logger.InfoContext(r.Context(), "SSE: client disconnected")
			return
		case e, ok := <-events:
			if !ok {
				fmt.Fprintf(w, "event: closed\ndata: run closed\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.Logger.ErrorContext(r.Context(), "SSE: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// SubscribeReload handles the GET /events request (SSE). It signals every
// change of the definition files when the loader supports watching.
func (s *Server) SubscribeReload(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	watchable, ok := s.Loader.(ports.Watchable)
	if !ok {
		http.Error(w, "Loader does not support watching", http.StatusNotImplemented)
		return
	}
	changes, err := watchable.Watch(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sseHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: reload\n\n")
			flusher.Flush()
		}
	}
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeMermaid(w http.ResponseWriter, chart string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, chart)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.ErrorContext(r.Context(), "response encode failed", "error", err)
	}
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrDefinitionNotFound),
		errors.Is(err, domain.ErrUnknownVariable):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRunExists),
		errors.Is(err, session.ErrNotRewindable),
		errors.Is(err, session.ErrReadOnlyVariables),
		errors.Is(err, session.ErrRunClosed):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled):
		return
	}

	if status == http.StatusInternalServerError {
		s.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.Logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}
