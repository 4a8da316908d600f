package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/flowfsm"
	"github.com/aretw0/flowfsm/internal/logging"
	presentation "github.com/aretw0/flowfsm/internal/presentation/graph"
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/graph"
	"github.com/aretw0/flowfsm/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Flow is the part of a flow the server describes.
type Flow interface {
	StartState() domain.State
	Collection() *graph.Collection
}

// Server exposes a flow and its live contexts over JSON.
type Server struct {
	Flow     Flow
	Sessions *session.Manager
	Streams  *StreamManager
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreams enables GET /events. Its Hooks must be installed on the flow.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewHandler creates a new HTTP handler for flow and the contexts of sessions.
func NewHandler(flow Flow, sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Flow:     flow,
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Get("/graph/mermaid", s.GetMermaid)
	r.Route("/contexts", func(r chi.Router) {
		r.Get("/", s.ListContexts)
		r.Post("/", s.OpenContext)
		r.Post("/prune", s.PruneContexts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetContext)
			r.Delete("/", s.DeleteContext)
			r.Post("/stop", s.StopContext)
			r.Get("/mermaid", s.GetContextMermaid)
			r.Post("/events/{event}", s.TriggerEvent)
		})
	})
	if s.Streams != nil {
		r.Get("/events", s.SubscribeEvents)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GraphResponse describes the transition graph of the flow.
type GraphResponse struct {
	Start       domain.State        `json:"start"`
	States      []domain.State      `json:"states"`
	FinalStates []domain.State      `json:"final_states"`
	Transitions []domain.Transition `json:"transitions"`
}

// ContextResponse is the public view of a live context.
type ContextResponse struct {
	ID         string         `json:"id"`
	State      domain.State   `json:"state"`
	Running    bool           `json:"running"`
	Terminated bool           `json:"terminated"`
	Stopped    bool           `json:"stopped"`
	Available  []domain.Event `json:"available"`
	Values     map[string]any `json:"values,omitempty"`
}

// OpenRequest is the optional body of POST /contexts.
type OpenRequest struct {
	ID     string         `json:"id,omitempty"`
	Values map[string]any `json:"values,omitempty"`
}

// TriggerResponse reports the outcome of POST /contexts/{id}/events/{event}.
type TriggerResponse struct {
	Accepted bool            `json:"accepted"`
	Context  ContextResponse `json:"context"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "flowfsm-http",
		"version": strings.TrimSpace(flowfsm.Version),
	})
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	c := s.Flow.Collection()
	s.writeJSON(w, http.StatusOK, GraphResponse{
		Start:       s.Flow.StartState(),
		States:      c.States(),
		FinalStates: c.FinalStates(),
		Transitions: c.Transitions(),
	})
}

// GetMermaid handles the GET /graph/mermaid request.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, presentation.GenerateMermaid(s.Flow.Collection(), s.Flow.StartState(), nil))
}

// ListContexts handles the GET /contexts request.
func (s *Server) ListContexts(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]ContextResponse, 0, len(ids))
	for _, id := range ids {
		c, err := s.Sessions.Get(r.Context(), id)
		if errors.Is(err, domain.ErrContextNotFound) {
			continue
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		views = append(views, s.view(c))
	}
	s.writeJSON(w, http.StatusOK, views)
}

// OpenContext handles the POST /contexts request.
func (s *Server) OpenContext(w http.ResponseWriter, r *http.Request) {
	var body OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("OpenContext: invalid request body", "err", err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var opts []domain.ContextOption
	if len(body.Values) > 0 {
		opts = append(opts, domain.WithValues(body.Values))
	}
	c, err := s.Sessions.Open(r.Context(), body.ID, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Location", "/contexts/"+c.ID())
	s.writeJSON(w, http.StatusCreated, s.view(c))
}

// PruneContexts handles the POST /contexts/prune request.
func (s *Server) PruneContexts(w http.ResponseWriter, r *http.Request) {
	n, err := s.Sessions.Prune(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// GetContext handles the GET /contexts/{id} request.
func (s *Server) GetContext(w http.ResponseWriter, r *http.Request) {
	c, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(c))
}

// GetContextMermaid handles the GET /contexts/{id}/mermaid request.
func (s *Server) GetContextMermaid(w http.ResponseWriter, r *http.Request) {
	c, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, presentation.GenerateMermaid(
		s.Flow.Collection(), s.Flow.StartState(), &presentation.Overlay{Current: c.State()},
	))
}

// StopContext handles the POST /contexts/{id}/stop request.
func (s *Server) StopContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Stop(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.GetContext(w, r)
}

// DeleteContext handles the DELETE /contexts/{id} request.
func (s *Server) DeleteContext(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerEvent handles the POST /contexts/{id}/events/{event} request.
// The optional expect query parameter makes it a conditional trigger.
func (s *Server) TriggerEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event := domain.Event(chi.URLParam(r, "event"))
	expected := domain.State(r.URL.Query().Get("expect"))

	ok, err := s.Sessions.Trigger(r.Context(), id, event, expected)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusAccepted
	switch {
	case ok:
	case c.IsTerminated():
		status = http.StatusConflict
	case expected != domain.NoState:
		status = http.StatusPreconditionFailed
	default:
		status = http.StatusConflict
	}
	s.logger.Debug("TriggerEvent", "context", id, "event", event, "accepted", ok)
	s.writeJSON(w, status, TriggerResponse{Accepted: ok, Context: s.view(c)})
}

// SubscribeEvents handles the GET /events request (SSE). The optional context
// query parameter restricts the stream to one context.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	id := r.URL.Query().Get("context")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: client subscribed", "context", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "context", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) view(c *domain.Context) ContextResponse {
	ts := s.Flow.Collection().From(c.State())
	available := make([]domain.Event, 0, len(ts))
	if !c.IsTerminated() {
		for _, t := range ts {
			available = append(available, t.Event)
		}
	}
	return ContextResponse{
		ID:         c.ID(),
		State:      c.State(),
		Running:    c.IsRunning(),
		Terminated: c.IsTerminated(),
		Stopped:    c.IsStopped(),
		Available:  available,
		Values:     c.Values(),
	}
}

func statusFor(err error) int {
	var lv *domain.LogicViolationError
	switch {
	case errors.Is(err, domain.ErrContextNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrContextExists), errors.As(err, &lv), errors.Is(err, domain.ErrNotStarted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
