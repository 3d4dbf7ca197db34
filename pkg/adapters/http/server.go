// Package http exposes stored graphs over HTTP: listing, triggering runs and
// streaming lifecycle events as server-sent events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/go-chi/chi/v5"
)

// DefaultStart is the node a run begins at when the request names none.
const DefaultStart = "Start"

// Engine is the part of flowgraph.Engine the server needs.
type Engine interface {
	Graphs(ctx context.Context) ([]string, error)
	RunStored(ctx context.Context, name, start string) (*graph.Graph, error)
}

// Server holds the handlers.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	Version string

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams publishes the events broadcast by sm on GET /events.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// RunRequest is the optional body of POST /graphs/{name}/runs.
type RunRequest struct {
	Start string `json:"start"`
}

// RunResponse reports the values a run left behind.
type RunResponse struct {
	Graph  string         `json:"graph"`
	Start  string         `json:"start"`
	Values map[string]any `json:"values"`
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		Version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graphs", s.ListGraphs)
	r.Post("/graphs/{name}/runs", s.RunGraph)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "flowgraph",
		"version": strings.TrimSpace(s.Version),
	})
}

// ListGraphs handles GET /graphs.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.Graphs(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("list graphs failed", "err", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

// RunGraph handles POST /graphs/{name}/runs.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("run: invalid request body", "err", err)
			return
		}
	}
	if body.Start == "" {
		body.Start = DefaultStart
	}

	g, err := s.Engine.RunStored(r.Context(), name, body.Start)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrGraphNotFound) || errors.Is(err, domain.ErrNodeNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("Run error: %v", err), status)
		s.logger.Error("run failed", "graph", name, "start", body.Start, "err", err)
		return
	}

	s.writeJSON(w, http.StatusOK, RunResponse{
		Graph:  name,
		Start:  body.Start,
		Values: g.Values().Snapshot(),
	})
}

// SubscribeEvents handles GET /events. The optional traversal parameter
// narrows the stream to one walk, and type to a comma separated list of
// event types.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var types map[string]bool
	if raw := r.URL.Query().Get("type"); raw != "" {
		types = make(map[string]bool)
		for _, t := range strings.Split(raw, ",") {
			types[strings.TrimSpace(t)] = true
		}
	}

	ch, cancel := s.Streams.Subscribe(r.URL.Query().Get("traversal"))
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if types != nil && !types[string(msg.Type)] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, msg.Data)
			flusher.Flush()
		}
	}
}

// Message is one encoded lifecycle event.
type Message struct {
	Type domain.EventType
	Data []byte
}

// StreamManager fans lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Message]struct{} // traversal id ("" for all) -> channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan Message]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a channel for the events of one walk, or of every walk
// when traversal is empty. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(traversal string) (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 16)
	if _, ok := sm.subscribers[traversal]; !ok {
		sm.subscribers[traversal] = make(map[chan Message]struct{})
	}
	sm.subscribers[traversal][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			subs := sm.subscribers[traversal]
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, traversal)
			}
		})
	}
}

// Broadcast sends msg to the subscribers of traversal and to those of every
// walk. Slow subscribers drop messages instead of blocking the walk.
func (sm *StreamManager) Broadcast(traversal string, msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{traversal, ""} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("sse: subscriber buffer full, dropping event", "traversal", traversal)
			}
		}
		if traversal == "" {
			break
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every event as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	node := func(_ context.Context, e *domain.NodeEvent) {
		payload := struct {
			*domain.NodeEvent
			Error string `json:"error,omitempty"`
		}{NodeEvent: e}
		if e.Err != nil {
			payload.Error = e.Err.Error()
		}
		sm.publish(e.TraversalID, e.Type, payload)
	}
	traversal := func(_ context.Context, e *domain.TraversalEvent) {
		payload := struct {
			*domain.TraversalEvent
			Error string `json:"error,omitempty"`
		}{TraversalEvent: e}
		if e.Err != nil {
			payload.Error = e.Err.Error()
		}
		sm.publish(e.TraversalID, e.Type, payload)
	}
	return domain.LifecycleHooks{
		OnNodeEnter:      node,
		OnNodeLeave:      node,
		OnNodeError:      node,
		OnTraversalStart: traversal,
		OnTraversalEnd:   traversal,
	}
}

func (sm *StreamManager) publish(traversal string, typ domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("sse: event encode failed", "err", err)
		return
	}
	sm.Broadcast(traversal, Message{Type: typ, Data: data})
}
