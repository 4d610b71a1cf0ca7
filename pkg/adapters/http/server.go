package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/internal/presentation/graph"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/aretw0/statecraft/pkg/sanitize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a WorkflowService over HTTP.
type Server struct {
	Service ports.WorkflowService
	Streams *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts GET /metrics serving the given gatherer.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a server for the service.
// Register Listener() with the engine to feed GET /events.
func NewServer(svc ports.WorkflowService, opts ...Option) *Server {
	s := &Server{
		Service: svc,
		logger:  logging.NewNop(),
		version: "unknown",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// Listener returns an engine listener that broadcasts every transition event.
func (s *Server) Listener() ports.Listener {
	return s.Streams.Listener()
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", s.getSpec)
	r.Get("/swagger", s.getSwaggerUI)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/transitions", s.PostTransition)
	r.Get("/history", s.GetHistory)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.ListWorkflows)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.GetWorkflow)
			r.Get("/graph", s.GetGraph)
			r.Get("/states/{state}", s.GetStateInfo)
			r.Get("/states/{state}/transitions", s.GetValidTransitions)
		})
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
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

// maxBodySize bounds POST bodies, context included.
const maxBodySize = 1 << 20

// TransitionResponse is the body returned by POST /transitions.
type TransitionResponse struct {
	Result domain.TransitionResult `json:"result"`
}

// resultStatus maps a transition result to an HTTP status code.
func resultStatus(r domain.TransitionResult) int {
	switch r {
	case domain.ResultSuccess:
		return http.StatusOK
	case domain.ResultBlocked:
		return http.StatusConflict
	case domain.ResultPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PostTransition handles POST /transitions.
func (s *Server) PostTransition(w http.ResponseWriter, r *http.Request) {
	var req domain.TransitionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("PostTransition: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := sanitize.Request(req)
	if err != nil {
		s.logger.Warn("PostTransition: request rejected", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.EntityType == "" || req.EntityID == "" || req.ToState == "" {
		writeError(w, http.StatusBadRequest, "entity_type, entity_id and to_state are required")
		return
	}

	result := s.Service.Transition(r.Context(), req)

	status := resultStatus(result)
	if result == domain.ResultError {
		if _, ok := s.Service.Definition(req.EntityType); !ok {
			status = http.StatusNotFound
		}
	}
	writeJSON(w, status, TransitionResponse{Result: result}, s.logger)
}

// GetHistory handles GET /history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	filter := domain.HistoryFilter{
		EntityType: r.URL.Query().Get("entity_type"),
		EntityID:   r.URL.Query().Get("entity_id"),
	}
	events, err := s.Service.History(r.Context(), filter)
	if err != nil {
		s.logger.Error("GetHistory failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("history error: %v", err))
		return
	}
	if events == nil {
		events = []domain.TransitionEvent{}
	}
	writeJSON(w, http.StatusOK, events, s.logger)
}

// ListWorkflows handles GET /workflows.
func (s *Server) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.Workflows(), s.logger)
}

// GetWorkflow handles GET /workflows/{name}.
func (s *Server) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	def, ok := s.definition(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, def, s.logger)
}

// GetStateInfo handles GET /workflows/{name}/states/{state}.
func (s *Server) GetStateInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.definition(w, r); !ok {
		return
	}
	info := s.Service.StateInfo(chi.URLParam(r, "name"), chi.URLParam(r, "state"))
	writeJSON(w, http.StatusOK, info, s.logger)
}

// GetValidTransitions handles GET /workflows/{name}/states/{state}/transitions.
func (s *Server) GetValidTransitions(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.definition(w, r); !ok {
		return
	}
	next := s.Service.ValidTransitions(chi.URLParam(r, "name"), chi.URLParam(r, "state"))
	writeJSON(w, http.StatusOK, next, s.logger)
}

// GetGraph handles GET /workflows/{name}/graph.
// With ?entity_id= the diagram highlights the states that entity visited.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	def, ok := s.definition(w, r)
	if !ok {
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("entity_id"); id != "" {
		events, err := s.Service.History(r.Context(), domain.HistoryFilter{
			EntityType: chi.URLParam(r, "name"),
			EntityID:   id,
		})
		if err != nil {
			s.logger.Error("GetGraph: history failed", "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("history error: %v", err))
			return
		}
		overlay = graph.OverlayFromHistory(events)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(def, overlay))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"app":         "statecraft-http",
		"version":     s.version,
		"api_version": apiVersion,
		"workflows":   len(s.Service.Workflows()),
	}, s.logger)
}

func (s *Server) definition(w http.ResponseWriter, r *http.Request) (domain.WorkflowDefinition, bool) {
	name := chi.URLParam(r, "name")
	def, ok := s.Service.Definition(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %s", domain.ErrWorkflowNotFound, name))
	}
	return def, ok
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg}, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("response encode failed", "error", err)
	}
}
