package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/aretw0/statecraft/pkg/sanitize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const workflowsURI = "statecraft://workflows"

// TransitionResponse is the structured output of the transition tool.
type TransitionResponse struct {
	Result           domain.TransitionResult `json:"result" jsonschema_description:"success, blocked, error or permission_denied"`
	CurrentState     string                  `json:"current_state" jsonschema_description:"State of the entity after the request"`
	ValidTransitions []string                `json:"valid_transitions" jsonschema_description:"Configured next states from current_state"`
}

// Server exposes a WorkflowService as an MCP server.
type Server struct {
	service   ports.WorkflowService
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	logger  *slog.Logger
	version string
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serverConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVersion sets the version advertised during MCP initialization.
func WithVersion(v string) Option {
	return func(c *serverConfig) {
		c.version = v
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc ports.WorkflowService, opts ...Option) *Server {
	cfg := serverConfig{logger: logging.NewNop(), version: "dev"}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		service:   svc,
		logger:    cfg.logger,
		mcpServer: server.NewMCPServer("statecraft-mcp", cfg.version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: transition
	transitionTool := mcp.NewTool("transition",
		mcp.WithDescription("Request a state transition for one entity. Returns the outcome and the resulting state."),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Registered workflow name")),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity identifier")),
		mcp.WithString("from_state", mcp.Required(), mcp.Description("Current state of the entity")),
		mcp.WithString("to_state", mcp.Required(), mcp.Description("Requested target state")),
		mcp.WithString("user_id", mcp.Description("Acting user; enables permission checks")),
		mcp.WithString("context", mcp.Description("JSON object evaluated by guard conditions")),
		mcp.WithOutputSchema[TransitionResponse](),
	)
	s.mcpServer.AddTool(transitionTool, mcp.NewStructuredToolHandler(s.handleTransition))

	// TOOL: get_history
	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List recorded transition events, newest first."),
		mcp.WithString("entity_type", mcp.Description("Only events of this workflow")),
		mcp.WithString("entity_id", mcp.Description("Only events of this entity")),
	), s.handleHistory)

	// TOOL: get_state_info
	s.mcpServer.AddTool(mcp.NewTool("get_state_info",
		mcp.WithDescription("Describe a state: next states, permissions, actions and metadata."),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Registered workflow name")),
		mcp.WithString("state", mcp.Required(), mcp.Description("State name")),
	), s.handleStateInfo)

	// TOOL: valid_transitions
	s.mcpServer.AddTool(mcp.NewTool("valid_transitions",
		mcp.WithDescription("List the configured next states of a state, ignoring guards."),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Registered workflow name")),
		mcp.WithString("state", mcp.Required(), mcp.Description("State name")),
	), s.handleValidTransitions)

	// TOOL: list_workflows
	s.mcpServer.AddTool(mcp.NewTool("list_workflows",
		mcp.WithDescription("List the registered workflow names."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.service.Workflows())
	})
}

func (s *Server) handleTransition(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TransitionResponse, error) {
	req := domain.TransitionRequest{Context: map[string]any{}}
	req.EntityType, _ = args["entity_type"].(string)
	req.EntityID, _ = args["entity_id"].(string)
	req.FromState, _ = args["from_state"].(string)
	req.ToState, _ = args["to_state"].(string)
	req.UserID, _ = args["user_id"].(string)

	if ctxStr, ok := args["context"].(string); ok && ctxStr != "" {
		if err := json.Unmarshal([]byte(ctxStr), &req.Context); err != nil {
			return TransitionResponse{}, fmt.Errorf("invalid context: %w", err)
		}
	}

	req, err := sanitize.Request(req)
	if err != nil {
		return TransitionResponse{}, fmt.Errorf("invalid request: %w", err)
	}

	result := s.service.Transition(ctx, req)
	s.logger.Debug("MCP transition", "entity_type", req.EntityType, "entity_id", req.EntityID, "result", result)

	current := req.FromState
	if result == domain.ResultSuccess {
		current = req.ToState
	}
	return TransitionResponse{
		Result:           result,
		CurrentState:     current,
		ValidTransitions: s.service.ValidTransitions(req.EntityType, current),
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events, err := s.service.History(ctx, domain.HistoryFilter{
		EntityType: request.GetString("entity_type", ""),
		EntityID:   request.GetString("entity_id", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if events == nil {
		events = []domain.TransitionEvent{}
	}
	return jsonResult(events)
}

func (s *Server) handleStateInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityType := request.GetString("entity_type", "")
	if _, ok := s.service.Definition(entityType); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", domain.ErrWorkflowNotFound, entityType)), nil
	}
	return jsonResult(s.service.StateInfo(entityType, request.GetString("state", "")))
}

func (s *Server) handleValidTransitions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityType := request.GetString("entity_type", "")
	if _, ok := s.service.Definition(entityType); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", domain.ErrWorkflowNotFound, entityType)), nil
	}
	return jsonResult(s.service.ValidTransitions(entityType, request.GetString("state", "")))
}

func (s *Server) registerResources() {
	// EXPOSE: statecraft://workflows
	s.mcpServer.AddResource(mcp.NewResource(workflowsURI, "Registered workflow definitions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.workflowsJSON()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      workflowsURI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}

func (s *Server) workflowsJSON() (string, error) {
	defs := make(map[string]domain.WorkflowDefinition)
	for _, name := range s.service.Workflows() {
		if def, ok := s.service.Definition(name); ok {
			defs[name] = def
		}
	}
	b, err := json.Marshal(defs)
	if err != nil {
		return "", fmt.Errorf("failed to encode workflows: %w", err)
	}
	return string(b), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
