package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RunResponse is returned by every tool that drives a run.
type RunResponse struct {
	Snapshot domain.Snapshot `json:"snapshot" jsonschema_description:"Runtime state of the run"`
	Content  string          `json:"content,omitempty" jsonschema_description:"Content of the current step"`
	Error    string          `json:"error,omitempty" jsonschema_description:"Why the run ended early, if it did"`
}

// Server exposes a session manager as an MCP server, so an agent can act as
// the host of a run.
type Server struct {
	manager   *session.Manager
	loader    ports.DefinitionLoader
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, loader ports.DefinitionLoader, opts ...Option) *Server {
	s := &Server{
		manager:   manager,
		loader:    loader,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stepwise-mcp", strings.TrimSpace(stepwise.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type createArgs struct {
	Definition string `json:"definition"`
	RunID      string `json:"run_id"`
}

type runArgs struct {
	RunID string `json:"run_id"`
}

type completeArgs struct {
	RunID string `json:"run_id"`
	Step  string `json:"step"`
}

type variableArgs struct {
	RunID string `json:"run_id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func runIDParam() mcp.ToolOption {
	return mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_run",
		mcp.WithDescription("Create a run of a definition and begin it."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("Name of the definition")),
		mcp.WithString("run_id", mcp.Description("ID for the run (generated when omitted)")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("begin",
		mcp.WithDescription("Begin (or restart) a run from its first step."),
		runIDParam(),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.runOp(s.manager.Begin)))

	s.mcpServer.AddTool(mcp.NewTool("complete_step",
		mcp.WithDescription("Complete the current step. Pass step to complete it only if it is still current."),
		runIDParam(),
		mcp.WithString("step", mcp.Description("Expected current step ID (optional)")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleComplete))

	s.mcpServer.AddTool(mcp.NewTool("previous_step",
		mcp.WithDescription("Go back to the previous step of a linear run."),
		runIDParam(),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.runOp(s.manager.Previous)))

	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Reset a run to inactive."),
		runIDParam(),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.runOp(s.manager.Reset)))

	s.mcpServer.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Get the runtime state of a run."),
		runIDParam(),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.runOp(s.manager.Snapshot)))

	s.mcpServer.AddTool(mcp.NewTool("set_variable",
		mcp.WithDescription("Set a variable the run's branch conditions read. The value is parsed by the variable's kind."),
		runIDParam(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Variable name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value, e.g. \"true\", \"42\", \"left\"")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetVariable))

	s.mcpServer.AddTool(mcp.NewTool("list_definitions",
		mcp.WithDescription("List the available definitions."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.loader.List()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return mcp.NewToolResultText(strings.Join(names, "\n")), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get a Mermaid diagram of a definition, or of a run with its progress."),
		mcp.WithString("definition", mcp.Description("Definition name")),
		mcp.WithString("run_id", mcp.Description("Run ID (takes precedence)")),
	), s.handleGraph)
}

func (s *Server) runOp(fn func(context.Context, string) (domain.Snapshot, error)) func(context.Context, mcp.CallToolRequest, runArgs) (RunResponse, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args runArgs) (RunResponse, error) {
		snap, err := fn(logging.WithRunID(ctx, args.RunID), args.RunID)
		if err != nil {
			return RunResponse{}, err
		}
		return s.respond(snap), nil
	}
}

func (s *Server) handleCreate(ctx context.Context, _ mcp.CallToolRequest, args createArgs) (RunResponse, error) {
	run, err := s.manager.Create(ctx, args.Definition, args.RunID)
	if err != nil {
		return RunResponse{}, err
	}
	s.logger.InfoContext(logging.WithRunID(ctx, run.ID()), "MCP: run created", "definition", run.Definition())

	snap, err := s.manager.Begin(ctx, run.ID())
	if err != nil {
		return RunResponse{}, err
	}
	return s.respond(snap), nil
}

func (s *Server) handleComplete(ctx context.Context, _ mcp.CallToolRequest, args completeArgs) (RunResponse, error) {
	snap, err := s.manager.Complete(logging.WithRunID(ctx, args.RunID), args.RunID, args.Step)
	if err != nil {
		return RunResponse{}, err
	}
	return s.respond(snap), nil
}

func (s *Server) handleSetVariable(ctx context.Context, _ mcp.CallToolRequest, args variableArgs) (RunResponse, error) {
	ctx = logging.WithRunID(ctx, args.RunID)
	if err := s.manager.SetVariable(ctx, args.RunID, args.Name, args.Value); err != nil {
		return RunResponse{}, err
	}
	snap, err := s.manager.Snapshot(ctx, args.RunID)
	if err != nil {
		return RunResponse{}, err
	}
	return s.respond(snap), nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var overlay *graph.GraphOverlay
	name := request.GetString("definition", "")
	if runID := request.GetString("run_id", ""); runID != "" {
		run, err := s.manager.Get(runID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		snap, err := s.manager.Snapshot(ctx, runID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		name = run.Definition()
		overlay = graph.OverlayFromSnapshot(snap)
	}
	if name == "" {
		return mcp.NewToolResultError("definition or run_id is required"), nil
	}

	def, err := s.loader.Load(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(def, overlay)), nil
}

// respond adds the content of the current step so the agent can present it.
func (s *Server) respond(snap domain.Snapshot) RunResponse {
	resp := RunResponse{Snapshot: snap}
	if err := snap.Reason.Err(); err != nil {
		resp.Error = err.Error()
	}
	if snap.CurrentStep == "" {
		return resp
	}
	def, err := s.loader.Load(snap.Sequence)
	if err != nil {
		if !errors.Is(err, domain.ErrDefinitionNotFound) {
			s.logger.Warn("MCP: failed to load definition", "definition", snap.Sequence, "error", err)
		}
		return resp
	}
	if step, ok := def.Step(snap.CurrentStep); ok {
		resp.Content = step.Content
	}
	return resp
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("stepwise://definitions", "Flow Definitions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.loader.List()
		if err != nil {
			return nil, fmt.Errorf("failed to list definitions: %w", err)
		}
		jsonBytes, _ := json.Marshal(names)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "stepwise://definitions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
