// Package mcp exposes stored graphs as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultStart is the node a run begins at when the call names none.
const DefaultStart = "Start"

// Engine is the part of flowgraph.Engine the server needs.
type Engine interface {
	Graphs(ctx context.Context) ([]string, error)
	RunStored(ctx context.Context, name, start string) (*graph.Graph, error)
}

// ListResult is the output of list_graphs.
type ListResult struct {
	Graphs []string `json:"graphs" jsonschema_description:"Names of the stored graphs"`
}

// RunArgs are the arguments of run_graph.
type RunArgs struct {
	Name  string `json:"name"`
	Start string `json:"start,omitempty"`
}

// RunResult is the output of run_graph. It matches the body of the HTTP run
// endpoint.
type RunResult struct {
	Graph  string         `json:"graph" jsonschema_description:"The graph that ran"`
	Start  string         `json:"start" jsonschema_description:"The node the walk started at"`
	Values map[string]any `json:"values" jsonschema_description:"Graph values after the walk"`
}

// Server wraps an Engine as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the tool call logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server reporting version.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("flowgraph-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	listTool := mcp.NewTool("list_graphs",
		mcp.WithDescription("List the names of the stored graphs."),
		mcp.WithOutputSchema[ListResult](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListGraphs))

	runTool := mcp.NewTool("run_graph",
		mcp.WithDescription("Run a stored graph from its start node and report the values it left behind."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the stored graph")),
		mcp.WithString("start", mcp.Description("Node to start from (default Start)")),
		mcp.WithOutputSchema[RunResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunGraph))
}

func (s *Server) handleListGraphs(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (ListResult, error) {
	names, err := s.engine.Graphs(ctx)
	if err != nil {
		s.logger.Error("mcp: list graphs failed", "err", err)
		return ListResult{}, fmt.Errorf("list failed: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return ListResult{Graphs: names}, nil
}

func (s *Server) handleRunGraph(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (RunResult, error) {
	if args.Name == "" {
		return RunResult{}, fmt.Errorf("name is required")
	}
	if args.Start == "" {
		args.Start = DefaultStart
	}

	g, err := s.engine.RunStored(ctx, args.Name, args.Start)
	if err != nil {
		s.logger.Error("mcp: run failed", "graph", args.Name, "start", args.Start, "err", err)
		return RunResult{}, fmt.Errorf("run failed: %w", err)
	}
	return RunResult{
		Graph:  args.Name,
		Start:  args.Start,
		Values: g.Values().Snapshot(),
	}, nil
}
