// Package mcp exposes an engine as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource that describes the compiled graph.
const GraphURI = "tendril://graph"

// Server wraps an engine and exposes it as an MCP server.
type Server[S any] struct {
	engine    ports.Engine[S]
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the server logger. It must not write to stdout under stdio transport.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewServer creates an MCP server named after version.
func NewServer[S any](eng ports.Engine[S], version string, opts ...Option) *Server[S] {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server[S]{
		engine:    eng,
		logger:    o.logger,
		mcpServer: server.NewMCPServer("tendril-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for custom transports.
func (s *Server[S]) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin and stdout until EOF.
func (s *Server[S]) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over Server-Sent Events on addr until ctx is done.
func (s *Server[S]) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

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
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server[S]) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("run_session",
		mcp.WithDescription("Run a session until it completes or pauses before an approval gate."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to run")),
		mcp.WithString("state", mcp.Description("JSON input state. Ignored when resuming.")),
		mcp.WithBoolean("resume", mcp.Description("Continue from the stored checkpoint")),
		mcp.WithString("interrupt_before", mcp.Description("JSON array of node names replacing the default gates")),
	), s.handleRun)

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the stored state, cursor and status of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to inspect")),
	), s.handleGetSession)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Describe the compiled graph."),
		mcp.WithString("format", mcp.Description("'json' (default) or 'mermaid'")),
	), s.handleGetGraph)
}

func (s *Server[S]) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Compiled Graph Topology",
		mcp.WithMIMEType("application/json"),
	), func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Topology())
		if err != nil {
			return nil, fmt.Errorf("failed to encode topology: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func (s *Server[S]) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var input S
	if raw := request.GetString("state", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid state: %v", err)), nil
		}
	}

	var opts []domain.RunOption
	if request.GetBool("resume", false) {
		opts = append(opts, domain.Resume())
	}
	if raw := request.GetString("interrupt_before", ""); raw != "" {
		var nodes []string
		if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid interrupt_before: %v", err)), nil
		}
		opts = append(opts, domain.InterruptBefore(nodes...))
	}

	res, err := s.engine.Run(ctx, id, input, opts...)
	if err != nil {
		s.logger.Warn("MCP run failed", "session_id", id, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server[S]) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.engine.State(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session '%s' not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return jsonResult(snap)
}

func (s *Server[S]) handleGetGraph(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topo := s.engine.Topology()
	if request.GetString("format", "json") == "mermaid" {
		return mcp.NewToolResultText(graph.GenerateMermaid(topo, nil)), nil
	}
	return jsonResult(topo)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
