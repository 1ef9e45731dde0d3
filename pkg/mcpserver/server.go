// Package mcpserver exposes the loaded tools as MCP tools, keeping the MCP
// tool list in step with registry reloads.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-toolbox/pkg/middleware"
	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

const serverName = "toolbox"

// Invoker runs one tool.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (*query.Result, error)
}

// Server wraps an MCP server whose tools mirror the registry's current snapshot.
type Server struct {
	mcp     *mcp.Server
	reg     *registry.Registry
	invoker Invoker

	toolset   string
	transport string

	mu         sync.Mutex
	registered map[string]bool
}

// Option configures a Server.
type Option func(*Server)

// WithToolset exposes only the named toolset. The default exposes every tool.
func WithToolset(name string) Option {
	return func(s *Server) {
		s.toolset = name
	}
}

// WithTransport sets the transport label carried into audit events and metrics.
func WithTransport(transport string) Option {
	return func(s *Server) {
		s.transport = transport
	}
}

// New creates the MCP server and registers the current tools. Later reloads
// of reg replace the tool list.
func New(reg *registry.Registry, invoker Invoker, opts ...Option) *Server {
	s := &Server{
		reg:        reg,
		invoker:    invoker,
		transport:  middleware.TransportMCP,
		registered: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: reg.Version(),
	}, &mcp.ServerOptions{
		Instructions: "Each tool runs a parameterized statement against a configured data source.",
	})
	s.mcp.AddReceivingMiddleware(
		middleware.MCPCallContextMiddleware(s.transport),
		middleware.MCPLoggingMiddleware(),
	)
	s.registerResourceTemplates()

	reg.OnSwap(s.sync)
	if snap := reg.Current(); snap != nil {
		s.sync(snap)
	}
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// HTTPHandler serves the MCP streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
}

// RunStdio serves MCP over stdin/stdout until ctx ends or the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("running stdio server: %w", err)
	}
	return nil
}

// Tools returns the registered MCP tool names, sorted.
func (s *Server) Tools() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.registered))
	for name := range s.registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sync replaces the MCP tool list with the tools of snap.
func (s *Server) sync(snap *registry.Snapshot) {
	names, err := snap.ListToolset(s.toolset)
	if err != nil {
		slog.Error("mcp toolset unavailable, keeping previous tools", "toolset", s.toolset, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]bool, len(names))
	for _, name := range names {
		t, err := snap.Get(name)
		if err != nil {
			continue
		}
		s.mcp.AddTool(mcpTool(t), s.handle(name))
		next[name] = true
	}

	var stale []string
	for name := range s.registered {
		if !next[name] {
			stale = append(stale, name)
		}
	}
	if len(stale) > 0 {
		s.mcp.RemoveTools(stale...)
	}
	s.registered = next
	slog.Info("mcp tools registered", "count", len(next), "removed", len(stale), "generation", snap.Generation())
}

func mcpTool(t *tools.Tool) *mcp.Tool {
	mutates := t.Mutates()
	readOnly := !mutates
	return &mcp.Tool{
		Name:        t.Spec.Name,
		Description: t.Spec.Description,
		InputSchema: t.InputSchema(),
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    readOnly,
			IdempotentHint:  readOnly,
			DestructiveHint: &mutates,
		},
	}
}

func (s *Server) handle(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := middleware.ExtractArguments(req.Params)
		if err != nil {
			return errorResult(toolerr.Wrap(toolerr.KindInvalidArgument, err, "invalid arguments")), nil
		}

		result, err := s.invoker.Invoke(ctx, name, args)
		if err != nil {
			return errorResult(err), nil
		}

		body, err := json.Marshal(result.Payload())
		if err != nil {
			return errorResult(toolerr.Wrap(toolerr.KindInternal, err, "encoding result")), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
		}, nil
	}
}

// errorResult reports a failed invocation to the client as tool output so
// the model can react to it.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
