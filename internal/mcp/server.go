// Package mcp implements a Model Context Protocol server exposing the revisar
// pipeline as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/revisar/internal/config"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "revisar"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"

	// toolCount is the expected number of registered tools.
	toolCount = 3
)

// ServerDeps holds injectable dependencies for the MCP server.
type ServerDeps struct {
	// Config carries the pipeline settings tools run with.
	Config *config.Config

	// Parser is the shared syntax parser.
	Parser *syntax.Parser

	// Providers supplies the logger, tracer, and meter. Zero value disables
	// instrumentation.
	Providers observability.Providers
}

// Server wraps the MCP SDK server with revisar tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	deps    ServerDeps
	metrics *observability.StageMetrics
	mu      sync.RWMutex
	tools   []string
}

// NewServer creates a new MCP server with all revisar tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Providers.Logger != nil {
		opts.Logger = deps.Providers.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		opts,
	)

	srv := &Server{
		inner: inner,
		deps:  deps,
		tools: make([]string, 0, toolCount),
	}

	if deps.Providers.Meter != nil {
		metrics, err := observability.NewStageMetrics(deps.Providers.Meter)
		if err == nil {
			srv.metrics = metrics
		}
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all revisar MCP tools to the server.
func (s *Server) registerTools() {
	register(s, ToolNameMine, mineToolDescription, s.handleMine)
	register(s, ToolNameClusters, clustersToolDescription, s.handleClusters)
	register(s, ToolNameApply, applyToolDescription, s.handleApply)
}

func register[Input any](
	s *Server,
	name, description string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, withMetrics(s.metrics, name, withTracing(s.deps.Providers.Tracer, name, handler)))

	s.mu.Lock()
	s.tools = append(s.tools, name)
	s.mu.Unlock()
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// withTracing wraps an MCP tool handler to create an OTel span per invocation.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		return handler(ctx, req, input)
	}
}

// withMetrics wraps an MCP tool handler to record per-invocation metrics.
func withMetrics[Input any](
	metrics *observability.StageMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordStage(ctx, mcpSpanPrefix+toolName, status, time.Since(start))

		return result, output, err
	}
}

// Tool description constants.
const (
	mineToolDescription = "Mine git repositories for code edits: walk each " +
		"revision history, diff changed files, and extract the smallest " +
		"changed syntax fragments. Saves the edit set artifact and returns " +
		"extraction statistics."

	clustersToolDescription = "Cluster a previously mined edit set into groups " +
		"of structurally similar edits. Saves the clusters artifact and " +
		"returns per-group summaries."

	applyToolDescription = "Apply a synthesized transformation template to " +
		"inline source code. Returns the rewritten code and the number of " +
		"rewritten sites."
)
