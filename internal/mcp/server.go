// Package mcp exposes the manual preference operations and the dynamic plan
// preview as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/af-corp/aegis-modelplan/internal/preferences"
	"github.com/af-corp/aegis-modelplan/internal/telemetry"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

// Planner previews dynamic plans.
type Planner interface {
	Plan(ctx context.Context) (*types.DynamicPlan, error)
}

// Server wraps the MCP server with the preference tool and the planner.
type Server struct {
	mcpServer *mcpserver.MCPServer
	tool      *preferences.Tool
	planner   Planner
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// New creates the MCP server and registers its tools. metrics may be nil.
func New(tool *preferences.Tool, planner Planner, metrics *telemetry.Metrics, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		tool:    tool,
		planner: planner,
		metrics: metrics,
		logger:  logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"modelplan",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("model_preferences",
			mcplib.WithDescription("Show, preview, apply or reset the manual per-agent model plan in oh-my-opencode-slim.json. "+
				"apply writes the configuration (with a .bak backup) and requires confirm=true."),
			mcplib.WithString("operation",
				mcplib.Description("Operation to run"),
				mcplib.Required(),
				mcplib.Enum(preferences.Operations...),
			),
			mcplib.WithObject("plan",
				mcplib.Description("Manual plan for plan/apply: {agent: {primary, fallback1, fallback2, fallback3}} for every agent ("+
					strings.Join(types.RoleNames(), ", ")+")"),
			),
			mcplib.WithString("agent",
				mcplib.Description("Agent to reset for reset-agent"),
				mcplib.Enum(types.RoleNames()...),
			),
			mcplib.WithBoolean("confirm",
				mcplib.Description("Must be true for apply"),
			),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handlePreferences,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("model_plan",
			mcplib.WithDescription("Preview the automatic per-agent model plan built from the model catalog and benchmark signals. Nothing is written."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handlePlan,
	)
}

func (s *Server) handlePreferences(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := preferences.Args{
		Operation: request.GetString("operation", ""),
		Plan:      request.GetArguments()["plan"],
		Agent:     request.GetString("agent", ""),
		Confirm:   request.GetBool("confirm", false),
	}
	if args.Operation == "" {
		return errorResult("operation is required"), nil
	}

	res, err := s.tool.Execute(ctx, args)
	if err != nil {
		s.record(args.Operation, "error")
		s.logger.Error("preference operation failed", "operation", args.Operation, "error", err)
		return errorResult(err.Error()), nil
	}
	s.record(args.Operation, string(res.Outcome))
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: res.Text},
		},
		IsError: res.Outcome != preferences.OutcomeOK,
	}, nil
}

func (s *Server) handlePlan(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	plan, err := s.planner.Plan(ctx)
	if err != nil {
		s.logger.Error("plan preview failed", "error", err)
		return errorResult("plan build failed: " + err.Error()), nil
	}
	if plan == nil {
		return errorResult("no plan: no enabled provider has a candidate model"), nil
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return errorResult("failed to render plan: " + err.Error()), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func (s *Server) record(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPreferenceOp(operation, outcome)
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
