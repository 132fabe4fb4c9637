// Package server exposes the step engine as MCP tools so an agent can drive
// a session one phrase at a time.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/gridcheck/internal/report"
	"github.com/mj1618/gridcheck/internal/steps"
	"github.com/mj1618/gridcheck/internal/version"
	"github.com/ternarybob/arbor"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
}

// Server wraps the MCP server around one step engine. The engine serializes
// step execution, so concurrent tool calls run one at a time.
type Server struct {
	engine   *steps.Engine
	recorder *report.Recorder
	logger   arbor.ILogger
	mcp      *mcpserver.MCPServer
}

// New creates an MCP server with the step tools registered.
func New(engine *steps.Engine, recorder *report.Recorder, logger arbor.ILogger) *Server {
	s := &Server{
		engine:   engine,
		recorder: recorder,
		logger:   logger,
		mcp: mcpserver.NewMCPServer(
			"gridcheck",
			version.Version,
			mcpserver.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// Serve blocks serving the configured transport.
func (s *Server) Serve(cfg Config) error {
	s.logger.Info().Str("transport", cfg.Transport).Int("port", cfg.Port).Msg("Starting MCP server")
	switch cfg.Transport {
	case "stdio", "":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("run_step",
			mcp.WithDescription("Run one step phrase against the open page. Arguments are quoted, e.g. I go to page number \"3\" using the pagination bar. A screenshot is saved for every step."),
			mcp.WithString("step", mcp.Required(), mcp.Description("Step text; a leading Given/When/Then/And/But is ignored")),
		),
		s.handleRunStep,
	)

	s.mcp.AddTool(
		mcp.NewTool("list_steps",
			mcp.WithDescription("List the step phrases the engine understands. {string} marks a quoted argument."),
		),
		s.handleListSteps,
	)

	s.mcp.AddTool(
		mcp.NewTool("run_scenario",
			mcp.WithDescription("Run several step phrases in order and return a result per step with a pass/fail summary"),
			mcp.WithArray("steps", mcp.Required(), mcp.WithStringItems(), mcp.Description("Step phrases in execution order")),
			mcp.WithBoolean("stop_on_error", mcp.Description("Stop on first failure (default: true)")),
		),
		s.handleRunScenario,
	)

	s.mcp.AddTool(
		mcp.NewTool("summary",
			mcp.WithDescription("Pass/fail totals for every step run in this session"),
		),
		s.handleSummary,
	)
}
