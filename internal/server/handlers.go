package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mj1618/gridcheck/internal/output"
)

func (s *Server) handleRunStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step, err := request.RequireString("step")
	if err != nil || step == "" {
		return mcp.NewToolResultError("step is required"), nil
	}

	res, err := s.engine.Run(ctx, step)
	if err != nil {
		s.logger.Warn().Str("step", step).Err(err).Msg("Step failed")
		if res == nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(output.YAMLString(res)), nil
	}
	return mcp.NewToolResultText(output.YAMLString(res)), nil
}

func (s *Server) handleListSteps(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(output.YAMLString(s.engine.Phrases())), nil
}

func (s *Server) handleRunScenario(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines := request.GetStringSlice("steps", nil)
	if len(lines) == 0 {
		return mcp.NewToolResultError("steps is required"), nil
	}
	stopOnError := request.GetBool("stop_on_error", true)

	results, passed, err := s.engine.RunAll(ctx, lines, stopOnError)
	run := output.RunResult{
		OK:        err == nil,
		Steps:     len(lines),
		Completed: passed,
		Results:   results,
		Summary:   s.recorder.Summary(),
	}
	if err != nil {
		run.Error = err.Error()
		return mcp.NewToolResultError(output.YAMLString(run)), nil
	}
	return mcp.NewToolResultText(output.YAMLString(run)), nil
}

func (s *Server) handleSummary(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(output.YAMLString(s.recorder.Summary())), nil
}
