package cmd

import (
	"fmt"

	"github.com/mj1618/gridcheck/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the step engine",
	Long: `Start a Model Context Protocol (MCP) server with one driver session. Agents
call run_step, run_scenario, list_steps and summary as tools; steps run one at
a time against the same page.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  gridcheck serve --config gridcheck.yaml
  gridcheck serve --transport streamable-http --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transport == "stdio" {
		// stdout carries the protocol.
		cfg.Logging.Output = fileOutputs(cfg.Logging.Output)
	}

	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer s.Close()

	srv := server.New(s.engine, s.recorder, s.logger)
	return srv.Serve(server.Config{Transport: transport, Port: port})
}

func fileOutputs(outputs []string) []string {
	var kept []string
	for _, o := range outputs {
		if o == "file" {
			kept = append(kept, o)
		}
	}
	return kept
}
