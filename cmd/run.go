package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mj1618/gridcheck/internal/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Scenario is a named list of step phrases.
type Scenario struct {
	Name  string   `yaml:"name"`
	Steps []string `yaml:"steps"`
}

var runCmd = &cobra.Command{
	Use:   "run [scenario.yaml]",
	Short: "Run a scenario of step phrases",
	Long: `Run step phrases in order from a YAML file, or from stdin when no file is
given or the file is "-". The scenario is either a plain list of phrases or a
map with name and steps. By default execution stops on the first failure.

Example:
  gridcheck run <<'EOF'
  name: users pagination
  steps:
    - Given I open the "users" page
    - Then the pagination control should be visible and functional
    - When I go to page number "3" using the pagination bar
    - Then I should find row with "Name" value "${user}" in the table
  EOF`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("stop-on-error", true, "Stop execution on first error (default: true)")
}

func runRun(cmd *cobra.Command, args []string) error {
	stopOnError, _ := cmd.Flags().GetBool("stop-on-error")

	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	} else if data, err = os.ReadFile(args[0]); err != nil {
		return fmt.Errorf("failed to read scenario: %w", err)
	}

	sc, err := parseScenario(data)
	if err != nil {
		return err
	}

	return withSession(cmd, func(s *session) error {
		s.logger.Info().Str("scenario", sc.Name).Int("steps", len(sc.Steps)).Msg("Running scenario")
		results, passed, runErr := s.engine.RunAll(cmd.Context(), sc.Steps, stopOnError)
		res := output.RunResult{
			OK:        runErr == nil,
			Steps:     len(sc.Steps),
			Completed: passed,
			Results:   results,
			Summary:   s.recorder.Summary(),
		}
		if runErr != nil {
			res.Error = runErr.Error()
		}
		if err := output.Print(res); err != nil {
			return err
		}
		if runErr != nil {
			return fmt.Errorf("scenario failed: %w", runErr)
		}
		return nil
	})
}

// parseScenario accepts a plain list of phrases or a {name, steps} map.
// Blank phrases are dropped.
func parseScenario(data []byte) (*Scenario, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("no steps provided: expected a YAML list of step phrases")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML scenario: %w", err)
	}

	sc := &Scenario{}
	var err error
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		err = node.Content[0].Decode(&sc.Steps)
	} else {
		err = node.Decode(sc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML scenario: %w", err)
	}

	kept := sc.Steps[:0]
	for _, s := range sc.Steps {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	sc.Steps = kept
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("no steps provided: expected a YAML list of step phrases")
	}
	return sc, nil
}
