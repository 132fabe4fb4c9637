package cmd

import (
	"errors"
	"strings"

	"github.com/mj1618/gridcheck/internal/output"
	"github.com/mj1618/gridcheck/internal/steps"
	"github.com/spf13/cobra"
)

var stepCmd = &cobra.Command{
	Use:   "step <phrase>",
	Short: "Run one step phrase",
	Long: `Run one step phrase against a fresh driver session. Arguments are quoted.
Use --driver chrome with driver.remote_url to keep a browser open between
invocations, or run several phrases at once with "gridcheck run".

Examples:
  gridcheck step 'I open the "users" page'
  gridcheck --driver htmldoc --document grid.html step 'I go to the last page'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStep,
}

func init() {
	rootCmd.AddCommand(stepCmd)
}

func runStep(cmd *cobra.Command, args []string) error {
	line := strings.Join(args, " ")
	return withSession(cmd, func(s *session) error {
		res, err := s.engine.Run(cmd.Context(), line)
		var unknown *steps.UnknownStepError
		if errors.As(err, &unknown) {
			return err
		}
		if perr := output.Print(res); perr != nil {
			return perr
		}
		return err
	})
}
