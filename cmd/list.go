package cmd

import (
	"github.com/mj1618/gridcheck/internal/config"
	"github.com/mj1618/gridcheck/internal/objrepo"
	"github.com/mj1618/gridcheck/internal/output"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/report"
	"github.com/mj1618/gridcheck/internal/steps"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
)

var listCmd = &cobra.Command{
	Use:     "steps",
	Aliases: []string{"list"},
	Short:   "List the step phrases",
	Long:    "List every step phrase the engine understands. {string} marks a quoted argument.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Print(phrases())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// phrases lists the registered patterns without starting a driver.
func phrases() []string {
	logger := arbor.NewNoOpLogger()
	e := steps.New(&platform.Provider{}, config.Default(), objrepo.Empty(), report.New(nil, nil, logger), logger)
	return e.Phrases()
}
