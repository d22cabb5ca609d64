package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version is set via -ldflags.
var Version = "dev"

func newRootCommand() *cobra.Command {
	var settingsFile string

	root := &cobra.Command{
		Use:   "jobtrack",
		Short: "Job costing and invoicing for a small contracting shop",
		Long: `jobtrack keeps jobs, their costs, invoices and payments in one place.

Invoice totals and statuses are always derived from lines and payments,
so what you see over the API, in an exported PDF, or from the CLI is the
same figure.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if path := strings.TrimSpace(settingsFile); path != "" {
				_ = os.Setenv("SETTINGS_FILE", path)
			}
		},
	}
	root.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (default ./jobtrack.yml or /etc/jobtrack/jobtrack.yml)")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSnapshotCommand(),
		newExportCommand(),
		newSweepCommand(),
		newMoneyCommand(),
	)
	return root
}
