package main

import (
	"context"
	"fmt"

	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/lightningshop/jobtrack/internal/migration"
	"github.com/lightningshop/jobtrack/internal/observability"
	"github.com/lightningshop/jobtrack/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			opts := fx.Options(
				config.Module,
				observability.Module,
				db.Module,
				migration.Module,
				fx.Populate(&cfg),
			)
			return runOnce(cmd.Context(), opts, func(context.Context) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.DBType)
				return err
			})
		},
	}
}
