package main

import (
	"github.com/lightningshop/jobtrack/internal/scheduler"
	"github.com/lightningshop/jobtrack/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.WithLogger(zapEventLogger),
				infrastructure(),
				domains(),
				server.Module,
				scheduler.Loop,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
