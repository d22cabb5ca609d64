package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/lightningshop/jobtrack/internal/export"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/money"
	"github.com/lightningshop/jobtrack/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newSnapshotCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "snapshot <invoice-id>",
		Short: "Print the computed totals of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				invoices invoicedomain.Service
				settings *config.SettingsHolder
			)
			opts := fx.Options(
				infrastructure(),
				domains(),
				fx.Populate(&invoices, &settings),
			)
			return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
				snap, err := invoices.Snapshot(ctx, args[0])
				if err != nil {
					return err
				}
				if snap == nil {
					return fmt.Errorf("invoice %s: %w", args[0], invoicedomain.ErrNotFound)
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				}
				return printSnapshot(cmd.OutOrStdout(), *snap, settings.Get().Currency)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full snapshot as JSON")
	return cmd
}

func printSnapshot(w io.Writer, snap invoicedomain.Snapshot, currency string) error {
	rows := []struct {
		label string
		cents int64
	}{
		{"Subtotal", snap.SubtotalCents},
		{"Tax", snap.TaxCents},
		{"Discount", snap.DiscountCents},
		{"Total", snap.TotalCents},
		{"Paid", snap.PaidCents},
		{"Balance", snap.BalanceCents},
	}

	if _, err := fmt.Fprintf(w, "%s  %s\n", snap.Invoice.InvoiceNumber, snap.Invoice.Status); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-10s %12s\n", row.label, money.FormatCents(row.cents, currency)); err != nil {
			return err
		}
	}
	return nil
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <invoice-id>",
		Short: "Render an invoice to PDF and store it in the artifact store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var exporter *export.Service
			opts := fx.Options(
				infrastructure(),
				domains(),
				fx.Populate(&exporter),
			)
			return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
				artifact, err := exporter.ExportPDF(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s\n", artifact.Key, artifact.Size, artifact.Location)
				return err
			})
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile every invoice status with its lines and payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sched *scheduler.Scheduler
			opts := fx.Options(
				infrastructure(),
				domains(),
				fx.Populate(&sched),
			)
			return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
				res, err := sched.RunOnce(ctx)
				if _, printErr := fmt.Fprintf(cmd.OutOrStdout(), "checked %d, repaired %d, failed %d\n", res.Checked, res.Repaired, res.Failed); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
}
