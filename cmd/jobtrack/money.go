package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lightningshop/jobtrack/internal/money"
	"github.com/spf13/cobra"
)

func newMoneyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "money",
		Short: "Format and parse currency amounts",
	}
	cmd.AddCommand(newMoneyFormatCommand(), newMoneyParseCommand())
	return cmd
}

func newMoneyFormatCommand() *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:     "format <cents>",
		Short:   "Render integer cents as a currency string",
		Example: "  jobtrack money format 123450\n  jobtrack money format --currency EUR -- -500",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("cents must be an integer: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), money.FormatCents(cents, currency))
			return err
		},
	}
	cmd.Flags().StringVar(&currency, "currency", money.DefaultCurrency, "ISO 4217 currency code")
	return cmd
}

func newMoneyParseCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:     "parse <amount>",
		Short:   "Turn free text such as \"$1,234.50\" into cents",
		Example: "  jobtrack money parse '$1,234.50'\n  jobtrack money parse --strict 12abc",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strict {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), money.CentsFromAmount(args[0]))
				return err
			}
			cents, err := money.ParseCents(args[0])
			if err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cents)
			return err
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on input that is not an amount instead of printing 0")
	return cmd
}
