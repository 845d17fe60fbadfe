package commands

import (
	"fmt"

	"github.com/dvloznov/finance-dashboard/internal/summary"
	"github.com/spf13/cobra"
)

func newSummaryCommand(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals and the expense breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSummary(cmd, month)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "restrict to one month, MM/YYYY")

	return cmd
}

func (a *app) runSummary(cmd *cobra.Command, month string) error {
	ctx := a.context(cmd)
	out := cmd.OutOrStdout()

	repo, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	records, err := repo.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	report := summary.BuildReport(records, month)
	s := report.Summary

	header(out, "Summary ("+report.Month+")")
	field(out, "Transactions", s.TransactionCount)
	money(out, "Income", summary.FormatBRL(s.TotalIncome), false)
	money(out, "Expenses", summary.FormatBRL(s.TotalExpenses.Neg()), s.TotalExpenses.IsPositive())
	money(out, "Balance", summary.FormatBRL(s.Balance), s.Balance.IsNegative())
	field(out, "Savings rate", report.SavingsRate.String()+"%")

	if len(report.Categories) > 0 {
		header(out, "Expenses by category")
		for _, b := range report.Categories {
			fmt.Fprintf(out, "  %-16s %14s  %6s%%\n", b.Label, summary.FormatBRL(b.Value), b.Percentage.StringFixed(2))
		}
	}

	if len(report.TopExpenses) > 0 {
		header(out, "Top expenses")
		for i, r := range report.TopExpenses {
			fmt.Fprintf(out, "  %d. %s  %s  %s\n", i+1, r.Date, summary.FormatBRL(r.Amount), r.Description)
		}
	}
	return nil
}
