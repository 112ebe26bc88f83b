package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"saldo/internal/app"
	"saldo/internal/core"
	"saldo/internal/services"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the overview of the active budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if a.Auth.CheckToken(ctx) != services.StatusAuthenticated {
				return errors.New("not logged in; run saldo login first")
			}
			if err := a.RefreshAll(ctx); err != nil {
				return err
			}
			printOverview(cmd.OutOrStdout(), a.Dashboard())
			return nil
		},
	}
}

func printOverview(out io.Writer, o core.Overview) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if o.ActiveBudget != nil {
		fmt.Fprintf(tw, "Budget\t%s\n", o.ActiveBudget.Label())
		fmt.Fprintf(tw, "Planned income\t%s\n", core.FormatAmount(o.ActiveBudget.TotalPlannedIncome))
	} else {
		fmt.Fprintln(tw, "Budget\tnone active")
	}
	fmt.Fprintf(tw, "Income\t%s\n", core.FormatAmount(o.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", core.FormatAmount(o.TotalExpenses))
	fmt.Fprintf(tw, "Savings\t%s\n", core.FormatAmount(o.TotalSavings))
	fmt.Fprintf(tw, "Balance\t%s\n", core.FormatAmount(o.Balance))
	fmt.Fprintf(tw, "Spent\t%s%%\n", o.SpentPercent.String())

	if len(o.Categories) == 0 {
		return
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CATEGORY\tSPENT\tTARGET\t%")
	for _, c := range o.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			c.Category.Name, core.FormatAmount(c.Spent), core.FormatAmount(c.Category.TargetAmount), c.Percent.String())
	}
}
