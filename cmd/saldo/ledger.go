package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"saldo/internal/backend"
	"saldo/internal/core"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the change ledger",
	}
	cmd.AddCommand(ledgerRecentCmd())
	return cmd
}

func ledgerRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent ledger rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(logger).CreateLedger(cmd.Context(), bcfg)
			if err != nil {
				return err
			}
			defer res.Close()

			changes, err := res.Ledger.RecentChanges(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintln(tw, "WHEN\tCOLLECTION\tOP\tID\tAMOUNT\tLABEL")
			for _, c := range changes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					c.OccurredAt.Format("2006-01-02 15:04"), c.Collection, c.Operation, c.EntityID, core.FormatAmount(c.Amount), c.Label)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of rows")
	return cmd
}
