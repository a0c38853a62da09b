package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrader/journal"
)

func newHistoryCmd(o *options) *cobra.Command {
	var (
		limit int
		asCSV bool
	)

	cmd := &cobra.Command{
		Use:   "history <account>",
		Short: "List an account's most recent transactions",
		Long: `List transactions newest first. The limit is capped at journal.history_limit.

Examples:
  papertrader history alice --limit 10
  papertrader history alice --csv > alice.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.resolveAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			txs, err := a.engine.Transactions(cmd.Context(), acct.ID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				return journal.WriteTransactionsCSV(out, txs)
			}
			if len(txs) == 0 {
				fmt.Fprintln(out, "No transactions.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSIDE\tSYMBOL\tQTY\tPRICE\tTOTAL")
			for _, t := range txs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					t.ExecutedAt.Local().Format("2006-01-02 15:04:05"), t.Side, t.Symbol, t.Quantity,
					t.Price.StringFixed(2), t.Total.StringFixed(2))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum transactions to show (0 = history limit)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}
