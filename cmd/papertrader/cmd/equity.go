package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrader/journal"
)

func newEquityCmd(o *options) *cobra.Command {
	var (
		limit    int
		asCSV    bool
		snapshot bool
	)

	cmd := &cobra.Command{
		Use:   "equity <account>",
		Short: "Show an account's recorded equity curve",
		Long: `Show equity snapshots newest first.

--snapshot values the account now and records a snapshot before listing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			acct, err := a.resolveAccount(ctx, args[0])
			if err != nil {
				return err
			}
			if snapshot {
				if _, err := a.engine.Snapshot(ctx, acct.ID); err != nil {
					return err
				}
			}
			snaps, err := a.engine.EquityHistory(ctx, acct.ID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				return journal.WriteEquityCSV(out, snaps)
			}
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No equity snapshots yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "TIME\tCASH\tHOLDINGS\tTOTAL\t")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
					s.Time.Local().Format("2006-01-02 15:04"), s.Cash.StringFixed(2),
					s.HoldingsValue.StringFixed(2), s.TotalValue.StringFixed(2))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum snapshots to show (0 = history limit)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "record a snapshot first")
	return cmd
}
