package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSummaryCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <account>",
		Short: "Value an account's portfolio at current prices",
		Args:  cobra.ExactArgs(1),
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
			s, err := a.engine.Summary(cmd.Context(), acct.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) as of %s\n\n", s.Name, s.AccountID, s.AsOf.Format("2006-01-02 15:04:05 MST"))

			if len(s.Holdings) > 0 {
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "SYMBOL\tQTY\tAVG COST\tPRICE\tVALUE\tP/L\tP/L %\tDAY %\t")
				for _, h := range s.Holdings {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%.2f\t\n",
						h.Symbol, h.Quantity,
						h.AvgCost.StringFixed(2), h.Price.StringFixed(2), h.MarketValue.StringFixed(2),
						h.Profit.StringFixed(2), h.ProfitPercent.StringFixed(2), h.DayChangePct)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			if len(s.Unpriced) > 0 {
				fmt.Fprintf(out, "Unpriced (quote unavailable): %s\n\n", strings.Join(s.Unpriced, ", "))
			}

			fmt.Fprintf(out, "Cash:        %s %s\n", s.Cash.StringFixed(2), s.Currency)
			fmt.Fprintf(out, "Holdings:    %s %s\n", s.HoldingsValue.StringFixed(2), s.Currency)
			fmt.Fprintf(out, "Total:       %s %s\n", s.TotalValue.StringFixed(2), s.Currency)
			fmt.Fprintf(out, "Profit/Loss: %s %s (%s%%)\n", s.TotalProfit.StringFixed(2), s.Currency, s.TotalProfitPercent.StringFixed(2))
			return nil
		},
	}
}
