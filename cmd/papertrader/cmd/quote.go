package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newQuoteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>...",
		Short: "Show current quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tPRICE\tCHANGE\tHIGH\tLOW\tVOLUME\tNAME")
			for _, sym := range args {
				q, err := a.market.Quote(cmd.Context(), sym)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%.2f\t%+.2f (%+.2f%%)\t%.2f\t%.2f\t%d\t%s\n",
					q.Symbol, q.Price, q.Change, q.ChangePercent, q.DayHigh, q.DayLow, q.Volume, q.Name)
			}
			return tw.Flush()
		},
	}
}

func newSearchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search for symbols by name or ticker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.market.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tTYPE\tEXCHANGE\tNAME")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Symbol, r.Type, r.Exchange, r.Name)
			}
			return tw.Flush()
		},
	}
}
