package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/market"
)

func newChartCmd(o *options) *cobra.Command {
	var (
		rangeFlag string
		rows      int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "chart <symbol>",
		Short: "Show price history with SMA, EMA, RSI and Bollinger overlays",
		Long: `Fetch price history for a range and compute indicator overlays.

Ranges: 1d, 5d, 1mo, 3mo, 6mo, 1y, 5y

Examples:
  papertrader chart AAPL --range 6mo
  papertrader chart AAPL --json > aapl.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := market.ParseRange(rangeFlag)
			if err != nil {
				return err
			}

			a, err := o.newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.charts.Chart(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			}

			fmt.Fprintf(out, "%s %s (%s bars, %d total)  last %.2f\n\n", c.Symbol, c.Range, c.Interval, len(c.Candles), c.Quote.Price)

			start := len(c.Candles) - rows
			if start < 0 || rows <= 0 {
				start = 0
			}
			ov := c.Overlays
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "TIME\tCLOSE\tSMA20\tSMA50\tEMA20\tRSI14\tBB LOW\tBB HIGH\t")
			for i := start; i < len(c.Candles); i++ {
				fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					c.Candles[i].Time.Local().Format("2006-01-02 15:04"), c.Candles[i].Close,
					cell(ov.SMA20, i), cell(ov.SMA50, i), cell(ov.EMA20, i), cell(ov.RSI14, i),
					cell(ov.Bollinger.Lower, i), cell(ov.Bollinger.Upper, i))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&rangeFlag, "range", "r", string(market.DefaultRange), "chart range")
	cmd.Flags().IntVarP(&rows, "rows", "n", 20, "rows to print, most recent last (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the full chart as JSON")
	return cmd
}

func cell(s indicators.Series, i int) string {
	if i >= len(s) || s[i] == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *s[i])
}
