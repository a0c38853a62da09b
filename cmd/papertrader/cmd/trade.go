package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrader/ledger"
)

// newTradeCmd builds the buy or sell command.
func newTradeCmd(o *options, verb string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " <account> <symbol> <quantity>",
		Short: fmt.Sprintf("Place a market order to %s shares", verb),
		Long: fmt.Sprintf(`Place a market order to %[1]s whole shares at the current quote.
The fill price is fetched from the quote provider when the order is placed.

Examples:
  papertrader %[1]s alice AAPL 10
  papertrader %[1]s acct_01HV... MSFT 5`, verb),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := ledger.ParseSide(verb)
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: quantity %q is not a whole number", ledger.ErrInvalidInput, args[2])
			}

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

			res, err := a.engine.PlaceMarketOrder(ctx, acct.ID, args[1], qty, side)
			if err != nil {
				return err
			}

			t := res.Transaction
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ %s %d %s @ %s = %s\n", t.Side, t.Quantity, t.Symbol, t.Price.StringFixed(2), t.Total.StringFixed(2))
			fmt.Fprintf(out, "  Cash:     %s %s\n", res.Cash.StringFixed(2), acct.Currency)
			fmt.Fprintf(out, "  Position: %d %s (avg cost %s)\n", res.Position.Quantity, res.Position.Symbol, res.Position.AvgCost.StringFixed(2))
			return nil
		},
	}

	return cmd
}
