package cmd

import (
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	logLevel   string
	dbPath     string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "papertrader",
		Short: "A paper-trading simulator for stocks",
		Long: `Papertrader simulates stock trading with virtual cash.

It provides tools for:
  - Opening accounts funded with virtual cash
  - Buying and selling at live market prices
  - Valuing portfolios and tracking equity over time
  - Looking up quotes, symbols and indicator charts
  - Serving all of the above over an HTTP API`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML or JSON)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the SQLite database")

	root.AddCommand(
		newServeCmd(opts),
		newAccountCmd(opts),
		newTradeCmd(opts, "buy"),
		newTradeCmd(opts, "sell"),
		newSummaryCmd(opts),
		newHistoryCmd(opts),
		newEquityCmd(opts),
		newQuoteCmd(opts),
		newSearchCmd(opts),
		newChartCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
