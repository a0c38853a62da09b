package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAccountCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Open and inspect accounts",
		Long: `Manage paper-trading accounts.

Subcommands:
  open <name>  - Open an account funded with the initial balance
  list         - List all accounts
  show <id>    - Show one account by ID or name`,
	}

	open := &cobra.Command{
		Use:   "open <name>",
		Short: "Open a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.engine.OpenAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Opened account %s (%s) with %s %s\n",
				acct.Name, acct.ID, acct.Cash.StringFixed(2), acct.Currency)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			accounts, err := a.engine.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts. Open one with: papertrader account open <name>")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCASH\tCREATED")
			for _, acct := range accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n",
					acct.ID, acct.Name, acct.Cash.StringFixed(2), acct.Currency, acct.CreatedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show one account",
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
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account:  %s (%s)\n", acct.Name, acct.ID)
			fmt.Fprintf(out, "Cash:     %s %s\n", acct.Cash.StringFixed(2), acct.Currency)
			fmt.Fprintf(out, "Initial:  %s %s\n", acct.InitialBalance.StringFixed(2), acct.Currency)
			fmt.Fprintf(out, "Opened:   %s\n", acct.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}

	cmd.AddCommand(open, list, show)
	return cmd
}
