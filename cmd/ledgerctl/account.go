package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	ledgerv1 "github.com/JoeShih716/go-fee-ledger/api/ledger/v1"
)

func (c *cli) newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <holder name>",
		Short: "Open a new account",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.OpenAccount(ctx, &ledgerv1.OpenAccountRequest{HolderName: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened account %d for %s\n", resp.Account.AccountID, resp.Account.HolderName)
			return nil
		},
	}
}

func (c *cli) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <account id>",
		Short: "Show an account with its balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.GetAccount(ctx, &ledgerv1.GetAccountRequest{AccountID: id})
			if err != nil {
				return err
			}
			c.printAccounts(cmd, resp.Account)
			return nil
		},
	}
}

func (c *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.ListAccounts(ctx, &ledgerv1.ListAccountsRequest{})
			if err != nil {
				return err
			}
			if len(resp.Accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts")
				return nil
			}
			c.printAccounts(cmd, resp.Accounts...)
			return nil
		},
	}
}

func (c *cli) newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <account id> <holder name>",
		Short: "Change the holder name of an account",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			name := strings.Join(args[1:], " ")
			if _, err := c.client.RenameAccount(ctx, &ledgerv1.RenameAccountRequest{AccountID: id, HolderName: name}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %d renamed to %s\n", id, name)
			return nil
		},
	}
}

func (c *cli) newCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <account id>",
		Short: "Close an account with zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			if _, err := c.client.CloseAccount(ctx, &ledgerv1.CloseAccountRequest{AccountID: id}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %d closed\n", id)
			return nil
		},
	}
}

func (c *cli) printAccounts(cmd *cobra.Command, accounts ...*ledgerv1.Account) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHOLDER\tBALANCE\tOPENED")
	for _, a := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			a.AccountID,
			a.HolderName,
			c.display(a.Balance),
			time.Unix(0, a.CreatedAt).Format(time.DateTime),
		)
	}
	w.Flush()
}

func parseAccountID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (int64, error) {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: must be an integer in minor units", s)
	}
	return amount, nil
}
