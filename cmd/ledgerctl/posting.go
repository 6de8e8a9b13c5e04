package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	ledgerv1 "github.com/JoeShih716/go-fee-ledger/api/ledger/v1"
)

func (c *cli) newDepositCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <account id> <amount>",
		Short: "Deposit into an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.Deposit(ctx, &ledgerv1.DepositRequest{AccountID: id, Amount: amount})
			if err != nil {
				return err
			}
			c.printPosting(cmd, resp)
			return nil
		},
	}
}

func (c *cli) newWithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <account id> <amount>",
		Short: "Withdraw from an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.Withdraw(ctx, &ledgerv1.WithdrawRequest{AccountID: id, Amount: amount})
			if err != nil {
				return err
			}
			c.printPosting(cmd, resp)
			return nil
		},
	}
}

func (c *cli) newTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <source id> <destination id> <amount>",
		Short: "Transfer between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			to, err := parseAccountID(args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.Transfer(ctx, &ledgerv1.TransferRequest{
				SourceAccountID:      from,
				DestinationAccountID: to,
				Amount:               amount,
			})
			if err != nil {
				return err
			}
			c.printPosting(cmd, resp)
			return nil
		},
	}
}

func (c *cli) newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account id>",
		Short: "Show the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.GetBalance(ctx, &ledgerv1.GetBalanceRequest{AccountID: id})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.display(resp.Balance))
			return nil
		},
	}
}

func (c *cli) newStatementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statement <account id>",
		Short: "Show the entries of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			resp, err := c.client.GetStatement(ctx, &ledgerv1.GetStatementRequest{AccountID: id})
			if err != nil {
				return err
			}
			if len(resp.Entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
			for _, e := range resp.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					time.Unix(0, e.CreatedAt).Format(time.DateTime),
					e.Type,
					e.Category,
					c.display(e.Amount),
					e.Description,
				)
			}
			return w.Flush()
		},
	}
}

func (c *cli) printPosting(cmd *cobra.Command, resp *ledgerv1.PostingResponse) {
	if resp.CurrentBalance == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "OK  fee %s  balance unavailable\n", c.display(resp.Fee))
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK  fee %s  balance %s\n", c.display(resp.Fee), c.display(*resp.CurrentBalance))
}
