// ledgerctl 是 ledger.v1.LedgerService 的命令列客戶端
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/spf13/cobra"

	ledgerv1 "github.com/JoeShih716/go-fee-ledger/api/ledger/v1"
	grpc_pkg "github.com/JoeShih716/go-fee-ledger/pkg/grpc"
)

// cli 所有子指令共用的狀態
type cli struct {
	addr     string
	currency string
	timeout  time.Duration

	pool   *grpc_pkg.Pool
	client *ledgerv1.LedgerServiceClient
}

func main() {
	c := &cli{pool: grpc_pkg.NewPool()}
	defer c.pool.Close()

	if err := c.rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerctl talks to the ledger core over gRPC",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.pool.GetConnection(c.addr)
			if err != nil {
				return err
			}
			c.client = ledgerv1.NewLedgerServiceClient(conn)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.addr, "addr", "a", "localhost:50051", "ledger core address")
	root.PersistentFlags().StringVar(&c.currency, "currency", "TWD", "currency code used to display amounts (minor units)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Second, "per request timeout")

	root.AddCommand(
		c.newOpenCmd(),
		c.newGetCmd(),
		c.newListCmd(),
		c.newRenameCmd(),
		c.newCloseCmd(),
		c.newDepositCmd(),
		c.newWithdrawCmd(),
		c.newTransferCmd(),
		c.newBalanceCmd(),
		c.newStatementCmd(),
		c.newBenchCmd(),
	)
	return root
}

// requestContext 每個請求的逾時 context
func (c *cli) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

// display 以幣別格式輸出最小單位金額
func (c *cli) display(amount int64) string {
	return money.New(amount, c.currency).Display()
}
