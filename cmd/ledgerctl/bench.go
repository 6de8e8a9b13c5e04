package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	ledgerv1 "github.com/JoeShih716/go-fee-ledger/api/ledger/v1"
)

type benchOptions struct {
	total       int
	concurrency int
	amount      int64
	duration    time.Duration
}

// newBenchCmd 並發送出大量存款請求到同一個帳戶，量測 TPS
func (c *cli) newBenchCmd() *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench <account id>",
		Short: "Fire concurrent deposits at one account and report TPS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return c.runBench(cmd, id, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.total, "count", "n", 100000, "total number of requests")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 1000, "number of in-flight requests")
	cmd.Flags().Int64Var(&opts.amount, "amount", 10000, "amount of each deposit")
	cmd.Flags().DurationVar(&opts.duration, "max-duration", 120*time.Second, "abort the run after this long")
	return cmd
}

func (c *cli) runBench(cmd *cobra.Command, accountID int64, opts benchOptions) error {
	if opts.total <= 0 || opts.concurrency <= 0 {
		return fmt.Errorf("count and concurrency must be positive")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.duration)
	defer cancel()

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	wg.Add(opts.total)
	sem := make(chan struct{}, opts.concurrency)

	startTime := time.Now()
	for i := 0; i < opts.total; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := c.client.Deposit(ctx, &ledgerv1.DepositRequest{
				AccountID: accountID,
				Amount:    opts.amount,
			})
			if err != nil {
				if failed.Add(1) == 1 || idx%10000 == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "deposit %d failed: %v\n", idx, err)
				}
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(startTime)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Completed %d requests in %v (%d failed)\n", opts.total, elapsed, failed.Load())
	fmt.Fprintf(out, "TPS: %.2f\n", float64(opts.total)/elapsed.Seconds())
	return nil
}
