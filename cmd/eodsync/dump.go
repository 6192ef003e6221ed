package main

import (
	"fmt"

	"eodsync/internal/eodhd/scheduler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func dumpCmd(a *app) *cobra.Command {
	var exchange string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Sync the catalog of an exchange and download the price history of all its symbols.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, closeFn, err := a.newCollector(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := c.Dump(ctx, exchange)
			if err != nil {
				a.log.Error("dump failed", zap.Error(err))
				return err
			}

			switch result.Report.Outcome {
			case scheduler.HaltedByBreaker:
				return fmt.Errorf("dump of %s halted after %d failures; fix the cause and run again",
					exchange, result.Report.Failed)
			case scheduler.HaltedByCancellation:
				a.log.Warn("dump interrupted, run again to resume", zap.String("exchange", exchange))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "US", "exchange code, e.g. US or LSE")
	return cmd
}
