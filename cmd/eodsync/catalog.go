package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func catalogCmd(a *app) *cobra.Command {
	var exchange string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Sync the symbol catalog of an exchange into the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, closeFn, err := a.newCollector(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := c.SyncCatalog(ctx, exchange)
			if err != nil {
				return err
			}
			a.log.Info("catalog synced", zap.String("exchange", exchange), zap.Int("symbols", n))
			return nil
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "US", "exchange code, e.g. US or LSE")
	return cmd
}
