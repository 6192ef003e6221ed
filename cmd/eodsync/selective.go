package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func selectiveCmd(a *app) *cobra.Command {
	var (
		exchange string
		codes    []string
	)

	cmd := &cobra.Command{
		Use:   "selective",
		Short: "Download the price history of the given codes only, ignoring the checkpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			codes = append(codes, args...)
			if len(codes) == 0 {
				return errors.New("no codes given, use --codes AAPL,MSFT")
			}
			ctx := cmd.Context()

			c, closeFn, err := a.newCollector(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			return c.Selective(ctx, exchange, codes)
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "US", "exchange code, e.g. US or LSE")
	cmd.Flags().StringSliceVar(&codes, "codes", nil, "comma separated symbol codes, e.g. AAPL,MSFT")
	return cmd
}
