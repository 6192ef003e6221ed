package main

import (
	"context"
	"fmt"

	"eodsync/config"
	"eodsync/internal/metrics"
	"eodsync/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every sub-command needs once flags are parsed.
type app struct {
	configPath  string
	concurrency int

	cfg    *config.Config
	log    *zap.Logger
	cancel context.CancelFunc
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "eodsync",
		Short: "eodsync dumps exchange catalogs and intraday price history from EODHD into a SQL database.",
		Long: `eodsync dumps exchange catalogs and intraday price history from EODHD into a SQL database.

Configuration is read from config.yaml (see --config) and can be overridden with
environment variables, e.g. EODHD_API_TOKEN or PIPELINE_CONCURRENCY.

A dump is resumable: completed and failed symbols are kept in JSON checkpoint
files and skipped on the next run. Ctrl-C saves the checkpoint, lets in-flight
symbols finish and stops.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the config file (default: config/config.yaml)")
	cmd.PersistentFlags().IntVarP(&a.concurrency, "concurrency", "t", 0, "number of symbols downloaded at once (overrides pipeline.concurrency)")

	cmd.AddCommand(
		dumpCmd(a),
		selectiveCmd(a),
		catalogCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Pipeline.Concurrency = a.concurrency
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.log, _ = logger.WithRun(log)
	a.log.Info("starting", zap.String("command", cmd.Name()))

	ctx, cancel := context.WithCancel(cmd.Context())
	a.cancel = cancel
	if cfg.Metrics.Addr != "" {
		metrics.Serve(ctx, cfg.Metrics.Addr, a.log.Named("metrics"))
	}
	return nil
}

func (a *app) close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
