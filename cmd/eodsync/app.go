package main

import (
	"context"
	"fmt"
	"time"

	"eodsync/internal/eodhd/collector"
	"eodsync/pkg/eodhd"
	"eodsync/pkg/storage/sqlstore"

	"go.uber.org/zap"
)

// catalogTimeout bounds one catalog sync including its 429 retries.
const catalogTimeout = 5 * time.Minute

// newCollector connects the store and the provider client described by the
// loaded config. The returned func closes the database.
func (a *app) newCollector(ctx context.Context) (*collector.Collector, func(), error) {
	cfg := a.cfg

	meta, err := eodhd.ParseInterval(cfg.EODHD.Interval)
	if err != nil {
		return nil, nil, err
	}
	if cfg.EODHD.Window > meta.MaxSpan {
		return nil, nil, fmt.Errorf("eodhd.window %s exceeds the %s span allowed for interval %s",
			cfg.EODHD.Window, meta.MaxSpan, cfg.EODHD.Interval)
	}
	lowerBound, err := cfg.EODHD.LowerBoundTime()
	if err != nil {
		return nil, nil, err
	}

	dbCfg, err := cfg.Database.Resolve(ctx, cfg.Log.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database config: %w", err)
	}
	store, err := sqlstore.InitializeAndMigrate(ctx, dbCfg, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	client := eodhd.NewClient(cfg.EODHD.BaseURL, cfg.EODHD.APIToken,
		eodhd.WithTimeout(cfg.EODHD.Timeout),
		eodhd.WithLogger(a.log.Named("eodhd")),
		eodhd.WithInterval(meta),
		eodhd.WithWindow(cfg.EODHD.Window),
		eodhd.WithLowerBound(lowerBound),
		eodhd.WithRetries(cfg.EODHD.MaxRetries, cfg.EODHD.BackoffUnit),
	)

	c := collector.New(client, store, a.log, collector.Options{
		Concurrency:    cfg.Pipeline.Concurrency,
		Checkpoint:     cfg.Checkpoint,
		CatalogTimeout: catalogTimeout,
	})

	closeFn := func() {
		a.log.Info("provider request weight", zap.Int64("weight", client.TotalWeight()))
		if err := store.Close(); err != nil {
			a.log.Warn("failed to close database", zap.Error(err))
		}
	}
	return c, closeFn, nil
}
