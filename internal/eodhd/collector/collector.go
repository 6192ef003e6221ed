// Package collector drives the exchange level workflows: the staged dump,
// the selective re-download of a few codes and the catalog sync.
package collector

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"eodsync/config"
	"eodsync/internal/eodhd/checkpoint"
	"eodsync/internal/eodhd/scheduler"
	"eodsync/internal/eodhd/snapshot"
	"eodsync/pkg/eodhd"
	"eodsync/pkg/storage/sqlstore"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Fetcher interface {
	scheduler.Fetcher
	snapshot.CatalogFetcher
}

type Store interface {
	scheduler.Store
	snapshot.CatalogWriter
	HasStage(ctx context.Context, exchange, stage string) (bool, error)
	AddStage(ctx context.Context, exchange, stage string) error
}

type Options struct {
	Concurrency    int
	Checkpoint     config.CheckpointConfig
	CatalogTimeout time.Duration

	// Signals and ReleaseSignals are handed to the scheduler; nil listens
	// for SIGINT and SIGTERM.
	Signals        <-chan os.Signal
	ReleaseSignals func()
}

type Collector struct {
	fetcher Fetcher
	store   Store
	logger  *zap.Logger
	opts    Options
}

func New(fetcher Fetcher, store Store, logger *zap.Logger, opts Options) *Collector {
	return &Collector{fetcher: fetcher, store: store, logger: logger, opts: opts}
}

// DumpResult describes one Dump call.
type DumpResult struct {
	AlreadyDone bool // the prices stage was recorded by an earlier run
	Symbols     int  // catalog size after dedup
	Report      scheduler.Report
}

// Dump syncs the catalog of exchange and then downloads every symbol not yet
// in the checkpoint. The prices stage is recorded only when the pipeline ran
// to completion; a halted run leaves it open for the next invocation.
func (c *Collector) Dump(ctx context.Context, exchange string) (DumpResult, error) {
	log := c.logger.Named("dump").With(zap.String("exchange", exchange))

	done, err := c.store.HasStage(ctx, exchange, sqlstore.StagePrices)
	if err != nil {
		return DumpResult{}, err
	}
	if done {
		log.Info("prices stage already done, nothing to dump")
		return DumpResult{AlreadyDone: true}, nil
	}

	log.Info("stage 1: syncing catalog")
	symbols, err := c.loader().LoadSymbols(ctx, exchange)
	if err != nil {
		return DumpResult{}, err
	}

	log.Info("stage 2: downloading prices", zap.Int("symbols", len(symbols)))
	ckpt := checkpoint.Load(checkpoint.Files{
		Completed:  c.opts.Checkpoint.Path(c.opts.Checkpoint.CompletedFile),
		Failed:     c.opts.Checkpoint.Path(c.opts.Checkpoint.FailedFile),
		Quarantine: c.opts.Checkpoint.Path(c.opts.Checkpoint.QuarantineFile),
	}, c.logger.Named("checkpoint"))

	sched := scheduler.New(c.fetcher, c.store, ckpt, c.logger.Named("scheduler"), scheduler.Options{
		Concurrency:    c.opts.Concurrency,
		Signals:        c.opts.Signals,
		ReleaseSignals: c.opts.ReleaseSignals,
	})

	report, err := sched.Run(ctx, symbols)
	result := DumpResult{Symbols: len(symbols), Report: report}
	if err != nil {
		return result, err
	}

	if report.Outcome != scheduler.Completed {
		log.Warn("prices stage not finished", zap.Stringer("outcome", report.Outcome))
		return result, nil
	}

	if err := c.store.AddStage(ctx, exchange, sqlstore.StagePrices); err != nil {
		return result, err
	}
	log.Info("prices stage done",
		zap.Int64("succeeded", report.Succeeded),
		zap.Int64("failed", report.Failed),
	)
	return result, nil
}

// Selective syncs the catalog of exchange and then downloads the given codes
// one at a time, bypassing the checkpoint. A failing code does not stop the
// others; all failures are returned together.
func (c *Collector) Selective(ctx context.Context, exchange string, codes []string) error {
	log := c.logger.Named("selective").With(zap.String("exchange", exchange))

	if _, err := c.loader().LoadSymbols(ctx, exchange); err != nil {
		return err
	}

	var errs error
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		symbol := eodhd.Symbol{Code: code, Exchange: exchange}
		n, err := c.syncSymbol(ctx, symbol)
		if err != nil {
			log.Error("failed to download/store symbol", zap.String("symbol", symbol.Key()), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		log.Info("synced symbol", zap.String("symbol", symbol.Key()), zap.Int("bars", n))
	}
	return errs
}

func (c *Collector) syncSymbol(ctx context.Context, symbol eodhd.Symbol) (int, error) {
	bars, err := c.fetcher.FetchSeries(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}
	if err := c.store.InsertBars(ctx, symbol, bars); err != nil {
		return 0, err
	}
	return len(bars), nil
}

// SyncCatalog stores the catalog of exchange and returns its symbol count.
func (c *Collector) SyncCatalog(ctx context.Context, exchange string) (int, error) {
	symbols, err := c.loader().LoadSymbols(ctx, exchange)
	if err != nil {
		return 0, err
	}
	return len(symbols), nil
}

func (c *Collector) loader() *snapshot.SymbolLoader {
	return &snapshot.SymbolLoader{
		Fetcher: c.fetcher,
		Writer:  c.store,
		Timeout: c.opts.CatalogTimeout,
		Logger:  c.logger.Named("catalog"),
	}
}
