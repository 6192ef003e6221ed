package scheduler

import (
	"context"
	"fmt"
	"time"

	"eodsync/internal/metrics"
	"eodsync/pkg/eodhd"

	"go.uber.org/zap"
)

// process runs one unit of work and records its outcome in the checkpoint.
func (s *Scheduler) process(ctx context.Context, symbol eodhd.Symbol, breaker *Breaker, counts *tally) {
	metrics.InFlightInc()
	defer metrics.InFlightDec()

	key := symbol.Key()

	n, err := s.fetchAndStore(ctx, symbol)
	if err != nil {
		failures := breaker.RecordFailure()
		counts.failed.Add(1)
		metrics.RecordSymbol(symbol.Exchange, metrics.OutcomeFailed)
		s.logger.Error("failed to download/store symbol",
			zap.String("symbol", key),
			zap.Int("failures", failures),
			zap.Int("threshold", breaker.Threshold()),
			zap.Error(err),
		)
		s.checkpoint.AppendFailed(key)
		return
	}

	counts.succeeded.Add(1)
	if n == 0 {
		counts.empty.Add(1)
		metrics.RecordSymbol(symbol.Exchange, metrics.OutcomeEmpty)
		s.logger.Info("no data for symbol", zap.String("symbol", key))
	} else {
		metrics.RecordSymbol(symbol.Exchange, metrics.OutcomeCompleted)
		s.logger.Info("stored symbol", zap.String("symbol", key), zap.Int("bars", n))
	}
	s.checkpoint.AppendCompleted(key)
}

// fetchAndStore returns the number of bars stored; zero bars is not an error.
func (s *Scheduler) fetchAndStore(ctx context.Context, symbol eodhd.Symbol) (int, error) {
	bars, err := s.fetcher.FetchSeries(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	if len(bars) == 0 {
		return 0, nil
	}

	if err := s.store.InsertBars(ctx, symbol, bars); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	return len(bars), nil
}
