// Package scheduler runs the resumable prices pipeline: a bounded pool of
// fetch-then-store workers over a symbol list, gated by the checkpoint
// filter, a failure breaker and an interrupt listener.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"eodsync/internal/eodhd/memorystore"
	"eodsync/internal/metrics"
	"eodsync/pkg/eodhd"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Fetcher downloads the history of one symbol.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol eodhd.Symbol, to, from time.Time) ([]eodhd.Bar, error)
}

// Store persists the bars of one symbol, all or nothing.
type Store interface {
	InsertBars(ctx context.Context, symbol eodhd.Symbol, bars []eodhd.Bar) error
}

// Checkpoint is the resume ledger.
type Checkpoint interface {
	Filter() map[string]struct{}
	AppendCompleted(key string)
	AppendFailed(key string)
	Save() error
	SaveQuarantining(trailing int) error
}

// Options tune a Scheduler.
type Options struct {
	Concurrency int

	// Signals feeds the interrupt listener; nil means the process signals.
	Signals <-chan os.Signal
	// ReleaseSignals is called when Signals is no longer consumed.
	ReleaseSignals func()
}

type Scheduler struct {
	fetcher    Fetcher
	store      Store
	checkpoint Checkpoint
	logger     *zap.Logger
	opts       Options
}

func New(fetcher Fetcher, store Store, checkpoint Checkpoint, logger *zap.Logger, opts Options) *Scheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scheduler{
		fetcher:    fetcher,
		store:      store,
		checkpoint: checkpoint,
		logger:     logger,
		opts:       opts,
	}
}

// tally is shared by the workers of one run.
type tally struct {
	succeeded atomic.Int64
	empty     atomic.Int64
	failed    atomic.Int64
}

// Run processes symbols not yet in the checkpoint, at most Concurrency at a
// time, until the list is exhausted, the breaker trips, an interrupt
// arrives or ctx is done. Work already dispatched always finishes and is
// recorded; cancelling ctx does not abort it. The
// checkpoint is saved once everything drained; after a breaker halt the
// failures of this run are quarantined instead of kept in the filter.
//
// The returned error is only ever a checkpoint save failure.
func (s *Scheduler) Run(ctx context.Context, symbols []eodhd.Symbol) (Report, error) {
	symbols = memorystore.Dedup(symbols)
	report := Report{Total: len(symbols)}

	filter := s.checkpoint.Filter()
	if len(filter) == 0 {
		s.logger.Info("checkpoint filter is empty, processing every symbol")
	}

	signals, release := s.opts.Signals, s.opts.ReleaseSignals
	if signals == nil {
		signals, release = NotifySignals()
	}
	interrupter := StartInterrupter(signals, release, s.checkpoint.Save, s.logger.Named("interrupt"))

	// in-flight symbols outlive ctx; it only stops further dispatch
	workCtx := context.WithoutCancel(ctx)

	var (
		breaker = NewBreaker(s.opts.Concurrency)
		gate    = semaphore.NewWeighted(int64(s.opts.Concurrency))
		counts  tally
		wg      sync.WaitGroup
	)
	report.Outcome = Completed

	for _, symbol := range symbols {
		if _, done := filter[symbol.Key()]; done {
			report.Skipped++
			continue
		}

		if outcome := s.haltReason(ctx, breaker, interrupter); outcome.Halted() {
			report.Outcome = outcome
			break
		}

		if err := gate.Acquire(ctx, 1); err != nil {
			s.logger.Warn("context done while waiting for a slot", zap.Error(err))
			report.Outcome = HaltedByCancellation
			break
		}

		// state may have changed while blocked on the gate
		if outcome := s.haltReason(ctx, breaker, interrupter); outcome.Halted() {
			gate.Release(1)
			report.Outcome = outcome
			break
		}

		report.Dispatched++
		wg.Add(1)
		go func(symbol eodhd.Symbol) {
			defer wg.Done()
			defer gate.Release(1)
			s.process(workCtx, symbol, breaker, &counts)
		}(symbol)
	}

	s.logger.Info("waiting for in-flight symbols to finish", zap.Stringer("outcome", report.Outcome))
	wg.Wait()
	interrupter.Stop()

	report.Succeeded = counts.succeeded.Load()
	report.Empty = counts.empty.Load()
	report.Failed = counts.failed.Load()

	var err error
	if report.Outcome == HaltedByBreaker {
		metrics.RecordBreakerTrip()
		err = s.checkpoint.SaveQuarantining(breaker.Failures())
	} else {
		err = s.checkpoint.Save()
	}
	if err != nil {
		return report, fmt.Errorf("save checkpoint: %w", err)
	}

	s.logger.Info("run finished",
		zap.Stringer("outcome", report.Outcome),
		zap.Int("total", report.Total),
		zap.Int("skipped", report.Skipped),
		zap.Int("dispatched", report.Dispatched),
		zap.Int64("succeeded", report.Succeeded),
		zap.Int64("empty", report.Empty),
		zap.Int64("failed", report.Failed),
	)
	return report, nil
}

func (s *Scheduler) haltReason(ctx context.Context, breaker *Breaker, interrupter *Interrupter) Outcome {
	if breaker.Tripped() {
		s.logger.Error("too many failures, halting",
			zap.Int("failures", breaker.Failures()),
			zap.Int("threshold", breaker.Threshold()),
		)
		return HaltedByBreaker
	}
	if interrupter.Cancelled() {
		s.logger.Warn("interrupted, halting")
		return HaltedByCancellation
	}
	if ctx.Err() != nil {
		s.logger.Warn("context done, halting", zap.Error(ctx.Err()))
		return HaltedByCancellation
	}
	return Completed
}
