package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eodsync/internal/eodhd/checkpoint"
	"eodsync/pkg/eodhd"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int

	delay time.Duration
	gate  chan struct{} // when set, every call blocks until it is closed
	fn    func(eodhd.Symbol) ([]eodhd.Bar, error)
}

func (f *fakeFetcher) FetchSeries(ctx context.Context, symbol eodhd.Symbol, to, from time.Time) ([]eodhd.Bar, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol.Key())
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fn != nil {
		return f.fn(symbol)
	}
	return []eodhd.Bar{testBar()}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStore struct {
	mu     sync.Mutex
	stored map[string]int
	fail   map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: map[string]int{}, fail: map[string]bool{}}
}

func (s *fakeStore) InsertBars(ctx context.Context, symbol eodhd.Symbol, bars []eodhd.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[symbol.Key()] {
		return errors.New("tx aborted")
	}
	s.stored[symbol.Key()] = len(bars)
	return nil
}

// countingCheckpoint wraps the real ledger to observe saves.
type countingCheckpoint struct {
	*checkpoint.Store
	saves       atomic.Int32
	quarantines atomic.Int32
	lastTrail   atomic.Int32
}

func (c *countingCheckpoint) Save() error {
	c.saves.Add(1)
	return c.Store.Save()
}

func (c *countingCheckpoint) SaveQuarantining(trailing int) error {
	c.quarantines.Add(1)
	c.lastTrail.Store(int32(trailing))
	return c.Store.SaveQuarantining(trailing)
}

func testBar() eodhd.Bar {
	return eodhd.Bar{
		Timestamp: time.Unix(1706000000, 0).UTC(),
		Open:      decimal.NewFromInt(1),
		High:      decimal.NewFromInt(2),
		Low:       decimal.NewFromInt(1),
		Close:     decimal.NewFromInt(2),
		Volume:    10,
	}
}

func testSymbols(n int) []eodhd.Symbol {
	out := make([]eodhd.Symbol, n)
	for i := range out {
		out[i] = eodhd.Symbol{Code: fmt.Sprintf("S%03d", i), Exchange: "US"}
	}
	return out
}

func testFiles(dir string) checkpoint.Files {
	return checkpoint.Files{
		Completed:  filepath.Join(dir, "completed.json"),
		Failed:     filepath.Join(dir, "failed.json"),
		Quarantine: filepath.Join(dir, "quarantined_failures.json"),
	}
}

func loadCheckpoint(files checkpoint.Files) *countingCheckpoint {
	return &countingCheckpoint{Store: checkpoint.Load(files, zap.NewNop())}
}

// quietSignals never fires.
func quietSignals() Options {
	return Options{Signals: make(chan os.Signal)}
}

// go test -v --run TestRunSkipsCheckpointed
func TestRunSkipsCheckpointed(t *testing.T) {
	files := testFiles(t.TempDir())
	require.NoError(t, os.WriteFile(files.Completed, []byte(`["S000.US","S004.US"]`), 0o644))
	require.NoError(t, os.WriteFile(files.Failed, []byte(`["S007.US"]`), 0o644))

	ckpt := loadCheckpoint(files)
	fetcher := &fakeFetcher{}
	store := newFakeStore()

	opts := quietSignals()
	opts.Concurrency = 3
	symbols := testSymbols(10)
	// duplicates are processed once
	symbols = append(symbols, symbols[1], symbols[2])

	report, err := New(fetcher, store, ckpt, zap.NewNop(), opts).Run(context.Background(), symbols)
	require.NoError(t, err)

	assert.Equal(t, Completed, report.Outcome)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 7, report.Dispatched)
	assert.Equal(t, int64(7), report.Succeeded)
	assert.Equal(t, 7, fetcher.callCount())
	assert.Len(t, store.stored, 7)

	assert.Len(t, ckpt.Completed(), 2+7)
	assert.Equal(t, []string{"S007.US"}, ckpt.Failed())
	assert.Equal(t, int32(1), ckpt.saves.Load())
	assert.Equal(t, int32(0), ckpt.quarantines.Load())

	reloaded := checkpoint.Load(files, zap.NewNop())
	assert.Len(t, reloaded.Completed(), 9)
	assert.Equal(t, []string{"S007.US"}, reloaded.Failed())
}

// go test -v --run TestRunBreakerHalts
func TestRunBreakerHalts(t *testing.T) {
	const concurrency = 3

	files := testFiles(t.TempDir())
	require.NoError(t, os.WriteFile(files.Failed, []byte(`["OLD.US"]`), 0o644))
	ckpt := loadCheckpoint(files)

	fetcher := &fakeFetcher{
		delay: 5 * time.Millisecond,
		fn: func(eodhd.Symbol) ([]eodhd.Bar, error) {
			return nil, errors.New("provider down")
		},
	}

	opts := quietSignals()
	opts.Concurrency = concurrency

	report, err := New(fetcher, newFakeStore(), ckpt, zap.NewNop(), opts).Run(context.Background(), testSymbols(100))
	require.NoError(t, err)

	threshold := ThresholdMultiplier * concurrency
	assert.Equal(t, HaltedByBreaker, report.Outcome)
	assert.Greater(t, int(report.Failed), threshold)
	assert.Equal(t, int64(report.Dispatched), report.Failed)
	assert.LessOrEqual(t, report.Dispatched, threshold+concurrency)
	assert.LessOrEqual(t, fetcher.maxInFlight, concurrency)

	// every failure of this run is quarantined, the prior one stays
	assert.Equal(t, int32(1), ckpt.quarantines.Load())
	assert.Equal(t, int32(report.Failed), ckpt.lastTrail.Load())

	reloaded := checkpoint.Load(checkpoint.Files{
		Completed: files.Completed,
		Failed:    files.Quarantine,
	}, zap.NewNop())
	assert.Len(t, reloaded.Failed(), int(report.Failed))

	persisted := checkpoint.Load(files, zap.NewNop())
	assert.Equal(t, []string{"OLD.US"}, persisted.Failed())
	assert.Len(t, ckpt.Failed(), 1+int(report.Failed))
}

// go test -v --run TestRunBoundsConcurrency
func TestRunBoundsConcurrency(t *testing.T) {
	ckpt := loadCheckpoint(testFiles(t.TempDir()))
	fetcher := &fakeFetcher{delay: 2 * time.Millisecond}

	opts := quietSignals()
	opts.Concurrency = 4

	report, err := New(fetcher, newFakeStore(), ckpt, zap.NewNop(), opts).Run(context.Background(), testSymbols(40))
	require.NoError(t, err)

	assert.Equal(t, Completed, report.Outcome)
	assert.Equal(t, 40, report.Dispatched)
	assert.LessOrEqual(t, fetcher.maxInFlight, 4)
	assert.Len(t, ckpt.Completed(), 40)
}

// go test -v --run TestRunEmptyIsNotFailure
func TestRunEmptyIsNotFailure(t *testing.T) {
	ckpt := loadCheckpoint(testFiles(t.TempDir()))
	fetcher := &fakeFetcher{
		fn: func(s eodhd.Symbol) ([]eodhd.Bar, error) {
			if s.Code == "S001" {
				return nil, nil
			}
			return []eodhd.Bar{testBar(), testBar()}, nil
		},
	}
	store := newFakeStore()

	opts := quietSignals()
	opts.Concurrency = 2

	report, err := New(fetcher, store, ckpt, zap.NewNop(), opts).Run(context.Background(), testSymbols(3))
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Succeeded)
	assert.Equal(t, int64(1), report.Empty)
	assert.Equal(t, int64(0), report.Failed)
	assert.NotContains(t, store.stored, "S001.US")
	assert.Equal(t, 2, store.stored["S000.US"])
	assert.ElementsMatch(t, []string{"S000.US", "S001.US", "S002.US"}, ckpt.Completed())
	assert.Empty(t, ckpt.Failed())
}

// go test -v --run TestRunStoreFailureIsFailure
func TestRunStoreFailureIsFailure(t *testing.T) {
	ckpt := loadCheckpoint(testFiles(t.TempDir()))
	store := newFakeStore()
	store.fail["S002.US"] = true

	opts := quietSignals()
	opts.Concurrency = 2

	report, err := New(&fakeFetcher{}, store, ckpt, zap.NewNop(), opts).Run(context.Background(), testSymbols(4))
	require.NoError(t, err)

	assert.Equal(t, Completed, report.Outcome)
	assert.Equal(t, int64(1), report.Failed)
	assert.Equal(t, []string{"S002.US"}, ckpt.Failed())
	assert.Len(t, ckpt.Completed(), 3)
}

// go test -v --run TestRunInterrupt
func TestRunInterrupt(t *testing.T) {
	const concurrency = 2

	ckpt := loadCheckpoint(testFiles(t.TempDir()))
	fetcher := &fakeFetcher{gate: make(chan struct{})}

	signals := make(chan os.Signal, 1)
	var released atomic.Int32
	opts := Options{
		Concurrency:    concurrency,
		Signals:        signals,
		ReleaseSignals: func() { released.Add(1) },
	}

	type result struct {
		report Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := New(fetcher, newFakeStore(), ckpt, zap.NewNop(), opts).Run(context.Background(), testSymbols(10))
		done <- result{r, err}
	}()

	// both slots held, the loop is blocked on the gate
	require.Eventually(t, func() bool { return fetcher.callCount() == concurrency }, time.Second, time.Millisecond)

	signals <- os.Interrupt
	require.Eventually(t, func() bool { return ckpt.saves.Load() == 1 }, time.Second, time.Millisecond)
	// the interrupt save happened before the in-flight symbols finished
	assert.Empty(t, ckpt.Completed())

	close(fetcher.gate)

	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
	require.NoError(t, res.err)

	assert.Equal(t, HaltedByCancellation, res.report.Outcome)
	assert.Equal(t, concurrency, res.report.Dispatched)
	assert.Equal(t, concurrency, fetcher.callCount())
	assert.Len(t, ckpt.Completed(), concurrency, "in-flight outcomes are recorded")

	// one save from the interrupt, one final save after draining
	assert.Equal(t, int32(2), ckpt.saves.Load())
	assert.Equal(t, int32(0), ckpt.quarantines.Load())
	assert.Equal(t, int32(1), released.Load())
}

// go test -v --run TestRunContextCancelled
func TestRunContextCancelled(t *testing.T) {
	ckpt := loadCheckpoint(testFiles(t.TempDir()))
	fetcher := &fakeFetcher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := quietSignals()
	opts.Concurrency = 2

	report, err := New(fetcher, newFakeStore(), ckpt, zap.NewNop(), opts).Run(ctx, testSymbols(5))
	require.NoError(t, err)

	assert.Equal(t, HaltedByCancellation, report.Outcome)
	assert.Equal(t, 0, report.Dispatched)
	assert.Equal(t, 0, fetcher.callCount())
	assert.Equal(t, int32(1), ckpt.saves.Load())
}

// go test -v --run TestRunContextCancelledInFlight
func TestRunContextCancelledInFlight(t *testing.T) {
	const concurrency = 2

	files := testFiles(t.TempDir())
	ckpt := loadCheckpoint(files)
	fetcher := &fakeFetcher{gate: make(chan struct{})}
	store := newFakeStore()

	opts := quietSignals()
	opts.Concurrency = concurrency

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		report Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := New(fetcher, store, ckpt, zap.NewNop(), opts).Run(ctx, testSymbols(10))
		done <- result{r, err}
	}()

	require.Eventually(t, func() bool { return fetcher.callCount() == concurrency }, time.Second, time.Millisecond)
	cancel()

	// the in-flight calls must not observe the cancellation
	time.Sleep(20 * time.Millisecond)
	close(fetcher.gate)

	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
	require.NoError(t, res.err)

	assert.Equal(t, HaltedByCancellation, res.report.Outcome)
	assert.Equal(t, concurrency, res.report.Dispatched)
	assert.Equal(t, int64(0), res.report.Failed)
	assert.Equal(t, int64(concurrency), res.report.Succeeded)
	assert.Len(t, store.stored, concurrency)

	persisted := checkpoint.Load(files, zap.NewNop())
	assert.ElementsMatch(t, []string{"S000.US", "S001.US"}, persisted.Completed())
	assert.Empty(t, persisted.Failed())
}

// go test -v --run TestRunSaveErrorSurfaces
func TestRunSaveErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	files := testFiles(dir)
	files.Completed = filepath.Join(blocker, "completed.json")
	ckpt := loadCheckpoint(files)

	opts := quietSignals()
	opts.Concurrency = 1

	report, err := New(&fakeFetcher{}, newFakeStore(), ckpt, zap.NewNop(), opts).Run(context.Background(), testSymbols(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), files.Completed)
	assert.Equal(t, Completed, report.Outcome)
	assert.Equal(t, int64(2), report.Succeeded)
}
