package scheduler

import "sync"

// ThresholdMultiplier sizes the breaker threshold in pool widths.
const ThresholdMultiplier = 2

// Breaker counts failures over a whole run. The count is never reset on
// success, so it trips on cumulative failures rather than a true streak;
// workers finish out of order and a streak would not be well defined.
type Breaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
}

// NewBreaker returns a breaker for a pool of the given concurrency.
func NewBreaker(concurrency int) *Breaker {
	return &Breaker{threshold: ThresholdMultiplier * concurrency}
}

// RecordFailure counts one failure and returns the new total.
func (b *Breaker) RecordFailure() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	return b.failures
}

func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) Threshold() int {
	return b.threshold
}

// Tripped reports whether failures exceed the threshold.
func (b *Breaker) Tripped() bool {
	return b.Failures() > b.threshold
}
