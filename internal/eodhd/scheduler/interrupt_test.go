package scheduler

import (
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestInterrupterSavesOnce
func TestInterrupterSavesOnce(t *testing.T) {
	signals := make(chan os.Signal, 2)
	var saves, released atomic.Int32

	i := StartInterrupter(signals, func() { released.Add(1) }, func() error {
		saves.Add(1)
		return nil
	}, zap.NewNop())

	assert.False(t, i.Cancelled())

	signals <- os.Interrupt
	require.Eventually(t, i.Cancelled, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, time.Millisecond)

	// a second signal is no longer consumed here
	signals <- os.Interrupt
	i.Stop()

	assert.Equal(t, int32(1), saves.Load())
	assert.Equal(t, int32(1), released.Load())
	assert.True(t, i.Cancelled())
}

// go test -v --run TestInterrupterStopWithoutSignal
func TestInterrupterStopWithoutSignal(t *testing.T) {
	var saves, released atomic.Int32

	i := StartInterrupter(make(chan os.Signal), func() { released.Add(1) }, func() error {
		saves.Add(1)
		return nil
	}, zap.NewNop())

	i.Stop()
	i.Stop()

	assert.False(t, i.Cancelled())
	assert.Equal(t, int32(0), saves.Load())
	assert.Equal(t, int32(1), released.Load())
}

// go test -v --run TestInterrupterSaveError
func TestInterrupterSaveError(t *testing.T) {
	signals := make(chan os.Signal, 1)
	i := StartInterrupter(signals, nil, func() error { return errors.New("disk full") }, zap.NewNop())

	signals <- os.Interrupt
	require.Eventually(t, i.Cancelled, time.Second, time.Millisecond)
	i.Stop()
	assert.True(t, i.Cancelled())
}

// go test -v --run TestOutcome
func TestOutcome(t *testing.T) {
	assert.False(t, Completed.Halted())
	assert.True(t, HaltedByBreaker.Halted())
	assert.True(t, HaltedByCancellation.Halted())
	assert.Equal(t, "halted_by_breaker", HaltedByBreaker.String())
}
