package scheduler

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
)

// NotifySignals subscribes to SIGINT and SIGTERM. The release func stops
// delivery so a later signal gets the default behaviour again.
func NotifySignals() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

// Interrupter turns the first signal of a run into a checkpoint save and a
// cancelled flag. It never touches in-flight work; the scheduler polls
// Cancelled before each dispatch.
type Interrupter struct {
	logger  *zap.Logger
	save    func() error
	release func()

	cancelled atomic.Bool

	stopOnce    sync.Once
	releaseOnce sync.Once
	stop        chan struct{}
	done        chan struct{}
}

// StartInterrupter arms an Interrupter listening on signals. release is
// called once the first signal is consumed or on Stop, whichever comes first.
func StartInterrupter(signals <-chan os.Signal, release func(), save func() error, logger *zap.Logger) *Interrupter {
	if release == nil {
		release = func() {}
	}
	i := &Interrupter{
		logger:  logger,
		save:    save,
		release: release,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go i.run(signals)
	return i
}

func (i *Interrupter) run(signals <-chan os.Signal) {
	defer close(i.done)

	select {
	case <-i.stop:
		return
	case sig, ok := <-signals:
		if !ok {
			return
		}
		i.releaseSignals()
		i.cancelled.Store(true)
		i.logger.Warn("interrupt received, saving checkpoint", zap.String("signal", sig.String()))

		if err := i.save(); err != nil {
			i.logger.Error("failed to save checkpoint on interrupt", zap.Error(err))
			return
		}
		i.logger.Info("checkpoint saved, no new symbols will be dispatched")
	}
}

func (i *Interrupter) releaseSignals() {
	i.releaseOnce.Do(i.release)
}

// Cancelled reports whether a signal was received.
func (i *Interrupter) Cancelled() bool {
	return i.cancelled.Load()
}

// Stop disarms the listener and waits for a save in progress to finish.
func (i *Interrupter) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
	<-i.done
	i.releaseSignals()
}
