// Package checkpoint keeps the resume ledger of a prices dump: the symbol
// keys that completed and the ones that failed. Both lists are loaded once,
// appended to by workers and written back whole on save.
package checkpoint

import (
	"errors"
	"io/fs"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Store struct {
	files  Files
	logger *zap.Logger

	completedMu sync.Mutex
	completed   []string

	failedMu sync.Mutex
	failed   []string

	// saveMu spans snapshot and write so two savers cannot interleave.
	saveMu sync.Mutex
}

// Load reads the ledger. A missing or unreadable artifact starts that list
// empty; it is logged, not returned, because a first run has no state.
func Load(files Files, logger *zap.Logger) *Store {
	s := &Store{files: files, logger: logger}
	s.completed = s.loadOrEmpty(files.Completed)
	s.failed = s.loadOrEmpty(files.Failed)

	logger.Info("loaded checkpoint",
		zap.Int("completed", len(s.completed)),
		zap.Int("failed", len(s.failed)),
	)
	return s
}

func (s *Store) loadOrEmpty(path string) []string {
	list, err := loadList(path)
	switch {
	case err == nil:
		return list
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("no checkpoint file, starting empty", zap.String("path", path))
	default:
		s.logger.Warn("unreadable checkpoint file, starting empty", zap.String("path", path), zap.Error(err))
	}
	return []string{}
}

func (s *Store) AppendCompleted(key string) {
	s.completedMu.Lock()
	s.completed = append(s.completed, key)
	s.completedMu.Unlock()
}

func (s *Store) AppendFailed(key string) {
	s.failedMu.Lock()
	s.failed = append(s.failed, key)
	s.failedMu.Unlock()
}

// Completed returns a copy of the completed list.
func (s *Store) Completed() []string {
	s.completedMu.Lock()
	defer s.completedMu.Unlock()
	return append([]string(nil), s.completed...)
}

// Failed returns a copy of the failed list.
func (s *Store) Failed() []string {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	return append([]string(nil), s.failed...)
}

// Filter returns the union of both lists, the keys a resumed run skips.
func (s *Store) Filter() map[string]struct{} {
	completed, failed := s.Completed(), s.Failed()

	filter := make(map[string]struct{}, len(completed)+len(failed))
	for _, k := range completed {
		filter[k] = struct{}{}
	}
	for _, k := range failed {
		filter[k] = struct{}{}
	}
	return filter
}

// Save writes the completed and failed lists.
func (s *Store) Save() error {
	return s.save(0, false)
}

// SaveQuarantining writes the ledger but moves the last trailing entries of
// the failed list to the quarantine artifact instead of the failed one.
// The in-memory list is untouched.
func (s *Store) SaveQuarantining(trailing int) error {
	return s.save(trailing, true)
}

func (s *Store) save(trailing int, quarantine bool) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	completed, failed := s.Completed(), s.Failed()

	var err error
	if quarantine {
		kept, removed := SplitTrailing(failed, trailing)
		err = multierr.Append(err, saveList(s.files.Quarantine, removed))
		failed = kept
	}
	err = multierr.Append(err, saveList(s.files.Completed, completed))
	err = multierr.Append(err, saveList(s.files.Failed, failed))
	if err != nil {
		return err
	}

	s.logger.Debug("saved checkpoint",
		zap.Int("completed", len(completed)),
		zap.Int("failed", len(failed)),
		zap.Bool("quarantined", quarantine),
	)
	return nil
}

// SplitTrailing partitions list into its first len-k and last k entries.
// k is clamped to [0, len(list)].
func SplitTrailing(list []string, k int) (kept, removed []string) {
	if k < 0 {
		k = 0
	}
	if k > len(list) {
		k = len(list)
	}
	cut := len(list) - k
	return list[:cut:cut], list[cut:]
}
