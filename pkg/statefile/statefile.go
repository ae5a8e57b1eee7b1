// Package statefile implements the write-temp-then-rename primitive used by
// every small flat document the core persists to DATA_DIR: the proposal
// journal, the router watermark, the session map and the registered-groups
// map. Each document gets its own Store[T] with explicit Load/Snapshot/Save
// so callers never hold ambient mutable state.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"go.uber.org/zap"
)

// Store guards a single JSON document on disk with a single-writer mutex.
// Readers call Snapshot for a deep-enough copy (a fresh decode), writers call
// Save under the lock. This matches the "single loop writes, others read a
// prior snapshot but never a torn one" policy.
type Store[T any] struct {
	mu   sync.Mutex
	path string
	zero func() T
}

// New returns a Store rooted at path. zero constructs the empty-state value
// used when the file does not yet exist.
func New[T any](path string, zero func() T) *Store[T] {
	return &Store[T]{path: path, zero: zero}
}

// Load reads the document, returning the zero value (not an error) if the
// file does not exist yet.
func (s *Store[T]) Load() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store[T]) load() (T, error) {
	var v T
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.zero(), nil
		}
		return v, fmt.Errorf("read state file %s: %w", s.path, err)
	}
	if len(b) == 0 {
		return s.zero(), nil
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode state file %s: %w", s.path, err)
	}
	return v, nil
}

// Snapshot is an alias for Load, named for call sites that want to make
// clear they're taking a read-only copy rather than preparing to mutate.
func (s *Store[T]) Snapshot() (T, error) {
	return s.Load()
}

// Save atomically persists v: write to a sibling temp file, fsync, then
// rename over the target. Rename is atomic on the same filesystem, so
// readers never observe a torn write.
func (s *Store[T]) Save(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(v)
}

func (s *Store[T]) save(v T) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state dir for %s: %w", s.path, err)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file for %s: %w", s.path, err)
	}

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		return fmt.Errorf("write temp state file for %s: %w", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp state file for %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file for %s: %w", s.path, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename temp state file for %s: %w", s.path, err)
	}

	success = true
	return nil
}

// Mutate loads the current value, lets fn mutate it in place, and saves the
// result — all under the store's single-writer lock. fn returning an error
// aborts the write, leaving the file unchanged.
func (s *Store[T]) Mutate(fn func(T) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		var zero T
		return zero, err
	}

	next, err := fn(v)
	if err != nil {
		return v, err
	}

	if err := s.save(next); err != nil {
		return v, err
	}

	return next, nil
}

// EnsureDir creates dir (and parents) if absent, logging once at debug level.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	logger.Debug("ensured directory", zap.String("dir", dir))
	return nil
}
