// Package janitor tracks the temporary files of one run and removes them on
// every exit path.
package janitor

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
)

// Janitor is safe for concurrent use.
type Janitor struct {
	mu      sync.Mutex
	tracked []string
	remover remover
	logger  *slog.Logger
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithLogger sets the logger receiving cleanup failures.
func WithLogger(l *slog.Logger) Option {
	return func(j *Janitor) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithRemover sets the remover implementation (for testing).
func WithRemover(r remover) Option {
	return func(j *Janitor) { j.remover = r }
}

// New creates a Janitor, optionally already tracking paths (a resumed run).
func New(paths []string, opts ...Option) *Janitor {
	j := &Janitor{
		remover: osRemover{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(j)
	}
	for _, p := range paths {
		j.Track(p)
	}
	return j
}

// Track registers path for removal. Tracking the same path twice is a no-op.
func (j *Janitor) Track(path string) {
	if path == "" {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if !slices.Contains(j.tracked, path) {
		j.tracked = append(j.tracked, path)
	}
}

// Release removes one tracked path and stops tracking it.
// A path that is already gone counts as released.
func (j *Janitor) Release(path string) {
	j.mu.Lock()
	j.tracked = slices.DeleteFunc(j.tracked, func(p string) bool { return p == path })
	j.mu.Unlock()

	j.remove(path)
}

// ReleaseAll removes every tracked path, most recent first, and returns how
// many could not be removed. Failed paths are logged and dropped.
func (j *Janitor) ReleaseAll() int {
	j.mu.Lock()
	paths := j.tracked
	j.tracked = nil
	j.mu.Unlock()

	failures := 0
	for _, p := range slices.Backward(paths) {
		if !j.remove(p) {
			failures++
		}
	}
	return failures
}

// Tracked returns a copy of the currently tracked paths, in tracking order.
func (j *Janitor) Tracked() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.tracked)
}

func (j *Janitor) remove(path string) bool {
	err := j.remover.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	j.logger.Warn("temp file not removed",
		"path", path, "error", fmt.Errorf("%w: %w", ErrCleanupFailed, err))
	return false
}
