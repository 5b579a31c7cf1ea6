package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Ensure Lock implements the interface.
var _ driven.CycleLock = (*Lock)(nil)

// DefaultStaleAfter is how old a lock file must be before it is
// considered abandoned by a crashed cycle and taken over.
const DefaultStaleAfter = 2 * time.Hour

// Lock guards a state-file/index pair with an O_EXCL lock file so only
// one sync cycle runs against it at a time. Contention fails fast with
// domain.ErrSyncInProgress; two interleaved cycles would corrupt the
// added/modified/deleted accounting.
type Lock struct {
	path       string
	staleAfter time.Duration
}

// lockInfo is written into the lock file for diagnostics.
type lockInfo struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// NewLock creates a lock at the given path, conventionally the state
// file path with a ".lock" suffix. staleAfter <= 0 selects
// DefaultStaleAfter.
func NewLock(path string, staleAfter time.Duration) *Lock {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Lock{path: path, staleAfter: staleAfter}
}

// LockPath returns the conventional lock path for a state file.
func LockPath(statePath string) string {
	return statePath + ".lock"
}

// Acquire takes the lock, returning a release function.
func (l *Lock) Acquire(_ context.Context) (func() error, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if os.IsExist(err) {
		if l.takeOverIfStale() {
			return l.Acquire(context.Background())
		}
		return nil, fmt.Errorf("%w: lock file %s exists", domain.ErrSyncInProgress, l.path)
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring cycle lock: %w", err)
	}

	info := lockInfo{PID: os.Getpid(), AcquiredAt: time.Now().UTC()}
	if data, merr := json.Marshal(info); merr == nil {
		f.Write(data) //nolint:errcheck // lock content is diagnostic only
	}
	if err := f.Close(); err != nil {
		os.Remove(l.path)
		return nil, fmt.Errorf("acquiring cycle lock: %w", err)
	}

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		return os.Remove(l.path)
	}, nil
}

// takeOverIfStale removes a lock file old enough to belong to a crashed
// cycle. Returns true if the lock was removed.
func (l *Lock) takeOverIfStale() bool {
	fi, err := os.Stat(l.path)
	if err != nil {
		// Lock vanished between the open and the stat: the holder
		// released. Let the caller retry.
		return os.IsNotExist(err)
	}
	if time.Since(fi.ModTime()) < l.staleAfter {
		return false
	}
	logger.Warn("Removing stale cycle lock %s (age %s)", l.path, time.Since(fi.ModTime()).Round(time.Second))
	return os.Remove(l.path) == nil
}
