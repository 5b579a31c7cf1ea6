package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// SyncStateStore persists the document-id to SyncRecord mapping.
type SyncStateStore interface {
	// Load returns the persisted state. A missing state file yields
	// an empty state (first run), never an error. A file that exists
	// but cannot be parsed, or that fails its integrity check,
	// returns an error wrapping domain.ErrStateCorrupted.
	Load(ctx context.Context) (domain.SyncState, error)

	// Save atomically replaces the persisted state. A crash mid-write
	// never leaves a half-written state file observable.
	Save(ctx context.Context, state domain.SyncState) error

	// Remove deletes one record and persists the result.
	Remove(ctx context.Context, id string) error
}

// CycleLock guards a state-file/index pair so only one sync cycle runs
// against it at a time.
type CycleLock interface {
	// Acquire takes the lock, returning a release function. If
	// another cycle holds the lock the error wraps
	// domain.ErrSyncInProgress.
	Acquire(ctx context.Context) (release func() error, err error)
}
