package driving

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Synchronizer runs sync cycles against a content source and index pair.
type Synchronizer interface {
	// RunCycle performs one full sync cycle: fetch the source listing,
	// reconcile it against persisted state, apply the mutation plan to
	// the index backend and commit the new state. It always returns a
	// report when the cycle ran; a nil report means the cycle aborted
	// before any mutation and the returned error says why.
	RunCycle(ctx context.Context) (*domain.SyncReport, error)
}
