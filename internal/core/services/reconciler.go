package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Reconciler classifies the current source listing against persisted
// sync state and produces the cycle's mutation plan. The comparison is
// O(n + m) in the number of current and previous documents; there is no
// pairwise scan.
type Reconciler struct {
	hasher *ContentHasher
}

// NewReconciler creates a reconciler using the given content hasher.
func NewReconciler(hasher *ContentHasher) *Reconciler {
	return &Reconciler{hasher: hasher}
}

// Plan classifies every document id visible on either side into exactly
// one of Added, Modified, Deleted or Unchanged, and returns the
// resulting mutation plan.
//
// Documents the source enumerated but could not read, and documents
// failing ingestion validation, are excluded from both ToUpsert and
// ToDelete: they are neither confirmed changed nor confirmed deleted,
// so they must not be mutated this cycle. They surface as per-document
// failures and retry next cycle.
//
// Duplicate ids within the listing fail the whole cycle with
// domain.ErrDuplicateDocumentID: the engine refuses to guess which
// instance is authoritative.
func (r *Reconciler) Plan(current []domain.DocumentInfo, previous domain.SyncState) (*domain.MutationPlan, error) {
	plan := &domain.MutationPlan{
		Class: make(map[string]domain.Classification, len(current)+previous.Len()),
	}

	// Lookup set of previous keys; ids still present in the listing
	// are removed as they are visited, so whatever remains afterwards
	// is gone from the source.
	remaining := make(map[string]struct{}, previous.Len())
	for id := range previous.Records {
		remaining[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(current))
	for i := range current {
		doc := &current[i]
		if _, dup := seen[doc.ID]; dup {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateDocumentID, doc.ID)
		}
		seen[doc.ID] = struct{}{}

		if doc.ReadErr != nil {
			delete(remaining, doc.ID)
			plan.Excluded = append(plan.Excluded, domain.DocumentFailure{
				ID:     doc.ID,
				Reason: fmt.Sprintf("%v: %v", domain.ErrDocumentUnreadable, doc.ReadErr),
			})
			logger.Warn("Excluding unreadable document %s: %v", doc.ID, doc.ReadErr)
			continue
		}

		if err := doc.Validate(r.hasher.MaxBytes()); err != nil {
			delete(remaining, doc.ID)
			plan.Excluded = append(plan.Excluded, domain.DocumentFailure{
				ID:     doc.ID,
				Reason: err.Error(),
			})
			logger.Warn("Excluding invalid document %s: %v", doc.ID, err)
			continue
		}

		hash, err := r.hasher.HashDocument(doc)
		if err != nil {
			delete(remaining, doc.ID)
			plan.Excluded = append(plan.Excluded, domain.DocumentFailure{
				ID:     doc.ID,
				Reason: err.Error(),
			})
			continue
		}

		rec, known := previous.Get(doc.ID)
		switch {
		case !known:
			plan.Class[doc.ID] = domain.ClassAdded
			plan.ToUpsert = append(plan.ToUpsert, doc.ID)
		case rec.ContentHash != hash:
			// Covers the empty-body transition too: a document whose
			// content became "" hashes differently and is Modified,
			// not a no-op.
			plan.Class[doc.ID] = domain.ClassModified
			plan.ToUpsert = append(plan.ToUpsert, doc.ID)
		default:
			plan.Class[doc.ID] = domain.ClassUnchanged
			plan.Unchanged++
		}
		delete(remaining, doc.ID)
	}

	for id := range remaining {
		plan.Class[id] = domain.ClassDeleted
		plan.ToDelete = append(plan.ToDelete, id)
	}
	sort.Strings(plan.ToDelete)

	logger.Debug("Reconciled: %d to upsert, %d to delete, %d unchanged, %d excluded",
		len(plan.ToUpsert), len(plan.ToDelete), plan.Unchanged, len(plan.Excluded))
	return plan, nil
}
