package domain

import "time"

// CycleStatus is the terminal status of a sync cycle.
type CycleStatus string

const (
	// StatusClean means every planned mutation succeeded.
	StatusClean CycleStatus = "clean"

	// StatusPartial means the cycle mutated the index but not every
	// outcome is durable: some documents failed, or the state commit
	// itself failed. Whatever did not commit retries next cycle.
	StatusPartial CycleStatus = "partial"

	// StatusAborted means the cycle stopped before any mutation.
	StatusAborted CycleStatus = "aborted"
)

// DocumentFailure records one per-document error for the report.
type DocumentFailure struct {
	// ID is the document that failed.
	ID string `json:"id"`

	// Reason is the error message, with the error class up front so
	// automated retry policy can distinguish failure modes.
	Reason string `json:"reason"`
}

// SyncReport is the machine-readable outcome of one sync cycle.
// "No changes found" and "some documents failed" are both normal,
// expressible outcomes, not exceptions.
type SyncReport struct {
	// Status distinguishes clean completion, completion with
	// per-document failures, and abort before any mutation.
	Status CycleStatus `json:"status"`

	// Added lists ids newly upserted this cycle.
	Added []string `json:"added"`

	// Modified lists ids re-upserted this cycle.
	Modified []string `json:"modified"`

	// Deleted lists ids purged from the index this cycle.
	Deleted []string `json:"deleted"`

	// Failed lists per-document failures. Each document retains its
	// previous sync record and will be retried next cycle.
	Failed []DocumentFailure `json:"failed"`

	// Unchanged counts documents left untouched.
	Unchanged int `json:"unchanged"`

	// StateCommitted reports whether the on-disk state reflects this
	// cycle's mutations. False with a partial status means the index
	// was mutated but the state save failed; the affected documents
	// reclassify and re-apply next cycle.
	StateCommitted bool `json:"state_committed"`

	// StartedAt and FinishedAt bound the cycle.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// HasFailures reports whether any per-document failure was recorded.
func (r *SyncReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Mutations returns the total number of successful index mutations.
func (r *SyncReport) Mutations() int {
	return len(r.Added) + len(r.Modified) + len(r.Deleted)
}
