package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
//
// The sync engine classifies every failure into one of three bands:
// fatal-to-cycle (abort before any mutation), per-document recoverable
// (skip, report, retry next cycle) and configuration (reject at
// construction). The sentinels below are the roots of that taxonomy;
// callers match them with errors.Is.
var (
	// Fatal-to-cycle errors. A cycle that hits one of these aborts
	// before mutating the index or the state file.

	// ErrSourceUnavailable indicates the content source could not be
	// reached or refused authentication.
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrStateCorrupted indicates the persisted sync state exists but
	// could not be parsed or failed its integrity check. Losing the
	// state silently would force a full re-embedding of the corpus,
	// so this is surfaced instead of returning an empty state.
	ErrStateCorrupted = errors.New("sync state corrupted")

	// ErrDuplicateDocumentID indicates the source listing contained
	// the same document id more than once. The engine refuses to
	// guess which instance is authoritative.
	ErrDuplicateDocumentID = errors.New("duplicate document id in source listing")

	// ErrSyncInProgress indicates another cycle already holds the
	// lock for this state file.
	ErrSyncInProgress = errors.New("sync cycle already in progress")

	// Per-document, recoverable errors. These are captured in the
	// SyncReport and never abort the remaining plan.

	// ErrContentTooLarge indicates a document exceeds the configured
	// maximum size. The document is rejected whole, never truncated,
	// so a partial hash can never mask a later change.
	ErrContentTooLarge = errors.New("document content exceeds maximum size")

	// ErrInvalidDocument indicates a document failed ingestion
	// validation (empty id, path traversal marker, oversized fields).
	ErrInvalidDocument = errors.New("invalid document")

	// ErrDocumentUnreadable indicates the source could not read one
	// document's content. The document is neither upserted nor
	// deleted this cycle.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// Configuration errors. Rejected at construction, never mid-cycle.

	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown source or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMetadataNotSerializable indicates a sync record carries a
	// metadata value the state store cannot persist faithfully.
	ErrMetadataNotSerializable = errors.New("metadata value not serializable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
