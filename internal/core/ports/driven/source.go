package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// ContentSource enumerates documents from an external corpus.
// Each source type (filesystem, googledrive, sharepoint, notion, github)
// implements this interface; there is no hierarchy beyond it.
type ContentSource interface {
	// Type returns the source type identifier.
	Type() string

	// ListDocuments returns the full current document listing with
	// content. A connectivity or authentication failure returns an
	// error wrapping domain.ErrSourceUnavailable; a failure to read a
	// single document is reported on that document's ReadErr field
	// instead, so one bad document never aborts the listing.
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)

	// Close releases resources.
	Close() error
}

// WatchableSource is implemented by sources that can report corpus
// changes as they happen. Used by the CLI's watch mode to trigger
// follow-up cycles; the engine itself only ever runs discrete cycles.
type WatchableSource interface {
	ContentSource

	// Watch emits a notification whenever the corpus may have
	// changed. The channel closes when ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
