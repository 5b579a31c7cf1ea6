package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Chunker splits a document's text into retrieval units.
// The chunks carry fresh ids; embeddings are filled in afterwards by
// the synchronizer when an EmbeddingService is configured.
type Chunker interface {
	// Split produces ordered chunks for the document. Empty content
	// produces no chunks, which is valid: the document is tracked in
	// sync state with an empty chunk list.
	Split(ctx context.Context, doc *domain.DocumentInfo) ([]domain.Chunk, error)
}
