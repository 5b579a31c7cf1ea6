package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// IndexBackend stores retrieval chunks for documents.
// Upsert and Delete are expected to be idempotent: re-applying the same
// mutation is a no-op, not an error. The backend provides per-document
// atomicity only; the engine never assumes cross-document transactions.
type IndexBackend interface {
	// Upsert replaces the document's entire stored chunk set with the
	// given chunks. Previously stored chunks for the document that are
	// not in the new set are removed.
	Upsert(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// Delete removes the given chunks. Unknown ids are ignored.
	Delete(ctx context.Context, chunkIDs []string) error

	// Search returns the k nearest chunks to the query vector by
	// cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]SearchHit, error)

	// Stats returns aggregate index counters.
	Stats(ctx context.Context) (IndexStats, error)

	// Close releases resources.
	Close() error
}

// SearchHit is one similarity search result.
type SearchHit struct {
	// Chunk is the matched chunk, embedding omitted.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}

// IndexStats holds aggregate counters for the index backend.
type IndexStats struct {
	// Documents is the number of distinct document ids with chunks.
	Documents int

	// Chunks is the total number of stored chunks.
	Chunks int
}
