// Package memory provides an in-memory IndexBackend for tests and
// development runs without a persistent index.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.IndexBackend = (*Index)(nil)

// Index is an in-memory implementation of driven.IndexBackend.
type Index struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk // chunk id -> chunk

	// Call counters, handy for asserting the engine's no-op and
	// orphan-free guarantees in tests.
	UpsertCalls int
	DeleteCalls int
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{chunks: make(map[string]domain.Chunk)}
}

// Upsert replaces the stored chunk set for a document.
func (x *Index) Upsert(_ context.Context, documentID string, chunks []domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.UpsertCalls++

	for id, c := range x.chunks {
		if c.DocumentID == documentID {
			delete(x.chunks, id)
		}
	}
	for _, c := range chunks {
		c.DocumentID = documentID
		x.chunks[c.ID] = c
	}
	return nil
}

// Delete removes the given chunks; unknown ids are ignored.
func (x *Index) Delete(_ context.Context, chunkIDs []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.DeleteCalls++

	for _, id := range chunkIDs {
		delete(x.chunks, id)
	}
	return nil
}

// Search returns the k nearest stored chunks by cosine similarity.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]driven.SearchHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []driven.SearchHit
	for _, c := range x.chunks {
		if len(c.Embedding) != len(query) || len(query) == 0 {
			continue
		}
		hits = append(hits, driven.SearchHit{Chunk: c, Similarity: cosine(query, c.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Stats returns aggregate counters.
func (x *Index) Stats(_ context.Context) (driven.IndexStats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, c := range x.chunks {
		docs[c.DocumentID] = struct{}{}
	}
	return driven.IndexStats{Documents: len(docs), Chunks: len(x.chunks)}, nil
}

// Close is a no-op.
func (x *Index) Close() error {
	return nil
}

// ChunkIDsFor returns the stored chunk ids for a document, sorted.
// Test helper.
func (x *Index) ChunkIDsFor(documentID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var ids []string
	for id, c := range x.chunks {
		if c.DocumentID == documentID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the total number of stored chunks. Test helper.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
