package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// mockSource serves a fixed listing.
type mockSource struct {
	docs    []domain.DocumentInfo
	err     error
	listing int
}

func (m *mockSource) Type() string { return "mock" }

func (m *mockSource) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	m.listing++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.DocumentInfo, len(m.docs))
	copy(out, m.docs)
	return out, nil
}

func (m *mockSource) Close() error { return nil }

// mockStore keeps state in memory and counts saves.
type mockStore struct {
	state     domain.SyncState
	loadErr   error
	saveErr   error
	saveCalls int
}

func newMockStore() *mockStore {
	return &mockStore{state: domain.NewSyncState()}
}

func (m *mockStore) Load(_ context.Context) (domain.SyncState, error) {
	if m.loadErr != nil {
		return domain.SyncState{}, m.loadErr
	}
	return m.state.Clone(), nil
}

func (m *mockStore) Save(_ context.Context, state domain.SyncState) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = state.Clone()
	return nil
}

func (m *mockStore) Remove(_ context.Context, id string) error {
	m.state.Remove(id)
	return nil
}

// mockLock counts acquisitions and releases.
type mockLock struct {
	acquireErr error
	acquired   int
	released   int
}

func (m *mockLock) Acquire(_ context.Context) (func() error, error) {
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.acquired++
	return func() error {
		m.released++
		return nil
	}, nil
}

// mockChunker splits content on "|" into deterministic chunk ids.
type mockChunker struct {
	err error
}

func (m *mockChunker) Split(_ context.Context, doc *domain.DocumentInfo) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	parts := strings.Split(doc.Content, "|")
	chunks := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s-%s-c%d", doc.ID, shortHash(doc.Content), i),
			DocumentID: doc.ID,
			Text:       part,
			Position:   i,
		})
	}
	return chunks, nil
}

// shortHash keeps chunk ids distinct across document revisions.
func shortHash(s string) string {
	h := 0
	for _, r := range s {
		h = h*31 + int(r)
	}
	return fmt.Sprintf("%x", h&0xffff)
}

// mockEmbedder returns unit vectors and can fail for chosen texts.
type mockEmbedder struct {
	failOn map[string]bool
	calls  int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.failOn[text] {
			return nil, fmt.Errorf("%w: mock refuses %q", domain.ErrEmbeddingUnavailable, text)
		}
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int   { return 3 }
func (m *mockEmbedder) ModelName() string { return "mock-embed" }
func (m *mockEmbedder) Close() error      { return nil }

// harness bundles a synchronizer with its mocks.
type harness struct {
	source   *mockSource
	index    *memory.Index
	store    *mockStore
	lock     *mockLock
	embedder *mockEmbedder
	sync     *Synchronizer
}

func newHarness(docs ...domain.DocumentInfo) *harness {
	h := &harness{
		source:   &mockSource{docs: docs},
		index:    memory.New(),
		store:    newMockStore(),
		lock:     &mockLock{},
		embedder: &mockEmbedder{},
	}
	h.sync = NewSynchronizer(
		h.source, h.index, h.store, h.lock, &mockChunker{}, h.embedder,
		NewContentHasher(0), 2,
	)
	return h
}

func (h *harness) run(t *testing.T) *domain.SyncReport {
	t.Helper()
	report, err := h.sync.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	return report
}

func TestSynchronizer_FirstCycle(t *testing.T) {
	h := newHarness(doc("a", "alpha"), doc("b", "beta|beta2"))

	report := h.run(t)

	assert.Equal(t, domain.StatusClean, report.Status)
	assert.True(t, report.StateCommitted)
	assert.Equal(t, []string{"a", "b"}, report.Added)
	assert.Empty(t, report.Modified)
	assert.Empty(t, report.Deleted)
	assert.Empty(t, report.Failed)

	assert.Equal(t, 3, h.index.Len())
	assert.Equal(t, 2, h.store.state.Len())
	assert.Equal(t, 1, h.store.saveCalls)
	assert.Equal(t, 1, h.lock.released)

	rec, ok := h.store.state.Get("b")
	require.True(t, ok)
	assert.Len(t, rec.ChunkIDs, 2)
	assert.NotEmpty(t, rec.ContentHash)
}

func TestSynchronizer_IdempotentCycle(t *testing.T) {
	h := newHarness(doc("a", "alpha"), doc("b", "beta"))
	h.run(t)

	upserts := h.index.UpsertCalls
	deletes := h.index.DeleteCalls
	saves := h.store.saveCalls

	report := h.run(t)

	assert.Equal(t, domain.StatusClean, report.Status)
	assert.True(t, report.StateCommitted)
	assert.Equal(t, 2, report.Unchanged)
	assert.Equal(t, 0, report.Mutations())

	// A no-op cycle touches neither the backend nor the state file.
	assert.Equal(t, upserts, h.index.UpsertCalls)
	assert.Equal(t, deletes, h.index.DeleteCalls)
	assert.Equal(t, saves, h.store.saveCalls)
}

func TestSynchronizer_ModifiedDeleteBeforeInsert(t *testing.T) {
	h := newHarness(doc("a", "v1|v1b|v1c"))
	h.run(t)

	oldChunks := h.index.ChunkIDsFor("a")
	require.Len(t, oldChunks, 3)

	// Shrink to one chunk; the old three must be gone afterwards.
	h.source.docs = []domain.DocumentInfo{doc("a", "v2")}
	report := h.run(t)

	assert.Equal(t, []string{"a"}, report.Modified)
	assert.Equal(t, domain.StatusClean, report.Status)

	newChunks := h.index.ChunkIDsFor("a")
	assert.Len(t, newChunks, 1)
	assert.Equal(t, 1, h.index.Len())
	for _, old := range oldChunks {
		assert.NotContains(t, newChunks, old)
	}
}

func TestSynchronizer_Deleted(t *testing.T) {
	h := newHarness(doc("a", "alpha"), doc("b", "beta"))
	h.run(t)

	h.source.docs = []domain.DocumentInfo{doc("a", "alpha")}
	report := h.run(t)

	assert.Equal(t, []string{"b"}, report.Deleted)
	assert.Equal(t, 1, h.index.Len())
	assert.Equal(t, 1, h.store.state.Len())
	_, ok := h.store.state.Get("b")
	assert.False(t, ok)
}

func TestSynchronizer_AbortsBeforeMutation(t *testing.T) {
	t.Run("source unavailable", func(t *testing.T) {
		h := newHarness()
		h.source.err = fmt.Errorf("%w: connection refused", domain.ErrSourceUnavailable)

		report, err := h.sync.RunCycle(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		assert.Nil(t, report)
		assert.Equal(t, 0, h.store.saveCalls)
	})

	t.Run("corrupted state", func(t *testing.T) {
		h := newHarness(doc("a", "alpha"))
		h.store.loadErr = fmt.Errorf("%w: checksum mismatch", domain.ErrStateCorrupted)

		report, err := h.sync.RunCycle(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStateCorrupted)
		assert.Nil(t, report)
		assert.Equal(t, 0, h.index.UpsertCalls)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		h := newHarness(doc("a", "1"), doc("a", "2"))

		report, err := h.sync.RunCycle(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateDocumentID)
		assert.Nil(t, report)
		assert.Equal(t, 0, h.index.UpsertCalls)
		assert.Equal(t, 0, h.store.saveCalls)
	})

	t.Run("concurrent cycle", func(t *testing.T) {
		h := newHarness(doc("a", "alpha"))
		h.lock.acquireErr = domain.ErrSyncInProgress

		report, err := h.sync.RunCycle(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSyncInProgress)
		assert.Nil(t, report)
		assert.Equal(t, 0, h.source.listing)
	})
}

func TestSynchronizer_PerDocumentFailure(t *testing.T) {
	h := newHarness(doc("good", "fine"), doc("bad", "poison"))
	h.embedder.failOn = map[string]bool{"poison": true}

	report := h.run(t)

	assert.Equal(t, domain.StatusPartial, report.Status)
	assert.Equal(t, []string{"good"}, report.Added)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "bad", report.Failed[0].ID)
	assert.Contains(t, report.Failed[0].Reason, "embedding")

	// The failed document has no record; the good one does.
	_, ok := h.store.state.Get("bad")
	assert.False(t, ok)
	_, ok = h.store.state.Get("good")
	assert.True(t, ok)

	// Next cycle retries only the failed document.
	h.embedder.failOn = nil
	report = h.run(t)

	assert.Equal(t, domain.StatusClean, report.Status)
	assert.Equal(t, []string{"bad"}, report.Added)
	assert.Equal(t, 1, report.Unchanged)
}

func TestSynchronizer_FailedModifyKeepsPriorRecord(t *testing.T) {
	h := newHarness(doc("a", "v1"))
	h.run(t)
	before, _ := h.store.state.Get("a")

	h.source.docs = []domain.DocumentInfo{doc("a", "v2")}
	h.embedder.failOn = map[string]bool{"v2": true}

	report := h.run(t)

	assert.Equal(t, domain.StatusPartial, report.Status)
	require.Len(t, report.Failed, 1)

	after, ok := h.store.state.Get("a")
	require.True(t, ok)
	assert.Equal(t, before.ContentHash, after.ContentHash)
}

func TestSynchronizer_UnreadableDocumentReported(t *testing.T) {
	broken := doc("broken", "")
	broken.ReadErr = errors.New("io timeout")
	h := newHarness(doc("ok", "fine"), broken)

	report := h.run(t)

	assert.Equal(t, domain.StatusPartial, report.Status)
	assert.Equal(t, []string{"ok"}, report.Added)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "broken", report.Failed[0].ID)
	assert.Equal(t, 1, h.store.state.Len())
}

func TestSynchronizer_SaveFailureReturnsError(t *testing.T) {
	h := newHarness(doc("a", "alpha"))
	h.store.saveErr = errors.New("disk full")

	report, err := h.sync.RunCycle(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, domain.StatusPartial, report.Status)

	// Distinguishable from per-document failures: the mutations applied
	// but nothing was recorded, so the whole set re-applies next cycle.
	assert.False(t, report.StateCommitted)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"a"}, report.Added)
}

func TestSynchronizer_NilEmbedderIndexesWithoutVectors(t *testing.T) {
	h := newHarness(doc("a", "alpha"))
	h.sync = NewSynchronizer(
		h.source, h.index, h.store, h.lock, &mockChunker{}, nil,
		NewContentHasher(0), 2,
	)

	report := h.run(t)

	assert.Equal(t, domain.StatusClean, report.Status)
	assert.Equal(t, 1, h.index.Len())
	assert.Equal(t, 0, h.embedder.calls)
}

func TestSynchronizer_CancelledContextSkipsUndispatched(t *testing.T) {
	docs := make([]domain.DocumentInfo, 50)
	for i := range docs {
		docs[i] = doc(fmt.Sprintf("doc-%02d", i), "content")
	}
	h := newHarness(docs...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.sync.RunCycle(ctx)
	// The lock acquires and the plan builds, but every task either fails
	// fast or is reported undispatched; nothing hangs.
	if err != nil {
		assert.Nil(t, report)
		return
	}
	require.NotNil(t, report)
	assert.Equal(t, len(docs), len(report.Added)+len(report.Failed))
}
