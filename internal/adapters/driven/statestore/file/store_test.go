package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "sync-state.json"))
	require.NoError(t, err)
	return store
}

func sampleState() domain.SyncState {
	state := domain.NewSyncState()
	state.Set("doc-1", domain.SyncRecord{
		ContentHash:   "abc123",
		ChunkIDs:      []string{"c1", "c2"},
		Title:         "First",
		SourceVersion: "v1",
		LastSyncedAt:  time.Now().UTC().Truncate(time.Second),
		Metadata:      map[string]any{"tags": []string{"a", "b"}},
	})
	return state
}

func TestNewStore(t *testing.T) {
	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewStore("")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("creates missing parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "deep", "state.json")

		store, err := NewStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), domain.NewSyncState()))

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, state.Len())
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(context.Background(), sampleState()))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())

	rec, ok := loaded.Get("doc-1")
	require.True(t, ok)
	assert.Equal(t, "abc123", rec.ContentHash)
	assert.Equal(t, []string{"c1", "c2"}, rec.ChunkIDs)
	assert.Equal(t, "First", rec.Title)
	assert.Equal(t, "v1", rec.SourceVersion)
}

func TestStore_SaveIsAtomic(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), sampleState()))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(store.Path()), entries[0].Name())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_LoadCorrupted(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, os.WriteFile(store.Path(), []byte("{truncated"), 0o600))

		_, err := store.Load(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStateCorrupted)
	})

	t.Run("unsupported version", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, os.WriteFile(store.Path(), []byte(`{"version": 99, "records": {}}`), 0o600))

		_, err := store.Load(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStateCorrupted)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Save(context.Background(), sampleState()))

		// Tamper with a record without updating the checksum.
		raw, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		var f map[string]any
		require.NoError(t, json.Unmarshal(raw, &f))
		records := f["records"].(map[string]any)
		rec := records["doc-1"].(map[string]any)
		rec["content_hash"] = "tampered"
		tampered, err := json.Marshal(f)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.Path(), tampered, 0o600))

		_, err = store.Load(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStateCorrupted)
	})
}

func TestStore_Remove(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), sampleState()))

	require.NoError(t, store.Remove(context.Background(), "doc-1"))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())

	// Removing an unknown id is a no-op, not an error.
	assert.NoError(t, store.Remove(context.Background(), "ghost"))
}

func TestStore_RejectsUnserializableMetadata(t *testing.T) {
	store := newTestStore(t)

	state := domain.NewSyncState()
	state.Set("doc-1", domain.SyncRecord{
		ContentHash: "abc",
		Metadata:    map[string]any{"bad": make(chan int)},
	})

	err := store.Save(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMetadataNotSerializable)

	// The previous file, if any, is untouched.
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_RejectsDeeplyNestedMetadata(t *testing.T) {
	store := newTestStore(t)

	nested := map[string]any{"leaf": "v"}
	for i := 0; i < maxMetadataDepth+1; i++ {
		nested = map[string]any{"level": nested}
	}
	state := domain.NewSyncState()
	state.Set("doc-1", domain.SyncRecord{ContentHash: "abc", Metadata: nested})

	err := store.Save(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMetadataNotSerializable)
}
