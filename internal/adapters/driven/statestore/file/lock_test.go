package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func TestLockPath(t *testing.T) {
	assert.Equal(t, "/tmp/state.json.lock", LockPath("/tmp/state.json"))
}

func TestLock_AcquireRelease(t *testing.T) {
	path := LockPath(filepath.Join(t.TempDir(), "state.json"))
	lock := NewLock(path, 0)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)

	require.NoError(t, release())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLock_ContentionFailsFast(t *testing.T) {
	path := LockPath(filepath.Join(t.TempDir(), "state.json"))
	lock := NewLock(path, 0)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = NewLock(path, 0).Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
}

func TestLock_ReleaseIsIdempotent(t *testing.T) {
	path := LockPath(filepath.Join(t.TempDir(), "state.json"))
	lock := NewLock(path, 0)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	assert.NoError(t, release())
	assert.NoError(t, release())
}

func TestLock_StaleTakeover(t *testing.T) {
	path := LockPath(filepath.Join(t.TempDir(), "state.json"))

	// Simulate a lock left behind by a crashed cycle.
	require.NoError(t, os.WriteFile(path, []byte(`{"pid": 1}`), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	t.Run("fresh enough lock is respected", func(t *testing.T) {
		_, err := NewLock(path, 2*time.Hour).Acquire(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	})

	t.Run("stale lock is taken over", func(t *testing.T) {
		release, err := NewLock(path, 30*time.Minute).Acquire(context.Background())
		require.NoError(t, err)
		require.NoError(t, release())
	})
}

func TestLock_ReacquireAfterRelease(t *testing.T) {
	path := LockPath(filepath.Join(t.TempDir(), "state.json"))
	lock := NewLock(path, 0)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, release())

	release, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.NoError(t, release())
}
