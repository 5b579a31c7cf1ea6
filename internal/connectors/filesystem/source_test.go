package filesystem

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

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew(t *testing.T) {
	t.Run("rejects missing root", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "missing"), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})

	t.Run("rejects file root", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "file.txt", "x")

		_, err := New(filepath.Join(root, "file.txt"), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})

	t.Run("accepts directory root", func(t *testing.T) {
		src, err := New(t.TempDir(), nil)
		require.NoError(t, err)
		assert.Equal(t, "filesystem", src.Type())
	})
}

func TestSource_ListDocuments(t *testing.T) {
	t.Run("lists matching files sorted by id", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "b.md", "# B")
		writeFile(t, root, "sub/a.txt", "content a")
		writeFile(t, root, "skip.pdf", "binary")

		src, err := New(root, nil)
		require.NoError(t, err)

		docs, err := src.ListDocuments(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 2)

		assert.Equal(t, "b.md", docs[0].ID)
		assert.Equal(t, "b.md", docs[0].Title)
		assert.Equal(t, "", docs[0].FolderPath)
		assert.Equal(t, "# B", docs[0].Content)

		assert.Equal(t, "sub/a.txt", docs[1].ID)
		assert.Equal(t, "a.txt", docs[1].Title)
		assert.Equal(t, "sub", docs[1].FolderPath)
		assert.Equal(t, "content a", docs[1].Content)
	})

	t.Run("honours configured extensions", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "notes.org", "org content")
		writeFile(t, root, "readme.md", "md content")

		src, err := New(root, []string{"org"})
		require.NoError(t, err)

		docs, err := src.ListDocuments(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "notes.org", docs[0].ID)
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, ".hidden.md", "hidden")
		writeFile(t, root, ".git/objects.md", "internals")
		writeFile(t, root, "visible.md", "shown")

		src, err := New(root, nil)
		require.NoError(t, err)

		docs, err := src.ListDocuments(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "visible.md", docs[0].ID)
	})

	t.Run("records source version from mtime", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "doc.txt", "v1")

		src, err := New(root, nil)
		require.NoError(t, err)

		docs, err := src.ListDocuments(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.NotEmpty(t, docs[0].SourceVersion)
	})

	t.Run("cancelled context aborts the walk", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "doc.txt", "x")

		src, err := New(root, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = src.ListDocuments(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSource_Watch(t *testing.T) {
	t.Run("notifies on file creation", func(t *testing.T) {
		root := t.TempDir()
		src, err := New(root, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := src.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, root, "new.md", "fresh")

		select {
		case _, ok := <-events:
			assert.True(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("no watch notification received")
		}
	})

	t.Run("channel closes on cancel", func(t *testing.T) {
		src, err := New(t.TempDir(), nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		events, err := src.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("watch channel did not close")
		}
	})
}

func TestFolderOf(t *testing.T) {
	assert.Equal(t, "", folderOf("doc.md"))
	assert.Equal(t, "a", folderOf("a/doc.md"))
	assert.Equal(t, "a/b", folderOf("a/b/doc.md"))
}
