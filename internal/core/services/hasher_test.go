package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func TestContentHasher_Hash(t *testing.T) {
	hasher := NewContentHasher(0)

	t.Run("is deterministic", func(t *testing.T) {
		fields := []HashField{{Key: "title", Value: "Guide"}}

		h1, err := hasher.Hash("some content", fields)
		require.NoError(t, err)
		h2, err := hasher.Hash("some content", fields)
		require.NoError(t, err)

		assert.Equal(t, h1, h2)
		assert.Len(t, h1, 64)
	})

	t.Run("content changes the digest", func(t *testing.T) {
		h1, err := hasher.Hash("one", nil)
		require.NoError(t, err)
		h2, err := hasher.Hash("two", nil)
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2)
	})

	t.Run("field values change the digest", func(t *testing.T) {
		h1, err := hasher.Hash("body", []HashField{{Key: "title", Value: "A"}})
		require.NoError(t, err)
		h2, err := hasher.Hash("body", []HashField{{Key: "title", Value: "B"}})
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2)
	})

	t.Run("segment boundaries cannot collide", func(t *testing.T) {
		// Same concatenation, different split between content and field.
		h1, err := hasher.Hash("ab", []HashField{{Key: "k", Value: "c"}})
		require.NoError(t, err)
		h2, err := hasher.Hash("a", []HashField{{Key: "k", Value: "bc"}})
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2)
	})

	t.Run("empty content is valid", func(t *testing.T) {
		h1, err := hasher.Hash("", nil)
		require.NoError(t, err)
		assert.Len(t, h1, 64)
	})

	t.Run("oversize content is rejected, not truncated", func(t *testing.T) {
		bounded := NewContentHasher(10)

		_, err := bounded.Hash(strings.Repeat("x", 11), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrContentTooLarge)

		_, err = bounded.Hash(strings.Repeat("x", 10), nil)
		assert.NoError(t, err)
	})
}

func TestContentHasher_HashDocument(t *testing.T) {
	hasher := NewContentHasher(0)

	base := domain.DocumentInfo{
		ID:         "doc-1",
		Title:      "Guide",
		Content:    "body",
		FolderPath: "docs",
	}

	baseHash, err := hasher.HashDocument(&base)
	require.NoError(t, err)

	t.Run("rename changes the hash", func(t *testing.T) {
		renamed := base
		renamed.Title = "Guide v2"

		h, err := hasher.HashDocument(&renamed)
		require.NoError(t, err)
		assert.NotEqual(t, baseHash, h)
	})

	t.Run("move changes the hash", func(t *testing.T) {
		moved := base
		moved.FolderPath = "archive"

		h, err := hasher.HashDocument(&moved)
		require.NoError(t, err)
		assert.NotEqual(t, baseHash, h)
	})

	t.Run("source version does not affect the hash", func(t *testing.T) {
		touched := base
		touched.SourceVersion = "2024-06-01T00:00:00Z"

		h, err := hasher.HashDocument(&touched)
		require.NoError(t, err)
		assert.Equal(t, baseHash, h)
	})
}
