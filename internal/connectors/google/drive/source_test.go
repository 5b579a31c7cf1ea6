package drive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gdrive "google.golang.org/api/drive/v3"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func TestReadBounded(t *testing.T) {
	t.Run("returns content within the limit", func(t *testing.T) {
		got, err := readBounded(strings.NewReader("report body"), "file f1")
		require.NoError(t, err)
		assert.Equal(t, "report body", got)
	})

	t.Run("content at the limit is kept intact", func(t *testing.T) {
		exact := strings.Repeat("a", MaxFetchSize)
		got, err := readBounded(strings.NewReader(exact), "file f1")
		require.NoError(t, err)
		assert.Len(t, got, MaxFetchSize)
	})

	t.Run("content past the limit fails instead of truncating", func(t *testing.T) {
		oversize := strings.Repeat("a", MaxFetchSize+1)
		_, err := readBounded(strings.NewReader(oversize), "export of f1")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrContentTooLarge)
	})
}

func TestIsTextMime(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"text/plain", true},
		{"text/markdown", true},
		{"application/json", true},
		{"application/sql", true},
		{"application/pdf", false},
		{"image/png", false},
		{"application/octet-stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, isTextMime(tt.mime))
		})
	}
}

func TestIsFetchable(t *testing.T) {
	t.Run("workspace files are always fetchable", func(t *testing.T) {
		assert.True(t, isFetchable(&gdrive.File{MimeType: MimeTypeGoogleDoc}))
		assert.True(t, isFetchable(&gdrive.File{MimeType: MimeTypeGoogleSheet, Size: MaxFetchSize * 2}))
	})

	t.Run("oversized regular files are skipped", func(t *testing.T) {
		assert.False(t, isFetchable(&gdrive.File{MimeType: "text/plain", Size: MaxFetchSize + 1}))
	})

	t.Run("binary files are skipped", func(t *testing.T) {
		assert.False(t, isFetchable(&gdrive.File{MimeType: "image/png", Size: 10}))
	})

	t.Run("small text files are fetchable", func(t *testing.T) {
		assert.True(t, isFetchable(&gdrive.File{MimeType: "text/plain", Size: 10}))
	})
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "docs", joinPath("", "docs"))
	assert.Equal(t, "docs/guides", joinPath("docs", "guides"))
}
