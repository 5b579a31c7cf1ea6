package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// HashField is one ordered (key, value) metadata pair included in a
// content hash. Callers choose which fields affect retrieval (title,
// folder path) and supply them in a fixed order; the hasher is agnostic
// to their meaning.
type HashField struct {
	Key   string
	Value string
}

// ContentHasher produces deterministic digests of document content plus
// selected metadata. The digest is the sole authoritative basis for
// change detection; source modification markers are advisory only.
type ContentHasher struct {
	maxBytes int
}

// NewContentHasher creates a hasher bounded to maxBytes of content.
// Non-positive maxBytes disables the bound.
func NewContentHasher(maxBytes int) *ContentHasher {
	return &ContentHasher{maxBytes: maxBytes}
}

// MaxBytes returns the configured content size bound.
func (h *ContentHasher) MaxBytes() int {
	return h.maxBytes
}

// Hash returns the SHA-256 hex digest of content and the given fields.
// Content exceeding the configured maximum fails with
// domain.ErrContentTooLarge rather than hashing a truncated prefix;
// a truncated hash would silently mask changes beyond the cutoff.
// Empty content is valid and hashes to a well-defined digest.
//
// Every segment is written with a length prefix so that distinct
// (content, fields) inputs can never collide by concatenation, and so
// that field ordering is part of the digest.
func (h *ContentHasher) Hash(content string, fields []HashField) (string, error) {
	if h.maxBytes > 0 && len(content) > h.maxBytes {
		return "", fmt.Errorf("%w: %d bytes, max %d", domain.ErrContentTooLarge, len(content), h.maxBytes)
	}

	d := sha256.New()
	writeSegment(d, content)
	for _, f := range fields {
		writeSegment(d, f.Key)
		writeSegment(d, f.Value)
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// HashDocument hashes a document's content together with the metadata
// fields that affect retrieval. A renamed document with an identical
// body hashes differently and is treated as modified.
func (h *ContentHasher) HashDocument(doc *domain.DocumentInfo) (string, error) {
	return h.Hash(doc.Content, []HashField{
		{Key: "title", Value: doc.Title},
		{Key: "folder_path", Value: doc.FolderPath},
	})
}

// writeSegment writes a netstring-style length-prefixed segment.
func writeSegment(w io.Writer, s string) {
	io.WriteString(w, strconv.Itoa(len(s))) //nolint:errcheck // hash.Hash never errors
	io.WriteString(w, ":")                  //nolint:errcheck
	io.WriteString(w, s)                    //nolint:errcheck
}
