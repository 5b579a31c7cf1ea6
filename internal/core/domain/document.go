package domain

import (
	"fmt"
	"strings"
)

// Field size limits applied at ingestion. Oversized values are rejected
// outright; a truncated document could be hashed cleanly and then silently
// mask a real change forever after.
const (
	// MaxIDLength is the maximum length of a document id.
	MaxIDLength = 1000

	// MaxTitleLength is the maximum length of a document title.
	MaxTitleLength = 1000

	// MaxFolderPathLength is the maximum length of a folder path.
	MaxFolderPathLength = 2000
)

// DocumentInfo represents one observed unit of source content.
// It is produced fresh by a content source on every cycle and discarded
// after reconciliation; it is never persisted.
type DocumentInfo struct {
	// ID is the stable external identifier assigned by the source.
	ID string

	// Title is the human-readable name. Title changes count as
	// modifications: the title participates in the content hash.
	Title string

	// Content is the document's textual payload. Empty content is a
	// valid corpus member, distinct from an absent document.
	Content string

	// SourceVersion is the source-reported modification marker
	// (timestamp or revision id). Advisory only; never the basis for
	// a change decision.
	SourceVersion string

	// FolderPath is the source-side location, informational.
	FolderPath string

	// Metadata contains source-specific key-value pairs carried into
	// the sync record of a successfully indexed document.
	Metadata map[string]any

	// ReadErr is set when the source enumerated this document but
	// could not read its content. Such a document is excluded from
	// both upsert and delete for the cycle and reported as a
	// per-document failure.
	ReadErr error
}

// Validate checks the document against ingestion rules.
// maxContentBytes bounds the payload size; non-positive disables the bound.
func (d *DocumentInfo) Validate(maxContentBytes int) error {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		return fmt.Errorf("%w: empty document id", ErrInvalidDocument)
	}
	if len(d.ID) > MaxIDLength {
		return fmt.Errorf("%w: document id is %d chars, max %d", ErrInvalidDocument, len(d.ID), MaxIDLength)
	}
	if strings.Contains(d.ID, "..") {
		return fmt.Errorf("%w: path traversal sequence in document id", ErrInvalidDocument)
	}
	if strings.HasPrefix(d.ID, "/") || strings.HasPrefix(d.ID, `\`) {
		return fmt.Errorf("%w: absolute path marker in document id", ErrInvalidDocument)
	}
	if len(d.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title is %d chars, max %d", ErrInvalidDocument, len(d.Title), MaxTitleLength)
	}
	if len(d.FolderPath) > MaxFolderPathLength {
		return fmt.Errorf("%w: folder path is %d chars, max %d", ErrInvalidDocument, len(d.FolderPath), MaxFolderPathLength)
	}
	if strings.Contains(d.FolderPath, "..") {
		return fmt.Errorf("%w: path traversal sequence in folder path", ErrInvalidDocument)
	}
	if maxContentBytes > 0 && len(d.Content) > maxContentBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrContentTooLarge, len(d.Content), maxContentBytes)
	}
	return nil
}

// Chunk represents a retrieval unit produced from a document.
// Documents are split into chunks before embedding so answers can cite
// granular passages.
type Chunk struct {
	// ID is the unique identifier for the chunk in the index backend.
	ID string

	// DocumentID links to the source document that produced it.
	DocumentID string

	// Text is the chunk's text content.
	Text string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}
