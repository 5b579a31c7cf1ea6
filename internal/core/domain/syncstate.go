package domain

import "time"

// SyncRecord is the persisted bookkeeping for one previously-synced
// document. It is created on first successful upsert, updated on every
// successful re-upsert, and removed only after the document's chunks
// have been deleted from the index backend.
type SyncRecord struct {
	// ContentHash is the digest recorded at the last successful sync.
	// It is the sole authoritative basis for change detection.
	ContentHash string `json:"content_hash"`

	// ChunkIDs are the index-backend identifiers produced for this
	// document, in order. Needed to delete exactly the right chunks
	// on modification or removal.
	ChunkIDs []string `json:"chunk_ids"`

	// Title is the document title at last sync, informational.
	Title string `json:"title,omitempty"`

	// SourceVersion is the source's modification marker at last sync.
	// Stored for observability; never consulted for change decisions.
	SourceVersion string `json:"source_version,omitempty"`

	// LastSyncedAt is when this record was last written, informational.
	LastSyncedAt time.Time `json:"last_synced_at"`

	// Metadata carries source-specific values captured at sync time.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SyncState is the full persisted mapping of document id to SyncRecord.
// It is loaded once at cycle start, mutated in memory by a single writer,
// and written back atomically after the cycle's mutations complete.
type SyncState struct {
	// Records maps document id to its sync record.
	Records map[string]SyncRecord
}

// NewSyncState returns an empty state.
func NewSyncState() SyncState {
	return SyncState{Records: make(map[string]SyncRecord)}
}

// Get returns the record for id, if present.
func (s SyncState) Get(id string) (SyncRecord, bool) {
	rec, ok := s.Records[id]
	return rec, ok
}

// Set stores or replaces the record for id.
func (s SyncState) Set(id string, rec SyncRecord) {
	s.Records[id] = rec
}

// Remove deletes the record for id if present.
func (s SyncState) Remove(id string) {
	delete(s.Records, id)
}

// Len returns the number of tracked documents.
func (s SyncState) Len() int {
	return len(s.Records)
}

// Clone returns a deep-enough copy for a cycle to mutate without
// aliasing the loaded state's record map.
func (s SyncState) Clone() SyncState {
	out := NewSyncState()
	for id, rec := range s.Records {
		ids := make([]string, len(rec.ChunkIDs))
		copy(ids, rec.ChunkIDs)
		rec.ChunkIDs = ids
		out.Records[id] = rec
	}
	return out
}
