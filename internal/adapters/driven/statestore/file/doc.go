// Package file implements the SyncStateStore and CycleLock ports on a
// single JSON state file plus a sibling lock file.
//
// Saves are atomic: the state is written to a temporary file in the same
// directory, synced, and renamed into place. A crash mid-write never
// leaves a half-written state file observable, so a partial SyncRecord
// can never be read back. The file carries a checksum over its record
// map; a failed integrity check surfaces as domain.ErrStateCorrupted
// rather than a silent empty state, because losing the mapping would
// force a full re-embedding of the corpus.
package file
