// Package sqlite implements the IndexBackend port on an embedded
// SQLite database (modernc.org/sqlite, no CGO).
//
// Chunk text, metadata and embeddings live in a single chunks table;
// embeddings are stored as little-endian float32 blobs. Similarity
// search is a brute-force cosine scan, which is adequate for the
// corpus sizes a single sync state file tracks.
package sqlite
