// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the sync engine to function:
//
//   - ContentSource: Enumerates documents from the external corpus
//   - IndexBackend: Stores and deletes retrieval chunks
//   - SyncStateStore: Durable per-document sync bookkeeping
//   - CycleLock: Exclusivity marker for one cycle per state/index pair
//   - Chunker: Splits document text into retrieval units
//
// # Optional Interfaces
//
//   - EmbeddingService: Generates vectors; when nil, chunks are stored
//     without embeddings and semantic search is disabled
package driven
