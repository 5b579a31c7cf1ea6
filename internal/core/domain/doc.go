// Package domain defines the core business entities for vecsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentInfo: One observed unit of source content
//   - SyncRecord / SyncState: Persisted per-document sync bookkeeping
//   - MutationPlan: The index mutations required to reconcile a cycle
//   - SyncReport: The machine-readable outcome of one sync cycle
//   - Chunk: A retrieval unit produced from a document
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
