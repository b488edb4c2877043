// Package index provides the searchable structure over signal vectors: an
// in-memory top-K nearest-neighbor index using cosine similarity, with
// metadata pre-filtering and deterministic tie-breaking.
//
// The index is versioned by its similarity metric (Version). Concurrent
// readers are lock-free against immutable copy-on-swap snapshots; the single
// writer path is serialized internally.
package index
