// Package score computes relevance scores for (query, candidate) pairs as a
// weighted blend of semantic similarity, keyword overlap, and metadata fit.
// Weights and the category taxonomy are configuration with fixed defaults.
package score
