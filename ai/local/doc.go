// Package local provides an offline, deterministic ai.Embedder based on
// token feature hashing. It trades embedding quality for zero dependencies
// and full reproducibility.
package local
