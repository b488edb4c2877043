// Package reembed regenerates signal vectors with a new embedding model.
// It walks every stored signal in batches, re-embeds the signal text, writes
// the updated vectors back, and reports progress. The caller rebuilds the
// search index afterwards so queries never mix vector spaces.
package reembed
