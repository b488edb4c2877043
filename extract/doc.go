// Package extract implements the feature extractor: it turns free text (a
// signal's description or a query startup description) into a fixed-size
// semantic vector plus a sparse keyword term set.
//
// Extraction is deterministic. Text normalization and term extraction are
// pure functions; embedding output is cached by content hash so retries and
// repeated calls observe identical vectors. Provider failures surface as
// core.ErrExtraction after bounded exponential-backoff retries.
package extract
