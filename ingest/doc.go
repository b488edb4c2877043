// Package ingest moves signal batches into the system: per-record
// validation, pooled feature extraction, durable storage, and index updates,
// with feed cursors persisted between runs.
package ingest
