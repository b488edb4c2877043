// Package server is the HTTP surface of the matching engine: match queries,
// batch signal ingestion, signal deletion, and a health probe. Errors carry
// stable machine-readable codes in a JSON envelope.
package server
