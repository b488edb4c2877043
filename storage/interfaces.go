package storage

import (
	"context"

	"github.com/poiesic/sigmatch/core"
)

// SignalRepository provides operations for managing signal records.
// Implementations must be thread-safe and support concurrent readers; the
// ingestion pipeline is the only writer.
type SignalRepository interface {
	// PutSignals inserts or replaces one or more signals.
	// Sets InsertedAt on first write and UpdatedAt on every write.
	// Returns the signals with timestamps populated.
	PutSignals(ctx context.Context, signals ...*core.Signal) ([]*core.Signal, error)

	// DeleteSignals removes signals by their IDs.
	// Returns ErrNotFound if any signal doesn't exist.
	DeleteSignals(ctx context.Context, ids ...core.ID) error

	// GetSignal retrieves a single signal by ID.
	// Returns ErrNotFound if the signal doesn't exist.
	GetSignal(ctx context.Context, id core.ID) (*core.Signal, error)

	// GetSignals retrieves multiple signals by their IDs.
	// Returns only the signals that exist (no error for missing signals).
	GetSignals(ctx context.Context, ids ...core.ID) ([]*core.Signal, error)

	// ForEachSignal iterates over every stored signal.
	// Iteration stops on the first error from fn.
	ForEachSignal(ctx context.Context, fn func(*core.Signal) error) error

	// GetRecentSignals retrieves the N most recently published signals,
	// ordered by publication time descending.
	GetRecentSignals(ctx context.Context, limit int) ([]*core.Signal, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// CheckpointRepository persists ingestion feed cursors.
type CheckpointRepository interface {
	// GetCheckpoint retrieves a checkpoint by name.
	// Returns nil (no error) if the checkpoint doesn't exist.
	GetCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// PutCheckpoint stores a checkpoint, stamping UpdatedAt.
	PutCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error
}
