// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/storage"
)

// SignalRepository is the BadgerDB-backed implementation of
// storage.SignalRepository. Signals are stored under an ID key and indexed
// by publication time through a composite date key, which serves the
// recency queries.
type SignalRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.SignalRepository = (*SignalRepository)(nil)

// NewSignalRepository creates a signal repository on top of an open backend.
func NewSignalRepository(backend *Backend) *SignalRepository {
	return &SignalRepository{
		backend: backend,
		logger:  slog.Default().With("component", "storage.signals"),
	}
}

// PutSignals inserts or replaces signals, stamping InsertedAt on first write
// and UpdatedAt on every write. The publication-date index entry is rewritten
// whenever PublishedAt changes.
func (r *SignalRepository) PutSignals(ctx context.Context, signals ...*core.Signal) ([]*core.Signal, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	now := time.Now()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, signal := range signals {
			existing, err := readSignal(tx, signal.Id)
			if err != nil {
				return err
			}

			if existing != nil {
				signal.InsertedAt = existing.InsertedAt
				if !existing.PublishedAt.Equal(signal.PublishedAt) {
					if err := tx.Delete(makeSignalDateKey(existing.PublishedAt, existing.Id)); err != nil {
						return err
					}
				}
			} else {
				signal.InsertedAt = now
			}
			signal.UpdatedAt = now

			if err := tx.Set(makeSignalKey(signal.Id), storage.MarshalSignal(signal)); err != nil {
				return err
			}
			if err := tx.Set(makeSignalDateKey(signal.PublishedAt, signal.Id), storage.MarshalID(signal.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("stored signals", "count", len(signals))
	return signals, nil
}

// DeleteSignals removes signals and their date-index entries.
// Returns storage.ErrNotFound if any signal does not exist.
func (r *SignalRepository) DeleteSignals(ctx context.Context, ids ...core.ID) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			signal, err := readSignal(tx, id)
			if err != nil {
				return err
			}
			if signal == nil {
				return fmt.Errorf("%w: signal %s", storage.ErrNotFound, id)
			}
			if err := tx.Delete(makeSignalKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeSignalDateKey(signal.PublishedAt, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetSignal retrieves a single signal by ID.
func (r *SignalRepository) GetSignal(ctx context.Context, id core.ID) (*core.Signal, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var signal *core.Signal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		signal, err = readSignal(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if signal == nil {
		return nil, fmt.Errorf("%w: signal %s", storage.ErrNotFound, id)
	}
	return signal, nil
}

// GetSignals retrieves multiple signals, skipping IDs that do not exist.
func (r *SignalRepository) GetSignals(ctx context.Context, ids ...core.ID) ([]*core.Signal, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	signals := make([]*core.Signal, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			signal, err := readSignal(tx, id)
			if err != nil {
				return err
			}
			if signal != nil {
				signals = append(signals, signal)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return signals, nil
}

// ForEachSignal iterates over every stored signal in key order.
func (r *SignalRepository) ForEachSignal(ctx context.Context, fn func(*core.Signal) error) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(signalPrefix + ":")
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var signal *core.Signal
			err := it.Item().Value(func(val []byte) error {
				var err error
				signal, err = storage.UnmarshalSignal(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			if err := fn(signal); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// GetRecentSignals retrieves the N most recently published signals,
// newest first, by walking the date index in reverse.
func (r *SignalRepository) GetRecentSignals(ctx context.Context, limit int) ([]*core.Signal, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 {
		return []*core.Signal{}, nil
	}

	signals := make([]*core.Signal, 0, limit)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(signalDatePrefix + ":")
		opts.Reverse = true
		it := tx.NewIterator(opts)
		defer it.Close()

		// In reverse mode the seek key must sort after every index key.
		seek := append([]byte(signalDatePrefix+":"), 0xFF)
		for it.Seek(seek); it.Valid() && len(signals) < limit; it.Next() {
			var id core.ID
			err := it.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			signal, err := readSignal(tx, id)
			if err != nil {
				return err
			}
			if signal != nil {
				signals = append(signals, signal)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return signals, nil
}

// WithTransaction executes a function within a transaction.
func (r *SignalRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTransaction(ctx, fn)
}

// Close closes the underlying backend.
func (r *SignalRepository) Close() error {
	if r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}

// readSignal loads a signal within a transaction.
// Returns nil without error when the key is absent.
func readSignal(tx *badger.Txn, id core.ID) (*core.Signal, error) {
	item, err := tx.Get(makeSignalKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var signal *core.Signal
	err = item.Value(func(val []byte) error {
		var err error
		signal, err = storage.UnmarshalSignal(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return signal, nil
}
