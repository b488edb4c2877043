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

package reembed

import (
	"context"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/storage"
)

// DefaultBatchSize is the default number of signals per batch.
const DefaultBatchSize = 100

// SignalIterator walks every stored signal in batches.
type SignalIterator struct {
	repo      storage.SignalRepository
	batchSize int
}

// NewSignalIterator creates an iterator. A non-positive batchSize falls back
// to DefaultBatchSize.
func NewSignalIterator(repo storage.SignalRepository, batchSize int) *SignalIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SignalIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// Count returns the number of stored signals.
func (it *SignalIterator) Count(ctx context.Context) (int, error) {
	count := 0
	err := it.repo.ForEachSignal(ctx, func(*core.Signal) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ForEach calls fn for each batch of signals. Iteration stops on the first
// error from fn; context cancellation is checked between batches.
func (it *SignalIterator) ForEach(ctx context.Context, fn func([]*core.Signal) error) error {
	batch := make([]*core.Signal, 0, it.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	err := it.repo.ForEachSignal(ctx, func(signal *core.Signal) error {
		batch = append(batch, signal)
		if len(batch) >= it.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}

	return flush()
}
