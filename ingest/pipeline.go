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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/extract"
	"github.com/poiesic/sigmatch/index"
	"github.com/poiesic/sigmatch/storage"
)

const defaultWorkers = 4

// ErrCheckpointsDisabled is returned by checkpoint operations when the
// pipeline was built without a checkpoint repository.
var ErrCheckpointsDisabled = errors.New("checkpoint repository not configured")

// RecordError describes why one record of a batch was rejected.
type RecordError struct {
	Id  core.ID
	Err error
}

// BatchResult reports the per-record outcome of one ingestion batch.
type BatchResult struct {
	Accepted []core.ID
	Rejected []RecordError
}

// Pipeline validates, extracts features for, stores, and indexes signal
// batches. Feature extraction runs on a worker pool; a record that fails
// validation or extraction is rejected individually without aborting the
// rest of the batch.
type Pipeline struct {
	extractor   *extract.Extractor
	index       *index.Index
	store       storage.SignalRepository
	checkpoints storage.CheckpointRepository

	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*pipelineConfig) error

type pipelineConfig struct {
	workers     int
	checkpoints storage.CheckpointRepository
	logger      *slog.Logger
}

// WithWorkers sets the extraction worker pool size. Default is 4.
func WithWorkers(n int) Option {
	return func(c *pipelineConfig) error {
		if n <= 0 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// WithCheckpoints enables feed cursor persistence.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(c *pipelineConfig) error {
		c.checkpoints = repo
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline. Call Close to release the
// worker pool.
func NewPipeline(extractor *extract.Extractor, idx *index.Index, store storage.SignalRepository, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if idx == nil {
		return nil, errors.New("index is required")
	}
	if store == nil {
		return nil, errors.New("signal repository is required")
	}

	cfg := pipelineConfig{
		workers: defaultWorkers,
		logger:  slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(cfg.workers)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		extractor:   extractor,
		index:       idx,
		store:       store,
		checkpoints: cfg.checkpoints,
		pool:        pool,
		logger:      cfg.logger,
	}, nil
}

// Close releases the worker pool.
func (p *Pipeline) Close() {
	p.pool.Release()
}

// IngestBatch processes a batch of signals. Each record is validated and has
// features extracted before it reaches the store or index; a stored signal is
// never left with a vector from stale text. Records whose content hash is
// unchanged reuse the stored vector instead of re-embedding.
//
// The returned BatchResult lists accepted ids and per-record rejections.
// Only a store-level failure fails the batch as a whole.
func (p *Pipeline) IngestBatch(ctx context.Context, signals []*core.Signal) (*BatchResult, error) {
	result := &BatchResult{
		Accepted: []core.ID{},
		Rejected: []RecordError{},
	}
	if len(signals) == 0 {
		return result, nil
	}

	outcomes := make([]error, len(signals))
	var wg sync.WaitGroup
	for i, signal := range signals {
		i, signal := i, signal
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = p.prepare(ctx, signal)
		})
		if err != nil {
			outcomes[i] = err
			wg.Done()
		}
	}
	wg.Wait()

	accepted := make([]*core.Signal, 0, len(signals))
	for i, signal := range signals {
		if err := outcomes[i]; err != nil {
			result.Rejected = append(result.Rejected, RecordError{Id: signal.Id, Err: err})
			continue
		}
		accepted = append(accepted, signal)
	}
	if len(accepted) == 0 {
		return result, nil
	}

	if _, err := p.store.PutSignals(ctx, accepted...); err != nil {
		return nil, fmt.Errorf("storing batch: %w", err)
	}

	for _, signal := range accepted {
		err := p.index.Upsert(signal.Id, signal.Vector, index.Metadata{
			Agency:        signal.Agency,
			CategoryCodes: signal.CategoryCodes,
			ResponseDueAt: signal.ResponseDueAt,
		})
		if err != nil {
			// Stored but unindexable; back the record out so store and
			// index stay consistent.
			p.logger.Error("index upsert failed, rolling back record", "signal_id", signal.Id, "err", err)
			if delErr := p.store.DeleteSignals(ctx, signal.Id); delErr != nil {
				p.logger.Error("rollback failed", "signal_id", signal.Id, "err", delErr)
			}
			result.Rejected = append(result.Rejected, RecordError{Id: signal.Id, Err: err})
			continue
		}
		result.Accepted = append(result.Accepted, signal.Id)
	}

	p.logger.Info("batch ingested",
		"accepted", len(result.Accepted),
		"rejected", len(result.Rejected))

	return result, nil
}

// prepare validates one record and fills in its content hash, terms, and
// vector. Unchanged content reuses the stored features.
func (p *Pipeline) prepare(ctx context.Context, signal *core.Signal) error {
	if err := core.ValidateSignal(signal); err != nil {
		return err
	}

	hash := core.ContentHash(signal.Title, signal.Description)
	existing, err := p.store.GetSignal(ctx, signal.Id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ContentHash == hash && len(existing.Vector) > 0 {
		signal.ContentHash = hash
		signal.Vector = existing.Vector
		signal.Terms = existing.Terms
		return nil
	}

	features, err := p.extractor.Extract(ctx, signal.Text())
	if err != nil {
		return err
	}

	signal.ContentHash = hash
	signal.Vector = features.Vector
	signal.Terms = features.Terms
	return nil
}

// Remove deletes signals from the store and the index.
func (p *Pipeline) Remove(ctx context.Context, ids ...core.ID) error {
	if err := p.store.DeleteSignals(ctx, ids...); err != nil {
		return err
	}
	for _, id := range ids {
		p.index.Remove(id)
	}
	return nil
}

// Reindex rebuilds the whole index from the store in one swap. Used at
// startup and after bulk re-embedding.
func (p *Pipeline) Reindex(ctx context.Context) (int, error) {
	var entries []index.Entry
	err := p.store.ForEachSignal(ctx, func(signal *core.Signal) error {
		if len(signal.Vector) == 0 {
			p.logger.Warn("skipping signal without vector", "signal_id", signal.Id)
			return nil
		}
		entries = append(entries, index.Entry{
			SignalId: signal.Id,
			Vector:   signal.Vector,
			Metadata: index.Metadata{
				Agency:        signal.Agency,
				CategoryCodes: signal.CategoryCodes,
				ResponseDueAt: signal.ResponseDueAt,
			},
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := p.index.Reload(entries); err != nil {
		return 0, err
	}

	p.logger.Info("index rebuilt", "signals", len(entries))
	return len(entries), nil
}

// Checkpoint returns the stored cursor for a feed, or nil if none exists.
func (p *Pipeline) Checkpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	if p.checkpoints == nil {
		return nil, ErrCheckpointsDisabled
	}
	return p.checkpoints.GetCheckpoint(ctx, name)
}

// Advance persists a feed cursor position.
func (p *Pipeline) Advance(ctx context.Context, name string, position uint64) error {
	if p.checkpoints == nil {
		return ErrCheckpointsDisabled
	}
	return p.checkpoints.PutCheckpoint(ctx, &core.Checkpoint{Name: name, Position: position})
}
