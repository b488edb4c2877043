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
	"fmt"
	"io"
	"time"

	"github.com/poiesic/sigmatch/ai"
	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/storage"
)

// Config holds configuration for a re-embedding run.
type Config struct {
	// BatchSize is the number of signals embedded per provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of signals)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per provider call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder re-embeds every stored signal with the configured embedder.
// After a successful run the caller must rebuild the search index; the new
// vectors are not comparable to the old ones.
type Reembedder struct {
	repo      storage.SignalRepository
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *SignalIterator
}

// NewReembedder creates a reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.SignalRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		repo:      repo,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewSignalIterator(repo, config.BatchSize),
	}
}

// Run executes the re-embedding operation over every stored signal, reporting
// progress to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	total, err := r.iterator.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting signals: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No signals found in store (0 signals)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting re-embedding of %d signals (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(signals []*core.Signal) error {
		if err := r.processor.Process(ctx, signals); err != nil {
			return fmt.Errorf("processing batch: %w", err)
		}
		processed += len(signals)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-embedding complete. Processed %d signals in %v (%.1f signals/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}
