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

package sigmatch

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/sigmatch/ai"
	"github.com/poiesic/sigmatch/ai/local"
	"github.com/poiesic/sigmatch/ai/openai"
	"github.com/poiesic/sigmatch/extract"
	"github.com/poiesic/sigmatch/index"
	"github.com/poiesic/sigmatch/ingest"
	"github.com/poiesic/sigmatch/match"
	"github.com/poiesic/sigmatch/reembed"
	"github.com/poiesic/sigmatch/storage"
	"github.com/poiesic/sigmatch/storage/badger"
)

// Engine wires storage, the embedding provider, feature extraction, and the
// in-memory index into one unit the HTTP server and CLI build on.
type Engine struct {
	backend        *badger.Backend
	signalRepo     storage.SignalRepository
	checkpointRepo storage.CheckpointRepository
	embedder       ai.Embedder
	extractor      *extract.Extractor
	idx            *index.Index
	logger         *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig      *ai.Config
	localEmbedder bool
	inMemory      bool
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithLocalEmbedder uses the offline feature-hashing embedder instead of an
// embedding provider. Useful for development and air-gapped deployments.
func WithLocalEmbedder() EngineOption {
	return func(o *engineOptions) {
		o.localEmbedder = true
	}
}

// WithInMemoryStorage keeps all data in memory, discarded on Close.
func WithInMemoryStorage() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// NewEngine opens the store at filePath and rebuilds the search index from
// it, so matching is available as soon as NewEngine returns.
func NewEngine(ctx context.Context, filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	signalRepo := badger.NewSignalRepository(backend)
	checkpointRepo := badger.NewCheckpointRepository(backend)

	var embedder ai.Embedder
	if options.localEmbedder {
		embedder = local.NewEmbedder()
	} else {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	extractor, err := extract.NewExtractor(embedder,
		extract.WithTimeout(options.aiConfig.RequestTimeout))
	if err != nil {
		backend.Close()
		return nil, err
	}

	engine := &Engine{
		backend:        backend,
		signalRepo:     signalRepo,
		checkpointRepo: checkpointRepo,
		embedder:       embedder,
		extractor:      extractor,
		idx:            index.New(),
		logger:         slog.Default(),
	}

	if err := engine.RebuildIndex(ctx); err != nil {
		backend.Close()
		return nil, err
	}

	return engine, nil
}

// Close releases storage resources.
func (e *Engine) Close() error {
	if err := e.signalRepo.Close(); err != nil {
		e.logger.Error("error closing signal repository", "err", err)
		return err
	}
	return nil
}

// SignalRepository returns the signal store.
func (e *Engine) SignalRepository() storage.SignalRepository {
	return e.signalRepo
}

// CheckpointRepository returns the feed cursor store.
func (e *Engine) CheckpointRepository() storage.CheckpointRepository {
	return e.checkpointRepo
}

// Index returns the in-memory search index.
func (e *Engine) Index() *index.Index {
	return e.idx
}

// RebuildIndex reloads the search index from the store in one swap.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	pipeline, err := e.NewIngestPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Close()

	_, err = pipeline.Reindex(ctx)
	return err
}

// NewMatchService creates a match service over the engine's components.
func (e *Engine) NewMatchService(opts ...match.Option) (*match.Service, error) {
	return match.NewService(e.extractor, e.idx, e.signalRepo, opts...)
}

// NewIngestPipeline creates an ingestion pipeline over the engine's
// components, with checkpoints enabled.
func (e *Engine) NewIngestPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	opts = append([]ingest.Option{ingest.WithCheckpoints(e.checkpointRepo)}, opts...)
	return ingest.NewPipeline(e.extractor, e.idx, e.signalRepo, opts...)
}

// NewReembedder creates a re-embedder over the engine's store and embedder.
// Call RebuildIndex after a successful run.
func (e *Engine) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(e.signalRepo, e.embedder, config, progress)
}
