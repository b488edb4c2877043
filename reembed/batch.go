package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/sigmatch/ai"
	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/extract"
	"github.com/poiesic/sigmatch/storage"
)

// BatchProcessor re-embeds batches of signals and writes them back.
type BatchProcessor struct {
	repo           storage.SignalRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(repo storage.SignalRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process re-embeds one batch of signals from their current text and updates
// them in the store. Vectors are normalized to unit length so the index can
// use dot products as cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, signals []*core.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	texts := make([]string, len(signals))
	for i, signal := range signals {
		texts[i] = extract.Normalize(signal.Text())
	}

	var embeddings [][]float32
	err := extract.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("generating embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(signals) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(signals), len(embeddings))
	}

	for i := range signals {
		signals[i].Vector = extract.NormalizeVector(embeddings[i])
	}

	if _, err := bp.repo.PutSignals(ctx, signals...); err != nil {
		return fmt.Errorf("updating signals: %w", err)
	}

	return nil
}
