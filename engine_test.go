package sigmatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sigmatch/ai"
	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/match"
)

func matchRequest(description string) match.Request {
	return match.Request{Description: description, TopN: match.DefaultTopN}
}

func testSignals() []*core.Signal {
	published := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return []*core.Signal{
		{
			Id:            "sat-noaa",
			SourceType:    core.SourceTypeSolicitation,
			Agency:        "NOAA",
			CategoryCodes: []string{"earth-observation"},
			Title:         "Commercial satellite imagery for flood prediction",
			Description:   "Seeking commercial satellite imagery providers for flood prediction models.",
			PublishedAt:   published,
		},
		{
			Id:          "cyber-cisa",
			SourceType:  core.SourceTypeSolicitation,
			Agency:      "CISA",
			Title:       "Network security monitoring",
			Description: "Cybersecurity monitoring for federal networks.",
			PublishedAt: published,
		},
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, "", WithInMemoryStorage(), WithLocalEmbedder())
	require.NoError(t, err)
	defer engine.Close()

	pipeline, err := engine.NewIngestPipeline()
	require.NoError(t, err)
	defer pipeline.Close()

	result, err := pipeline.IngestBatch(ctx, testSignals())
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 2)
	assert.Equal(t, 2, engine.Index().Len())

	matcher, err := engine.NewMatchService()
	require.NoError(t, err)

	results, err := matcher.Match(ctx, matchRequest("Satellite imagery analytics for flood prediction"))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, core.ID("sat-noaa"), results[0].Signal.Id)
}

func TestEngine_RequestTimeoutApplied(t *testing.T) {
	ctx := context.Background()

	// The configured per-call timeout reaches the extractor; a non-positive
	// value is rejected at construction rather than silently ignored.
	_, err := NewEngine(ctx, "",
		WithInMemoryStorage(),
		WithLocalEmbedder(),
		WithAIConfig(ai.NewConfig(ai.WithRequestTimeout(-1))))
	require.Error(t, err)

	engine, err := NewEngine(ctx, "",
		WithInMemoryStorage(),
		WithLocalEmbedder(),
		WithAIConfig(ai.NewConfig(ai.WithRequestTimeout(2*time.Second))))
	require.NoError(t, err)
	require.NoError(t, engine.Close())
}

func TestEngine_IndexRebuiltOnOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	engine, err := NewEngine(ctx, dir, WithLocalEmbedder())
	require.NoError(t, err)

	pipeline, err := engine.NewIngestPipeline()
	require.NoError(t, err)
	_, err = pipeline.IngestBatch(ctx, testSignals())
	require.NoError(t, err)
	pipeline.Close()
	require.NoError(t, engine.Close())

	// Reopening rebuilds the index from the store.
	reopened, err := NewEngine(ctx, dir, WithLocalEmbedder())
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.Index().Len())

	matcher, err := reopened.NewMatchService()
	require.NoError(t, err)
	results, err := matcher.Match(ctx, matchRequest("Satellite imagery analytics for flood prediction"))
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}
