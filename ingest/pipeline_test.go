package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sigmatch/ai/mock"
	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/extract"
	"github.com/poiesic/sigmatch/index"
	badgerstore "github.com/poiesic/sigmatch/storage/badger"
)

type fixture struct {
	embedder *mock.MockEmbedder
	repo     *badgerstore.SignalRepository
	idx      *index.Index
	pipeline *Pipeline
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	embedder := mock.NewMockEmbedder()
	extractor, err := extract.NewExtractor(embedder, extract.WithRetry(1, time.Millisecond))
	require.NoError(t, err)

	repo, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	idx := index.New()
	pipeline, err := NewPipeline(extractor, idx, repo, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Close)

	return &fixture{embedder: embedder, repo: repo, idx: idx, pipeline: pipeline}
}

func testSignal(id, title string) *core.Signal {
	return &core.Signal{
		Id:          core.ID(id),
		SourceType:  core.SourceTypeSolicitation,
		Agency:      "NASA",
		Title:       title,
		Description: "Procurement of " + title + " services.",
		PublishedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestIngestBatch_AcceptsValidRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.pipeline.IngestBatch(ctx, []*core.Signal{
		testSignal("sig-1", "satellite imagery"),
		testSignal("sig-2", "flood modeling"),
	})
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 2)
	assert.Empty(t, result.Rejected)

	assert.Equal(t, 2, f.idx.Len())

	stored, err := f.repo.GetSignal(ctx, "sig-1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Vector)
	assert.NotEmpty(t, stored.Terms)
	assert.NotEmpty(t, stored.ContentHash)
	assert.False(t, stored.InsertedAt.IsZero())
}

func TestIngestBatch_RejectsBadRecordsIndividually(t *testing.T) {
	f := newFixture(t)

	bad := testSignal("", "missing id")
	result, err := f.pipeline.IngestBatch(context.Background(), []*core.Signal{
		testSignal("sig-1", "satellite imagery"),
		bad,
		testSignal("sig-2", "flood modeling"),
	})
	require.NoError(t, err)

	assert.Len(t, result.Accepted, 2)
	require.Len(t, result.Rejected, 1)
	assert.ErrorIs(t, result.Rejected[0].Err, core.ErrEmptySignalID)
	assert.Equal(t, 2, f.idx.Len())
}

func TestIngestBatch_RejectsInvalidSourceType(t *testing.T) {
	f := newFixture(t)

	bad := testSignal("sig-bad", "satellite imagery")
	bad.SourceType = core.SourceType(99)
	result, err := f.pipeline.IngestBatch(context.Background(), []*core.Signal{bad})
	require.NoError(t, err)

	assert.Empty(t, result.Accepted)
	require.Len(t, result.Rejected, 1)
	assert.ErrorIs(t, result.Rejected[0].Err, core.ErrInvalidSourceType)
}

func TestIngestBatch_ExtractionFailureRejectsRecord(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		return nil, errors.New("provider down")
	}

	result, err := f.pipeline.IngestBatch(context.Background(), []*core.Signal{
		testSignal("sig-1", "satellite imagery"),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Accepted)
	require.Len(t, result.Rejected, 1)
	assert.ErrorIs(t, result.Rejected[0].Err, core.ErrExtraction)
	assert.Equal(t, 0, f.idx.Len())
}

func TestIngestBatch_UnchangedContentSkipsReembedding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.IngestBatch(ctx, []*core.Signal{testSignal("sig-1", "satellite imagery")})
	require.NoError(t, err)
	callsAfterFirst := f.embedder.CallCount()
	require.Greater(t, callsAfterFirst, 0)

	// Same id, same content: the stored vector is reused.
	_, err = f.pipeline.IngestBatch(ctx, []*core.Signal{testSignal("sig-1", "satellite imagery")})
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, f.embedder.CallCount())
}

func TestIngestBatch_ChangedContentReextracts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.IngestBatch(ctx, []*core.Signal{testSignal("sig-1", "satellite imagery")})
	require.NoError(t, err)

	updated := testSignal("sig-1", "satellite imagery")
	updated.Description = "Completely revised scope covering hyperspectral sensors."
	_, err = f.pipeline.IngestBatch(ctx, []*core.Signal{updated})
	require.NoError(t, err)

	stored, err := f.repo.GetSignal(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, core.ContentHash(updated.Title, updated.Description), stored.ContentHash)
	assert.Contains(t, stored.Terms, "hyperspectral")
}

func TestIngestBatch_Empty(t *testing.T) {
	f := newFixture(t)
	result, err := f.pipeline.IngestBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Accepted)
	assert.Empty(t, result.Rejected)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.IngestBatch(ctx, []*core.Signal{testSignal("sig-1", "satellite imagery")})
	require.NoError(t, err)
	require.Equal(t, 1, f.idx.Len())

	require.NoError(t, f.pipeline.Remove(ctx, "sig-1"))
	assert.Equal(t, 0, f.idx.Len())
	_, err = f.repo.GetSignal(ctx, "sig-1")
	assert.Error(t, err)
}

func TestReindex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.IngestBatch(ctx, []*core.Signal{
		testSignal("sig-1", "satellite imagery"),
		testSignal("sig-2", "flood modeling"),
	})
	require.NoError(t, err)

	// A fresh index rebuilt from the store matches what ingestion indexed.
	fresh := index.New()
	pipeline2, err := NewPipeline(f.pipeline.extractor, fresh, f.repo)
	require.NoError(t, err)
	defer pipeline2.Close()

	count, err := pipeline2.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, fresh.Len())
}

func TestCheckpoints(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	extractor, err := extract.NewExtractor(embedder)
	require.NoError(t, err)

	backend, err := badgerstore.NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	repo := badgerstore.NewSignalRepository(backend)
	checkpoints := badgerstore.NewCheckpointRepository(backend)

	pipeline, err := NewPipeline(extractor, index.New(), repo, WithCheckpoints(checkpoints))
	require.NoError(t, err)
	defer pipeline.Close()

	ctx := context.Background()
	cp, err := pipeline.Checkpoint(ctx, "sam-feed")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, pipeline.Advance(ctx, "sam-feed", 128))

	cp, err = pipeline.Checkpoint(ctx, "sam-feed")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, uint64(128), cp.Position)
}

func TestCheckpointsDisabled(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Checkpoint(context.Background(), "sam-feed")
	assert.ErrorIs(t, err, ErrCheckpointsDisabled)
	err = f.pipeline.Advance(context.Background(), "sam-feed", 1)
	assert.ErrorIs(t, err, ErrCheckpointsDisabled)
}
