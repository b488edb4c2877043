package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/storage"
)

func newTestSignal(id string, publishedAt time.Time) *core.Signal {
	return &core.Signal{
		Id:            core.ID(id),
		SourceType:    core.SourceTypeSolicitation,
		Agency:        "NASA",
		CategoryCodes: []string{"earth-observation"},
		Title:         "Satellite imagery analysis",
		Description:   "Analysis of multispectral satellite imagery for agency programs.",
		PublishedAt:   publishedAt,
		Terms:         []string{"analysis", "imagery", "satellite"},
		Vector:        []float32{0.6, 0.8},
	}
}

func TestSignalRepository_PutAndGet(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	signal := newTestSignal("sig-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	stored, err := repo.PutSignals(ctx, signal)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].InsertedAt.IsZero())
	assert.False(t, stored[0].UpdatedAt.IsZero())

	got, err := repo.GetSignal(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, signal.Id, got.Id)
	assert.Equal(t, signal.Title, got.Title)
	assert.Equal(t, signal.Agency, got.Agency)
	assert.Equal(t, signal.CategoryCodes, got.CategoryCodes)
	assert.Equal(t, signal.Terms, got.Terms)
	assert.Equal(t, signal.Vector, got.Vector)
	assert.True(t, got.PublishedAt.Equal(signal.PublishedAt))
}

func TestSignalRepository_GetMissing(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.GetSignal(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalRepository_PutPreservesInsertedAt(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	signal := newTestSignal("sig-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	first, err := repo.PutSignals(ctx, signal)
	require.NoError(t, err)
	insertedAt := first[0].InsertedAt

	time.Sleep(5 * time.Millisecond)

	updated := newTestSignal("sig-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	updated.Title = "Revised title"
	second, err := repo.PutSignals(ctx, updated)
	require.NoError(t, err)

	assert.True(t, second[0].InsertedAt.Equal(insertedAt))
	assert.True(t, second[0].UpdatedAt.After(insertedAt))

	got, err := repo.GetSignal(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, "Revised title", got.Title)
}

func TestSignalRepository_GetSignalsSkipsMissing(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	_, err = repo.PutSignals(ctx,
		newTestSignal("sig-1", time.Now()),
		newTestSignal("sig-2", time.Now()),
	)
	require.NoError(t, err)

	signals, err := repo.GetSignals(ctx, "sig-1", "missing", "sig-2")
	require.NoError(t, err)
	assert.Len(t, signals, 2)
}

func TestSignalRepository_Delete(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	_, err = repo.PutSignals(ctx, newTestSignal("sig-1", time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteSignals(ctx, "sig-1"))

	_, err = repo.GetSignal(ctx, "sig-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting again reports not found.
	err = repo.DeleteSignals(ctx, "sig-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalRepository_ForEachSignal(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	_, err = repo.PutSignals(ctx,
		newTestSignal("sig-1", time.Now()),
		newTestSignal("sig-2", time.Now()),
		newTestSignal("sig-3", time.Now()),
	)
	require.NoError(t, err)

	seen := map[core.ID]bool{}
	err = repo.ForEachSignal(ctx, func(signal *core.Signal) error {
		seen[signal.Id] = true
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

func TestSignalRepository_GetRecentSignals(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.PutSignals(ctx,
		newTestSignal("sig-old", base),
		newTestSignal("sig-mid", base.Add(24*time.Hour)),
		newTestSignal("sig-new", base.Add(48*time.Hour)),
	)
	require.NoError(t, err)

	recent, err := repo.GetRecentSignals(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, core.ID("sig-new"), recent[0].Id)
	assert.Equal(t, core.ID("sig-mid"), recent[1].Id)
}

func TestSignalRepository_PublishedAtChangeUpdatesIndex(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.PutSignals(ctx,
		newTestSignal("sig-1", base),
		newTestSignal("sig-2", base.Add(time.Hour)),
	)
	require.NoError(t, err)

	// Republish sig-1 with a newer date; it must surface first and only once.
	moved := newTestSignal("sig-1", base.Add(48*time.Hour))
	_, err = repo.PutSignals(ctx, moved)
	require.NoError(t, err)

	recent, err := repo.GetRecentSignals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, core.ID("sig-1"), recent[0].Id)
	assert.Equal(t, core.ID("sig-2"), recent[1].Id)
}

func TestSignalRepository_ClosedBackend(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	ctx := context.Background()
	_, err = repo.PutSignals(ctx, newTestSignal("sig-1", time.Now()))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = repo.GetSignal(ctx, "sig-1")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
