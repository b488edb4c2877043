package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sigmatch/core"
)

func TestCheckpointRepository_RoundTrip(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	// Absent checkpoint is nil, not an error.
	got, err := repo.GetCheckpoint(ctx, "sam-feed")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.PutCheckpoint(ctx, &core.Checkpoint{Name: "sam-feed", Position: 42})
	require.NoError(t, err)

	got, err = repo.GetCheckpoint(ctx, "sam-feed")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sam-feed", got.Name)
	assert.Equal(t, uint64(42), got.Position)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestCheckpointRepository_Overwrite(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	require.NoError(t, repo.PutCheckpoint(ctx, &core.Checkpoint{Name: "sam-feed", Position: 1}))
	require.NoError(t, repo.PutCheckpoint(ctx, &core.Checkpoint{Name: "sam-feed", Position: 2}))

	got, err := repo.GetCheckpoint(ctx, "sam-feed")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(2), got.Position)
}
