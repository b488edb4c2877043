package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sigmatch/ai/mock"
	"github.com/poiesic/sigmatch/core"
)

func TestNewExtractor(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		e, err := NewExtractor(mock.NewMockEmbedder())
		require.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewExtractor(nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid retry attempts", func(t *testing.T) {
		_, err := NewExtractor(mock.NewMockEmbedder(), WithRetry(0, time.Millisecond))
		assert.Equal(t, ErrInvalidMaxAttempts, err)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		_, err := NewExtractor(mock.NewMockEmbedder(), WithTimeout(0))
		assert.Error(t, err)
	})
}

func TestExtract_Pure(t *testing.T) {
	e, err := NewExtractor(mock.NewMockEmbedder())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := e.Extract(ctx, "We analyze satellite images for flood detection")
	require.NoError(t, err)

	second, err := e.Extract(ctx, "We analyze satellite images for flood detection")
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, first.Terms, second.Terms)
}

func TestExtract_EmptyInput(t *testing.T) {
	e, err := NewExtractor(mock.NewMockEmbedder())
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\t\n", "..."} {
		_, err := e.Extract(context.Background(), text)
		assert.ErrorIs(t, err, core.ErrInvalidInput, "text %q", text)
	}
}

func TestExtract_TermsAndVector(t *testing.T) {
	e, err := NewExtractor(mock.NewMockEmbedder())
	require.NoError(t, err)

	features, err := e.Extract(context.Background(), "Satellite imagery analytics for disaster response!")
	require.NoError(t, err)

	assert.Equal(t, []string{"analytics", "disaster", "imagery", "response", "satellite"}, features.Terms)
	require.NotEmpty(t, features.Vector)

	// Vector must be unit length for cosine similarity via dot product.
	var sumSquares float64
	for _, v := range features.Vector {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sumSquares, 1e-4)
}

func TestExtract_ProviderFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	e, err := NewExtractor(embedder, WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), "satellite imaging")
	assert.ErrorIs(t, err, core.ErrExtraction)
	// Both attempts hit the provider.
	assert.Equal(t, 2, embedder.CallCount())
}

func TestExtract_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("temporary failure")
		}
		return []float32{1, 0, 0}, nil
	}

	e, err := NewExtractor(embedder, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	features, err := e.Extract(context.Background(), "satellite imaging")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, features.Vector)
	assert.Equal(t, 2, calls)
}

func TestExtract_CachesEmbeddings(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	e, err := NewExtractor(embedder)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = e.Extract(ctx, "edge compute for rural broadband")
	require.NoError(t, err)
	first := embedder.CallCount()

	_, err = e.Extract(ctx, "edge compute for rural broadband")
	require.NoError(t, err)

	assert.Equal(t, first, embedder.CallCount(), "second extraction should hit the cache")
}

func TestExtract_EmptyProviderVector(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{}, nil
	}

	e, err := NewExtractor(embedder, WithRetry(1, time.Millisecond))
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), "satellite imaging")
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error { return errors.New("nope") }, 3, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}
