package extract

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-crypt/x/blake2b"
	gocache "github.com/patrickmn/go-cache"

	"github.com/poiesic/sigmatch/ai"
	"github.com/poiesic/sigmatch/core"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond

	cacheExpiration = 12 * time.Hour
	cacheSweep      = 30 * time.Minute
)

// Features is the output of feature extraction: a unit-length semantic
// vector and a sorted set of normalized keyword tokens.
type Features struct {
	Vector []float32
	Terms  []string
}

// Extractor turns raw text into Features. Extraction is deterministic for a
// given embedder: normalization and term extraction are pure functions, and
// embedding results are cached by content hash so provider retries observe
// identical vectors.
type Extractor struct {
	embedder    ai.Embedder
	cache       *gocache.Cache
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithTimeout bounds each embedding attempt. Default is 10s.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		e.timeout = d
		return nil
	}
}

// WithRetry configures embedding retry behavior.
// Default is 3 attempts with a 500ms base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(e *Extractor) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		e.maxAttempts = maxAttempts
		e.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates a feature extractor backed by the given embedder.
func NewExtractor(embedder ai.Embedder, opts ...Option) (*Extractor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Extractor{
		embedder:    embedder,
		cache:       gocache.New(cacheExpiration, cacheSweep),
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default().With("component", "extractor"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Extract computes features for the text.
// Empty or whitespace-only text fails with core.ErrInvalidInput. An
// unreachable embedding provider fails with core.ErrExtraction after bounded
// retries; a degraded vector is never substituted silently.
func (e *Extractor) Extract(ctx context.Context, text string) (*Features, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty text", core.ErrInvalidInput)
	}

	terms := Terms(normalized)

	vector, err := e.embed(ctx, normalized)
	if err != nil {
		return nil, err
	}

	return &Features{Vector: vector, Terms: terms}, nil
}

// embed returns the unit-length embedding of normalized text, consulting the
// content-hash cache first.
func (e *Extractor) embed(ctx context.Context, normalized string) ([]float32, error) {
	key := contentKey(normalized)
	if cached, ok := e.cache.Get(key); ok {
		return cached.([]float32), nil
	}

	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		var embedErr error
		vector, embedErr = e.embedder.EmbedText(attemptCtx, normalized)
		return embedErr
	}, e.maxAttempts, e.baseDelay)

	if err != nil {
		e.logger.Error("embedding failed after retries", "attempts", e.maxAttempts, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}

	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty vector", core.ErrExtraction)
	}

	vector = NormalizeVector(vector)
	e.cache.Set(key, vector, gocache.DefaultExpiration)
	return vector, nil
}

// contentKey derives the embedding cache key from normalized text.
func contentKey(normalized string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}
