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

package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/extract"
	"github.com/poiesic/sigmatch/index"
	"github.com/poiesic/sigmatch/reason"
	"github.com/poiesic/sigmatch/score"
	"github.com/poiesic/sigmatch/storage"
)

const (
	// DefaultTopN is the result count when the caller does not specify one.
	DefaultTopN = 10

	// retrievalMultiplier widens vector retrieval beyond TopN so that
	// re-scoring has room to reorder candidates.
	retrievalMultiplier = 5

	defaultRelevanceFloor = 0.2
)

// Request is one match query.
type Request struct {
	Description string
	TopN        int // 0 returns no matches; use DefaultTopN for the usual depth
	Filter      core.Filter
}

// Service orchestrates a match request: feature extraction, vector retrieval,
// re-scoring, and reasoning. Results are ordered by relevance descending with
// ties broken by lexicographically lower signal id, and are deterministic for
// identical inputs against an identical index.
type Service struct {
	extractor *extract.Extractor
	index     *index.Index
	store     storage.SignalRepository

	scorer         *score.Scorer
	reasoner       *reason.Generator
	relevanceFloor float64
	logger         *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithScorer replaces the default scorer.
func WithScorer(s *score.Scorer) Option {
	return func(svc *Service) error {
		if s == nil {
			return errors.New("scorer cannot be nil")
		}
		svc.scorer = s
		return nil
	}
}

// WithReasoner replaces the default reasoning generator.
func WithReasoner(g *reason.Generator) Option {
	return func(svc *Service) error {
		if g == nil {
			return errors.New("reasoner cannot be nil")
		}
		svc.reasoner = g
		return nil
	}
}

// WithRelevanceFloor sets the minimum relevance a candidate needs to appear
// in results. Default is 0.2.
func WithRelevanceFloor(floor float64) Option {
	return func(svc *Service) error {
		if floor < 0 || floor > 1 {
			return fmt.Errorf("relevance floor must be in [0,1], got %g", floor)
		}
		svc.relevanceFloor = floor
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		svc.logger = logger
		return nil
	}
}

// NewService creates a match service.
func NewService(extractor *extract.Extractor, idx *index.Index, store storage.SignalRepository, opts ...Option) (*Service, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if idx == nil {
		return nil, errors.New("index is required")
	}
	if store == nil {
		return nil, errors.New("signal repository is required")
	}

	scorer, err := score.NewScorer()
	if err != nil {
		return nil, err
	}
	reasoner, err := reason.NewGenerator()
	if err != nil {
		return nil, err
	}

	svc := &Service{
		extractor:      extractor,
		index:          idx,
		store:          store,
		scorer:         scorer,
		reasoner:       reasoner,
		relevanceFloor: defaultRelevanceFloor,
		logger:         slog.Default().With("component", "match"),
	}

	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}

	return svc, nil
}

// Match returns up to req.TopN signals relevant to the description, best
// first. An empty description fails with core.ErrInvalidInput even when TopN
// is zero; a negative TopN fails with core.ErrInvalidArgument; TopN of zero
// otherwise returns an empty result without touching the embedding provider.
// Provider or storage failures surface as core.ErrUnavailable.
func (s *Service) Match(ctx context.Context, req Request) ([]core.MatchResult, error) {
	if req.TopN < 0 {
		return nil, fmt.Errorf("%w: top_n cannot be negative, got %d", core.ErrInvalidArgument, req.TopN)
	}
	if extract.Normalize(req.Description) == "" {
		return nil, fmt.Errorf("%w: empty description", core.ErrInvalidInput)
	}
	if req.TopN == 0 {
		return []core.MatchResult{}, nil
	}

	features, err := s.extractor.Extract(ctx, req.Description)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	}

	if s.index.Len() == 0 {
		return []core.MatchResult{}, nil
	}

	hits, err := s.index.Search(features.Vector, req.TopN*retrievalMultiplier, index.SearchFilter{
		Agency:         req.Filter.Agency,
		CategoryCodes:  req.Filter.CategoryCodes,
		IncludeExpired: req.Filter.IncludeExpired,
	})
	if err != nil {
		// Dimension mismatches mean the embedder and index are out of
		// sync, which the caller cannot fix.
		return nil, fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	}
	if len(hits) == 0 {
		return []core.MatchResult{}, nil
	}

	ids := make([]core.ID, len(hits))
	for i, hit := range hits {
		ids[i] = hit.SignalId
	}
	signals, err := s.store.GetSignals(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	}
	byID := make(map[core.ID]*core.Signal, len(signals))
	for _, signal := range signals {
		byID[signal.Id] = signal
	}

	q := s.scorer.NewQuery(features.Terms, req.Filter)

	results := make([]core.MatchResult, 0, len(hits))
	for _, hit := range hits {
		signal, ok := byID[hit.SignalId]
		if !ok {
			// Indexed but gone from the store; a concurrent delete.
			s.logger.Warn("indexed signal missing from store", "signal_id", hit.SignalId)
			continue
		}
		relevance := s.scorer.Score(q, hit.Similarity, signal)
		if relevance < s.relevanceFloor {
			continue
		}
		results = append(results, core.MatchResult{Signal: signal, Score: relevance})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Signal.Id < results[j].Signal.Id
	})

	if len(results) > req.TopN {
		results = results[:req.TopN]
	}

	// Reasoning runs only for results that survive the cut.
	for i := range results {
		results[i].Reasoning = s.reasoner.Explain(q, results[i].Signal, results[i].Score)
	}

	s.logger.Debug("match complete",
		"candidates", len(hits),
		"results", len(results),
		"top_n", req.TopN)

	return results, nil
}
