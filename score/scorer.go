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


package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/poiesic/sigmatch/core"
)

const weightSumTolerance = 1e-9

// Weights are the component weights of the relevance score. They must be
// non-negative and sum to 1.
type Weights struct {
	Semantic float64 // cosine similarity of embedding vectors
	Keyword  float64 // Jaccard overlap of keyword term sets
	Metadata float64 // category / agency alignment
}

// DefaultWeights are the default score component weights.
var DefaultWeights = Weights{Semantic: 0.6, Keyword: 0.25, Metadata: 0.15}

// Validate checks the weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Keyword < 0 || w.Metadata < 0 {
		return errors.New("score weights cannot be negative")
	}
	if math.Abs(w.Semantic+w.Keyword+w.Metadata-1) > weightSumTolerance {
		return fmt.Errorf("score weights must sum to 1, got %g", w.Semantic+w.Keyword+w.Metadata)
	}
	return nil
}

// Query is the precomputed per-query scoring context: the query's term set
// and the classification inferred from it. Build one per match request with
// Scorer.NewQuery and reuse it across all candidates.
type Query struct {
	Terms     []string
	termSet   map[string]bool
	Inferred  Inference
	agencySet map[string]bool
}

// Scorer combines semantic similarity, keyword overlap, and metadata fit
// into one relevance score per (query, candidate) pair. Scoring is
// deterministic given identical inputs and weight configuration.
type Scorer struct {
	weights  Weights
	taxonomy Taxonomy
}

// Option configures a Scorer.
type Option func(*Scorer) error

// WithWeights overrides the default score weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) error {
		if err := w.Validate(); err != nil {
			return err
		}
		s.weights = w
		return nil
	}
}

// WithTaxonomy replaces the built-in category taxonomy.
func WithTaxonomy(t Taxonomy) Option {
	return func(s *Scorer) error {
		if t == nil {
			return errors.New("taxonomy cannot be nil")
		}
		s.taxonomy = t
		return nil
	}
}

// NewScorer creates a scorer with default weights and taxonomy.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		weights:  DefaultWeights,
		taxonomy: DefaultTaxonomy(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Weights returns the configured component weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// NewQuery builds the per-query scoring context. The caller filter's agency,
// when set, counts toward agency fit alongside taxonomy-inferred agencies.
func (s *Scorer) NewQuery(terms []string, filter core.Filter) *Query {
	q := &Query{
		Terms:    terms,
		termSet:  make(map[string]bool, len(terms)),
		Inferred: s.taxonomy.Infer(terms),
	}
	for _, t := range terms {
		q.termSet[t] = true
	}

	q.agencySet = make(map[string]bool, len(q.Inferred.Agencies)+1)
	for _, a := range q.Inferred.Agencies {
		q.agencySet[a] = true
	}
	if filter.Agency != "" {
		q.agencySet[filter.Agency] = true
	}
	return q
}

// MatchesAgency reports whether the agency is part of the query's inferred
// or caller-requested agency set.
func (q *Query) MatchesAgency(agency string) bool {
	return q.agencySet[agency]
}

// Score computes the relevance of a candidate signal for the query given the
// candidate's cosine similarity. The result is clamped to [0,1] and is
// comparable only within one query's result set.
func (s *Scorer) Score(q *Query, similarity float64, candidate *core.Signal) float64 {
	semantic := similarity
	if semantic < 0 {
		semantic = 0
	}

	score := s.weights.Semantic*semantic +
		s.weights.Keyword*jaccard(q.termSet, candidate.Terms) +
		s.weights.Metadata*s.MetadataFit(q, candidate)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// MetadataFit returns the categorical alignment component: 1 if any
// candidate category code matches a query-inferred category, 0.5 if the
// agency matches but no category does, else 0.
func (s *Scorer) MetadataFit(q *Query, candidate *core.Signal) float64 {
	for _, code := range candidate.CategoryCodes {
		for _, inferred := range q.Inferred.Codes {
			if code == inferred {
				return 1
			}
		}
	}
	if q.agencySet[candidate.Agency] {
		return 0.5
	}
	return 0
}

// jaccard computes |A∩B| / |A∪B| over the query term set and candidate
// terms. An empty query term set contributes 0, not an error.
func jaccard(querySet map[string]bool, candidateTerms []string) float64 {
	if len(querySet) == 0 || len(candidateTerms) == 0 {
		return 0
	}

	intersection := 0
	candidateSeen := make(map[string]bool, len(candidateTerms))
	for _, term := range candidateTerms {
		if candidateSeen[term] {
			continue
		}
		candidateSeen[term] = true
		if querySet[term] {
			intersection++
		}
	}

	union := len(querySet) + len(candidateSeen) - intersection
	return float64(intersection) / float64(union)
}
