package reason

import (
	"fmt"
	"strings"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/score"
)

const (
	defaultMinExplainable = 0.35
	defaultMaxQuotedTerms = 3
)

// Generator produces the human-readable justification for a scored match.
// Every quoted term in its output appears in both the query's term set and
// the candidate's term set; it never fabricates an overlap. When no
// believable basis exists it falls back to a generic low-confidence phrasing
// rather than failing.
type Generator struct {
	minExplainable float64
	maxQuotedTerms int
}

// Option configures a Generator.
type Option func(*Generator) error

// WithMinExplainable sets the score threshold below which reasoning falls
// back to generic low-confidence phrasing. Default is 0.35.
func WithMinExplainable(threshold float64) Option {
	return func(g *Generator) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("explainability threshold must be in [0,1], got %g", threshold)
		}
		g.minExplainable = threshold
		return nil
	}
}

// NewGenerator creates a reasoning generator.
func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{
		minExplainable: defaultMinExplainable,
		maxQuotedTerms: defaultMaxQuotedTerms,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Explain produces the justification for one (query, candidate) pair.
// The output is deterministic: overlapping terms are quoted in sorted order.
func (g *Generator) Explain(q *score.Query, candidate *core.Signal, relevance float64) string {
	overlap := sharedTerms(q.Terms, candidate.Terms, g.maxQuotedTerms)
	sharedCodes := sharedStrings(q.Inferred.Codes, candidate.CategoryCodes)
	agencyMatch := candidate.Agency != "" && q.MatchesAgency(candidate.Agency)

	if relevance < g.minExplainable {
		return g.lowConfidence(candidate)
	}

	switch {
	case len(overlap) > 0:
		var b strings.Builder
		fmt.Fprintf(&b, "Your description and this %s from %s both emphasize %s.",
			candidate.SourceType, orUnspecified(candidate.Agency), quoteList(overlap))
		if len(sharedCodes) > 0 {
			fmt.Fprintf(&b, " It is classified under %s, which matches your inferred focus.", sharedCodes[0])
		}
		return b.String()

	case len(sharedCodes) > 0:
		return fmt.Sprintf("No direct keyword overlap, but this %s is classified under %s, which matches your inferred focus area.",
			candidate.SourceType, sharedCodes[0])

	case agencyMatch:
		return fmt.Sprintf("No direct keyword overlap, but %s is an agency active in your inferred focus areas, and this %s aligns semantically with your description.",
			candidate.Agency, candidate.SourceType)

	default:
		return g.lowConfidence(candidate)
	}
}

// lowConfidence phrases a match that has no quotable basis. It deliberately
// quotes nothing so it cannot fabricate an overlap.
func (g *Generator) lowConfidence(candidate *core.Signal) string {
	return fmt.Sprintf("Possible fit: this %s is broadly similar to your description, but without strong keyword or category overlap.",
		candidate.SourceType)
}

// sharedTerms returns up to limit terms present in both sorted term sets,
// in sorted order.
func sharedTerms(queryTerms, candidateTerms []string, limit int) []string {
	candidateSet := make(map[string]bool, len(candidateTerms))
	for _, t := range candidateTerms {
		candidateSet[t] = true
	}

	shared := make([]string, 0, limit)
	for _, t := range queryTerms {
		if !candidateSet[t] {
			continue
		}
		shared = append(shared, t)
		if len(shared) == limit {
			break
		}
	}
	return shared
}

func sharedStrings(a, b []string) []string {
	bSet := make(map[string]bool, len(b))
	for _, s := range b {
		bSet[s] = true
	}
	var shared []string
	for _, s := range a {
		if bSet[s] {
			shared = append(shared, s)
		}
	}
	return shared
}

func quoteList(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	switch len(quoted) {
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " and " + quoted[1]
	default:
		return strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
	}
}

func orUnspecified(agency string) string {
	if agency == "" {
		return "an unspecified agency"
	}
	return agency
}
