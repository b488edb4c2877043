package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sigmatch/core"
)

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights, false},
		{"custom summing to one", Weights{0.5, 0.3, 0.2}, false},
		{"semantic only", Weights{1, 0, 0}, false},
		{"sum below one", Weights{0.5, 0.2, 0.2}, true},
		{"sum above one", Weights{0.6, 0.3, 0.2}, true},
		{"negative component", Weights{1.2, -0.1, -0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewScorer(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := NewScorer()
		require.NoError(t, err)
		assert.Equal(t, DefaultWeights, s.Weights())
	})

	t.Run("invalid weights rejected", func(t *testing.T) {
		_, err := NewScorer(WithWeights(Weights{0.9, 0.9, 0.9}))
		assert.Error(t, err)
	})

	t.Run("nil taxonomy rejected", func(t *testing.T) {
		_, err := NewScorer(WithTaxonomy(nil))
		assert.Error(t, err)
	})
}

func TestScore_Bounds(t *testing.T) {
	s, err := NewScorer()
	require.NoError(t, err)

	q := s.NewQuery([]string{"satellite", "imagery"}, core.Filter{})
	candidate := &core.Signal{
		Agency:        "NOAA",
		CategoryCodes: []string{"earth-observation"},
		Terms:         []string{"satellite", "imagery"},
	}

	t.Run("perfect candidate stays within one", func(t *testing.T) {
		got := s.Score(q, 1.0, candidate)
		assert.LessOrEqual(t, got, 1.0)
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("negative similarity clamps to zero contribution", func(t *testing.T) {
		bare := &core.Signal{Agency: "GSA", Terms: []string{"janitorial"}}
		got := s.Score(q, -0.8, bare)
		assert.Equal(t, 0.0, got)
	})
}

func TestScore_Deterministic(t *testing.T) {
	s, err := NewScorer()
	require.NoError(t, err)

	q := s.NewQuery([]string{"flood", "detection", "satellite"}, core.Filter{})
	candidate := &core.Signal{
		Agency:        "NOAA",
		CategoryCodes: []string{"earth-observation"},
		Terms:         []string{"satellite", "imagery", "disaster"},
	}

	first := s.Score(q, 0.73, candidate)
	second := s.Score(q, 0.73, candidate)
	assert.Equal(t, first, second)
}

func TestMetadataFit(t *testing.T) {
	s, err := NewScorer()
	require.NoError(t, err)

	// "satellite" infers earth-observation codes and NASA/NOAA agencies.
	q := s.NewQuery([]string{"satellite"}, core.Filter{})

	tests := []struct {
		name      string
		candidate *core.Signal
		want      float64
	}{
		{
			name:      "category match",
			candidate: &core.Signal{Agency: "DOT", CategoryCodes: []string{"earth-observation"}},
			want:      1,
		},
		{
			name:      "agency match only",
			candidate: &core.Signal{Agency: "NOAA", CategoryCodes: []string{"atmospheric-science"}},
			want:      0.5,
		},
		{
			name:      "no alignment",
			candidate: &core.Signal{Agency: "GSA", CategoryCodes: []string{"janitorial-services"}},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.MetadataFit(q, tt.candidate))
		})
	}
}

func TestMetadataFit_FilterAgencyCounts(t *testing.T) {
	s, err := NewScorer()
	require.NoError(t, err)

	// No taxonomy hit for these terms; the caller's agency filter still
	// counts toward agency fit.
	q := s.NewQuery([]string{"widgets"}, core.Filter{Agency: "GSA"})
	candidate := &core.Signal{Agency: "GSA"}

	assert.Equal(t, 0.5, s.MetadataFit(q, candidate))
}

func TestScore_EmptyQueryTerms(t *testing.T) {
	s, err := NewScorer()
	require.NoError(t, err)

	q := s.NewQuery(nil, core.Filter{})
	candidate := &core.Signal{Agency: "NOAA", Terms: []string{"satellite"}}

	// Keyword component contributes 0, not an error.
	got := s.Score(q, 0.5, candidate)
	assert.InDelta(t, DefaultWeights.Semantic*0.5, got, 1e-9)
}

func TestJaccard(t *testing.T) {
	set := func(terms ...string) map[string]bool {
		m := make(map[string]bool)
		for _, t := range terms {
			m[t] = true
		}
		return m
	}

	tests := []struct {
		name      string
		query     map[string]bool
		candidate []string
		want      float64
	}{
		{"identical", set("a", "b"), []string{"a", "b"}, 1},
		{"half overlap", set("a", "b"), []string{"b", "c"}, 1.0 / 3.0},
		{"disjoint", set("a"), []string{"b"}, 0},
		{"empty query", set(), []string{"a"}, 0},
		{"empty candidate", set("a"), nil, 0},
		{"duplicate candidate terms collapse", set("a"), []string{"a", "a", "a"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, jaccard(tt.query, tt.candidate), 1e-9)
		})
	}
}

func TestTaxonomy_Infer(t *testing.T) {
	tax := DefaultTaxonomy()

	t.Run("merges and sorts", func(t *testing.T) {
		inf := tax.Infer([]string{"satellite", "flood"})
		assert.Equal(t, []string{"disaster-response", "earth-observation"}, inf.Codes)
		assert.Contains(t, inf.Agencies, "NOAA")
		assert.Contains(t, inf.Agencies, "FEMA")
	})

	t.Run("unknown terms infer nothing", func(t *testing.T) {
		inf := tax.Infer([]string{"quantum", "blockchain"})
		assert.Empty(t, inf.Codes)
		assert.Empty(t, inf.Agencies)
	})

	t.Run("deterministic", func(t *testing.T) {
		a := tax.Infer([]string{"satellite", "cyber", "flood"})
		b := tax.Infer([]string{"satellite", "cyber", "flood"})
		assert.Equal(t, a, b)
	})
}
