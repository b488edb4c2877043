package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases and strips punctuation",
			in:   "We build Satellite-Imaging software!",
			want: "we build satellite-imaging software",
		},
		{
			name: "collapses whitespace",
			in:   "  flood \t detection\n\nservices ",
			want: "flood detection services",
		},
		{
			name: "keeps digits",
			in:   "NAICS 541370 services",
			want: "naics 541370 services",
		},
		{
			name: "whitespace only",
			in:   " \t\n ",
			want: "",
		},
		{
			name: "punctuation only",
			in:   "...!?,",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTerms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "drops stop words",
			in:   "we analyze satellite images for the flood detection",
			want: []string{"analyze", "detection", "flood", "images", "satellite"},
		},
		{
			name: "deduplicates and sorts",
			in:   "satellite satellite imagery analytics imagery",
			want: []string{"analytics", "imagery", "satellite"},
		},
		{
			name: "keeps hyphenated compounds",
			in:   "earth-observation data",
			want: []string{"data", "earth-observation"},
		},
		{
			name: "trims stray hyphens",
			in:   "-edge- compute",
			want: []string{"compute", "edge"},
		},
		{
			name: "all stop words yields empty set",
			in:   "we will have all of this",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Terms(tt.in))
		})
	}
}

func TestContainsTerm(t *testing.T) {
	terms := Terms("satellite imagery analytics disaster response")

	assert.True(t, ContainsTerm(terms, "satellite"))
	assert.True(t, ContainsTerm(terms, "disaster"))
	assert.False(t, ContainsTerm(terms, "flood"))
	assert.False(t, ContainsTerm(nil, "satellite"))
}

func TestNormalizeVector(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float32{2, 0}
		_ = NormalizeVector(in)
		assert.Equal(t, []float32{2, 0}, in)
	})
}
