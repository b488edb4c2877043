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


package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/poiesic/sigmatch/ai"
)

// DefaultDimensions is the default vector size for the local embedder.
const DefaultDimensions = 256

// Embedder implements ai.Embedder with token feature hashing. It requires no
// network access and is a pure function of its input, which makes it suitable
// for offline deployments and reproducible tests. Texts sharing tokens get
// vectors with proportionally higher cosine similarity.
type Embedder struct {
	dimensions int
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder)

// WithDimensions sets the vector size. Values below 2 fall back to the default.
func WithDimensions(n int) Option {
	return func(e *Embedder) {
		if n >= 2 {
			e.dimensions = n
		}
	}
}

// NewEmbedder creates a local feature-hashing embedder.
func NewEmbedder(opts ...Option) *Embedder {
	e := &Embedder{dimensions: DefaultDimensions}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedText generates a deterministic unit-length vector for the text.
func (e *Embedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

// EmbedTexts generates deterministic vectors for multiple texts.
func (e *Embedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// embed hashes each whitespace token into a dimension with a hash-derived
// sign, then normalizes the accumulated vector to unit length.
func (e *Embedder) embed(text string) []float32 {
	vector := make([]float32, e.dimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()

		dim := int(sum) % e.dimensions
		if dim < 0 {
			dim += e.dimensions
		}
		if sum&0x80000000 != 0 {
			vector[dim] -= 1
		} else {
			vector[dim] += 1
		}
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vector
	}

	norm := float32(1.0 / math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}
