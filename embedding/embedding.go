// Package embedding converts text into vectors for the similarity-backed
// memory stores (chromem, postgres). The remote mem0 backend embeds
// server-side and does not use this package.
package embedding

import "context"

// Embedder converts text to a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Static is a deterministic embedder for tests: it hashes characters into a
// fixed-size vector. Similar strings produce similar vectors only by accident;
// use it where determinism matters more than semantics.
type Static struct {
	Dim int
}

// NewStatic creates a Static embedder with the given dimensionality.
func NewStatic(dim int) *Static { return &Static{Dim: dim} }

// Embed implements Embedder.
func (s *Static) Embed(_ context.Context, text string) ([]float32, error) {
	dim := s.Dim
	if dim <= 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	for i, r := range text {
		vec[i%dim] += float32(r%97) / 97
	}
	return vec, nil
}
