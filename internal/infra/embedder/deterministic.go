package embedder

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/yanqian/answered-once/internal/domain/qa"
)

// DeterministicEmbedder hashes text into a normalized pseudo-random vector.
// It stands in for the real model in tests and when no API key is configured;
// identical text always maps to the identical vector.
type DeterministicEmbedder struct {
	dim int
}

// NewDeterministicEmbedder constructs the embedder.
func NewDeterministicEmbedder(dim int) *DeterministicEmbedder {
	if dim <= 0 {
		dim = 32
	}
	return &DeterministicEmbedder{dim: dim}
}

// Embed converts text into a unit vector seeded by its FNV hash.
func (e *DeterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		input = " "
	}
	hash := fnv.New64a()
	_, _ = hash.Write([]byte(input))
	seed := hash.Sum64()

	vector := make([]float32, e.dim)
	for i := range vector {
		seed = seed*1099511628211 + 1469598103934665603
		vector[i] = float32(seed%1997)/1997.0 - 0.5
	}
	normalize(vector)
	return vector, nil
}

var _ qa.Embedder = (*DeterministicEmbedder)(nil)
