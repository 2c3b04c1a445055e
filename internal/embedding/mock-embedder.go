package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/clausefind/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests. Texts registered with SetVector
// return that vector; any other text gets a unit vector derived from its hash.
type MockEmbedder struct {
	dimensions int
	fixed      map[string][]float32
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockEmbedder{dimensions: dimensions, fixed: make(map[string][]float32)}
}

// SetVector pins the embedding returned for text.
func (e *MockEmbedder) SetVector(text string, vec []float32) {
	e.fixed[text] = vec
}

// Embed returns the pinned vector for text, or a deterministic one based on its hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.fixed[text]; ok {
		out := make([]float32, len(v))
		copy(out, v)
		return out, nil
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
