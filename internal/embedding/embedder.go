// Package embedding provides the text embedding collaborators: a remote OpenAI-compatible
// embedder, an ONNX sentence model, a deterministic mock, and an LRU cache.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/clausefind/internal/models"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// EmbedChunks returns copies of chunks with Embedding filled in from e. Every vector
// must have e.Dimensions() values; a missing or short vector fails the whole call.
func EmbedChunks(ctx context.Context, e Embedder, chunks []models.Chunk) ([]models.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	out := make([]models.Chunk, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != e.Dimensions() {
			return nil, fmt.Errorf("embed chunks: chunk %d has %d values, expected %d", i, len(vectors[i]), e.Dimensions())
		}
		out[i] = models.Chunk{Text: c.Text, Metadata: c.Metadata, Embedding: vectors[i]}
	}
	return out, nil
}
