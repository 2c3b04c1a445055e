package ranking

import (
	"context"
	"fmt"

	"github.com/hyperjump/clausefind/internal/vector"
)

// HeadingScorer scores how well a query matches a candidate's section headings.
type HeadingScorer struct {
	encoder Encoder
}

// NewHeadingScorer creates a scorer backed by encoder.
func NewHeadingScorer(encoder Encoder) *HeadingScorer {
	return &HeadingScorer{encoder: encoder}
}

// Scores returns, for each candidate's heading list, the maximum cosine similarity
// between the query and any heading. An empty list scores exactly 0. The query and
// all distinct headings are encoded in a single call.
func (h *HeadingScorer) Scores(ctx context.Context, query string, headings [][]string) ([]float64, error) {
	scores := make([]float64, len(headings))

	texts := []string{query}
	index := make(map[string]int)
	for _, list := range headings {
		for _, heading := range list {
			if _, ok := index[heading]; !ok {
				index[heading] = len(texts)
				texts = append(texts, heading)
			}
		}
	}
	if len(texts) == 1 {
		return scores, nil
	}

	vectors, err := h.encoder.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encode headings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("encode headings: got %d vectors for %d texts", len(vectors), len(texts))
	}
	queryVec := vectors[0]
	for i, list := range headings {
		if len(list) == 0 {
			continue
		}
		best := vector.CosineSimilarity(queryVec, vectors[index[list[0]]])
		for _, heading := range list[1:] {
			if s := vector.CosineSimilarity(queryVec, vectors[index[heading]]); s > best {
				best = s
			}
		}
		scores[i] = best
	}
	return scores, nil
}
