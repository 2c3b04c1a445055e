// Package ranking reranks nearest-neighbor candidates with a heading similarity boost.
package ranking

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/hyperjump/clausefind/internal/embedding"
	"github.com/hyperjump/clausefind/pkg/utils"
)

// Encoder maps texts to fixed-length vectors comparable by cosine similarity.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderEncoder encodes with a sentence embedding model.
type EmbedderEncoder struct {
	Embedder embedding.Embedder
}

// Encode embeds texts in one batch.
func (e EmbedderEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return e.Embedder.EmbedBatch(ctx, texts)
}

// DefaultLexicalDimensions is the number of hash buckets used by LexicalEncoder.
const DefaultLexicalDimensions = 1024

// LexicalEncoder builds hashed term-frequency vectors from bleve's English analyzer
// (lowercasing, stop words, possessives, Porter stemming). "Coverage" and "coverage
// details" share the stem "coverag" and so have positive cosine similarity.
type LexicalEncoder struct {
	analyzer   analysis.Analyzer
	dimensions int
}

// NewLexicalEncoder creates a lexical encoder with the given number of buckets.
func NewLexicalEncoder(dimensions int) (*LexicalEncoder, error) {
	if dimensions <= 0 {
		dimensions = DefaultLexicalDimensions
	}
	mapping := bleve.NewIndexMapping()
	analyzer := mapping.AnalyzerNamed(en.AnalyzerName)
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer %q not registered", en.AnalyzerName)
	}
	return &LexicalEncoder{analyzer: analyzer, dimensions: dimensions}, nil
}

// Encode returns one L2-normalized term vector per text. Texts with no indexable terms
// encode to the zero vector.
func (l *LexicalEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, l.dimensions)
		for _, tok := range l.analyzer.Analyze([]byte(text)) {
			h := fnv.New32a()
			_, _ = h.Write(tok.Term)
			vec[h.Sum32()%uint32(l.dimensions)]++
		}
		utils.NormalizeL2(vec)
		out[i] = vec
	}
	return out, nil
}

// Terms returns the analyzed terms of text, mostly for diagnostics.
func (l *LexicalEncoder) Terms(text string) []string {
	stream := l.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}
