// Package retrieval answers queries: expand, embed, search the vector index and rerank
// the candidates with a heading similarity boost.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/clausefind/internal/embedding"
	"github.com/hyperjump/clausefind/internal/expand"
	"github.com/hyperjump/clausefind/internal/models"
	"github.com/hyperjump/clausefind/internal/ranking"
	"github.com/hyperjump/clausefind/internal/vector"
	"go.uber.org/zap"
)

var (
	// ErrEmbeddingUnavailable means the query could not be embedded.
	ErrEmbeddingUnavailable = errors.New("query embedding unavailable")
	// ErrEmptyQuery is returned for blank query text.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// DefaultTopK is used when Retrieve is called with topK <= 0.
const DefaultTopK = 5

// Index is the nearest-neighbor search the retriever reads from. *vector.Store satisfies it.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]models.Hit, error)
	Size() int
	Dimensions() int
}

// Retriever runs the retrieval pipeline over one index.
type Retriever struct {
	index       Index
	embedder    embedding.Embedder
	expander    expand.Expander
	scorer      *ranking.HeadingScorer
	boostWeight float64
	defaultTopK int
	logger      *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithExpander enables query expansion. Expansion is best effort.
func WithExpander(e expand.Expander) Option {
	return func(r *Retriever) { r.expander = e }
}

// WithHeadingScorer sets the heading scorer. The default uses the lexical encoder.
func WithHeadingScorer(s *ranking.HeadingScorer) Option {
	return func(r *Retriever) { r.scorer = s }
}

// WithBoostWeight sets the heading boost weight. 0 disables the boost.
func WithBoostWeight(w float64) Option {
	return func(r *Retriever) { r.boostWeight = w }
}

// WithDefaultTopK sets the result count used when a call passes topK <= 0.
func WithDefaultTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.defaultTopK = k
		}
	}
}

// NewRetriever creates a retriever over index that embeds queries with embedder.
func NewRetriever(index Index, embedder embedding.Embedder, opts ...Option) (*Retriever, error) {
	if index == nil || embedder == nil {
		return nil, fmt.Errorf("retriever needs an index and an embedder")
	}
	r := &Retriever{
		index:       index,
		embedder:    embedder,
		expander:    expand.Passthrough{},
		boostWeight: ranking.DefaultBoostWeight,
		defaultTopK: DefaultTopK,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scorer == nil {
		enc, err := ranking.NewLexicalEncoder(ranking.DefaultLexicalDimensions)
		if err != nil {
			return nil, fmt.Errorf("create heading encoder: %w", err)
		}
		r.scorer = ranking.NewHeadingScorer(enc)
	}
	return r, nil
}

// Open loads the persisted index at indexPath/metadataPath and returns a retriever over
// it. A missing index file returns vector.ErrNotFound.
func Open(indexPath, metadataPath string, embedder embedding.Embedder, storeOpts []vector.StoreOption, opts ...Option) (*Retriever, *vector.Store, error) {
	store, err := vector.NewStore(indexPath, metadataPath, embedder.Dimensions(), storeOpts...)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Load(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	r, err := NewRetriever(store, embedder, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return r, store, nil
}

// Retrieve returns the topK best chunks for query. Expansion failures fall back to the
// raw query. Candidates are the topK nearest neighbors of the expanded query's
// embedding, reordered by -distance + headingScore*boostWeight where the heading score
// compares the raw query with each candidate's headings.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (*models.RetrieveResponse, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	q := models.Query{Raw: query, Expanded: r.expand(ctx, query)}

	vec, err := r.embedder.Embed(ctx, q.Expanded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingUnavailable)
	}
	if d := r.index.Dimensions(); len(vec) != d {
		return nil, fmt.Errorf("%w: embedder returned %d values, index expects %d", ErrEmbeddingUnavailable, len(vec), d)
	}
	q.Embedding = vec

	hits, err := r.index.Search(ctx, q.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	headings := make([][]string, len(hits))
	for i, h := range hits {
		headings[i] = models.HeadingsFrom(h.Metadata)
	}
	scores, err := r.scorer.Scores(ctx, q.Raw, headings)
	if err != nil {
		r.logger.Warn("heading scoring failed, ranking by distance only", zap.Error(err))
		scores = nil
	}

	resp := &models.RetrieveResponse{
		Query:         q.Raw,
		ExpandedQuery: q.Expanded,
		Results:       ranking.Rerank(hits, scores, r.boostWeight, topK),
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	r.logger.Debug("retrieve",
		zap.String("query", q.Raw),
		zap.Int("candidates", len(hits)),
		zap.Int("results", len(resp.Results)),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}

func (r *Retriever) expand(ctx context.Context, query string) string {
	expanded, err := r.expander.Expand(ctx, query)
	if err != nil {
		r.logger.Warn("query expansion failed, using raw query", zap.String("query", query), zap.Error(err))
		return query
	}
	if strings.TrimSpace(expanded) == "" {
		r.logger.Warn("query expansion returned empty text, using raw query", zap.String("query", query))
		return query
	}
	return expanded
}

// IndexSize returns the number of entries in the index.
func (r *Retriever) IndexSize() int {
	return r.index.Size()
}
