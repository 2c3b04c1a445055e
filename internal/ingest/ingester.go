package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/clausefind/internal/embedding"
	"github.com/hyperjump/clausefind/internal/fileid"
	"github.com/hyperjump/clausefind/internal/models"
	"github.com/hyperjump/clausefind/internal/vector"
	"go.uber.org/zap"
)

// ErrNoContent is returned when a document yields no chunks. Such documents are not recorded.
var ErrNoContent = errors.New("document has no extractable text")

// TextExtractor returns the text of a document path or URL.
type TextExtractor interface {
	Extract(ctx context.Context, source string) (string, error)
}

// Splitter splits document text into chunks tagged with metadata.
type Splitter interface {
	Chunk(source, text string) []models.Chunk
}

// Result describes one IngestDocument call.
type Result struct {
	DocID    string        `json:"doc_id"`
	Source   string        `json:"source"`
	Chunks   int           `json:"chunks"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

// Ingester drives extract, chunk, embed and store for documents, consulting the
// ingestion cache so that each path is processed at most once.
type Ingester struct {
	store     *vector.Store
	cache     DocumentCache
	extractor TextExtractor
	splitter  Splitter
	embedder  embedding.Embedder
	logger    *zap.Logger
	mu        sync.Mutex
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// WithExtractor sets the document text extractor.
func WithExtractor(e TextExtractor) Option {
	return func(i *Ingester) { i.extractor = e }
}

// WithSplitter sets the chunker.
func WithSplitter(s Splitter) Option {
	return func(i *Ingester) { i.splitter = s }
}

// WithEmbedder sets the embedder used by IngestDocument.
func WithEmbedder(e embedding.Embedder) Option {
	return func(i *Ingester) { i.embedder = e }
}

// NewIngester creates an ingester writing to store and recording documents in cache.
func NewIngester(store *vector.Store, cache DocumentCache, opts ...Option) *Ingester {
	i := &Ingester{store: store, cache: cache, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest appends pre-embedded chunks to the index and persists it. A batch with any
// wrong-length embedding is rejected before anything is written, and a batch that
// cannot be persisted is removed from the index again.
func (i *Ingester) Ingest(ctx context.Context, chunks []models.Chunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ingestLocked(ctx, chunks)
}

func (i *Ingester) ingestLocked(ctx context.Context, chunks []models.Chunk) error {
	return i.store.AddAndPersist(ctx, chunks)
}

// IngestDocument runs the full pipeline for one document path or URL. A path already
// in the cache is skipped without touching the index.
func (i *Ingester) IngestDocument(ctx context.Context, path string) (*Result, error) {
	if i.extractor == nil || i.splitter == nil || i.embedder == nil {
		return nil, fmt.Errorf("ingester needs an extractor, a splitter and an embedder")
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	start := time.Now()
	res := &Result{DocID: fileid.DocID(path), Source: path}
	seen, err := i.cache.Contains(res.DocID)
	if err != nil {
		return nil, fmt.Errorf("check cache: %w", err)
	}
	if seen {
		i.logger.Info("document already processed, skipping", zap.String("path", path))
		res.Skipped = true
		return res, nil
	}

	text, err := i.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	chunks := i.splitter.Chunk(path, text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoContent)
	}
	embedded, err := embedding.EmbedChunks(ctx, i.embedder, chunks)
	if err != nil {
		return nil, err
	}
	if err := i.ingestLocked(ctx, embedded); err != nil {
		return nil, err
	}
	if err := i.cache.Record(res.DocID, path); err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}
	if err := i.cache.Persist(); err != nil {
		return nil, fmt.Errorf("persist cache: %w", err)
	}

	res.Chunks = len(embedded)
	res.Duration = time.Since(start)
	i.logger.Info("document ingested",
		zap.String("path", path),
		zap.String("doc_id", res.DocID),
		zap.Int("chunks", res.Chunks),
		zap.Int("index_size", i.store.Size()),
		zap.Duration("duration", res.Duration))
	return res, nil
}
