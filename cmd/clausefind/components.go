package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/clausefind/internal/chunker"
	"github.com/hyperjump/clausefind/internal/config"
	"github.com/hyperjump/clausefind/internal/embedding"
	"github.com/hyperjump/clausefind/internal/expand"
	"github.com/hyperjump/clausefind/internal/extract"
	"github.com/hyperjump/clausefind/internal/ingest"
	"github.com/hyperjump/clausefind/internal/ranking"
	"github.com/hyperjump/clausefind/internal/retrieval"
	"github.com/hyperjump/clausefind/internal/retry"
	"github.com/hyperjump/clausefind/internal/storage"
	"github.com/hyperjump/clausefind/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Store     *vector.Store
	Cache     ingest.DocumentCache
	Embedder  embedding.Embedder
	Ingester  *ingest.Ingester
	Retriever *retrieval.Retriever

	closers []func() error
}

// Close releases every component that holds a file, database or native session.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

// initializeComponents wires the full pipeline. A missing index is not an error here:
// the store starts empty and the first ingestion creates the files.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Embedder = embedder
	c.closers = append(c.closers, embedder.Close)

	store, err := vector.NewStore(cfg.Storage.IndexPath, cfg.Storage.MetadataPath, cfg.Embedding.Dimensions, storeOptions(cfg, logger)...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	c.Store = store
	c.closers = append(c.closers, store.Close)
	if err := store.Load(); err != nil {
		if !errors.Is(err, vector.ErrNotFound) {
			c.Close()
			return nil, fmt.Errorf("failed to load vector index: %w", err)
		}
		logger.Info("no persisted index yet, starting empty",
			zap.String("index_path", cfg.Storage.IndexPath))
	}

	cache, err := newDocumentCache(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Cache = cache
	c.closers = append(c.closers, cache.Close)

	c.Ingester = ingest.NewIngester(store, cache,
		ingest.WithLogger(logger),
		ingest.WithExtractor(extract.NewExtractor()),
		ingest.WithSplitter(chunker.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)),
		ingest.WithEmbedder(embedder),
	)

	opts, closeHeading, err := retrieverOptions(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeHeading)
	c.Retriever, err = retrieval.NewRetriever(store, embedder, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}
	return c, nil
}

// newEmbedder returns the configured query/chunk embedder behind an LRU cache.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	var base embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		base = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
			Retry:      retryPolicy(cfg.Embedding.Timeout, cfg.Embedding.MaxRetries),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		base = e
	}
	return embedding.NewCachedEmbedder(base, cfg.Embedding.CacheSize), nil
}

// storeOptions picks the vector backend, falling back to the pure Go one when the
// configured type is not compiled in.
func storeOptions(cfg *config.Config, logger *zap.Logger) []vector.StoreOption {
	opts := []vector.StoreOption{vector.WithLogger(logger)}
	if !cfg.Storage.StoreEmbeddingsOrDefault() {
		opts = append(opts, vector.WithoutStoredEmbeddings())
	}
	backend, err := vector.NewBackend(cfg.Retrieval.IndexType, cfg.Embedding.Dimensions)
	if err != nil {
		logger.Warn("failed to create vector backend, falling back to memory",
			zap.String("requested_type", cfg.Retrieval.IndexType),
			zap.Error(err))
		return opts
	}
	logger.Info("vector backend initialized",
		zap.String("type", cfg.Retrieval.IndexType),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))
	return append(opts, vector.WithBackend(backend))
}

func newDocumentCache(cfg *config.Config) (ingest.DocumentCache, error) {
	if cfg.Storage.CacheBackend == config.CacheBackendSQLite {
		c, err := storage.NewSQLiteCache(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ingestion cache: %w", err)
		}
		return c, nil
	}
	c := ingest.NewCache(cfg.Storage.CachePath)
	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("failed to load ingestion cache: %w", err)
	}
	return c, nil
}

// retrieverOptions builds the expander and heading scorer. The returned close func
// releases the heading model, if one was loaded.
func retrieverOptions(cfg *config.Config, logger *zap.Logger) ([]retrieval.Option, func() error, error) {
	noop := func() error { return nil }
	opts := []retrieval.Option{
		retrieval.WithLogger(logger),
		retrieval.WithBoostWeight(cfg.Retrieval.BoostWeightOrDefault()),
		retrieval.WithDefaultTopK(cfg.Retrieval.TopK),
	}

	if cfg.Expansion.Enabled && cfg.Expansion.Provider != "none" {
		x, err := expand.NewLLMExpander(expand.LLMConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.Expansion.BaseURL,
			Model:   cfg.Expansion.Model,
			Retry:   retryPolicy(cfg.Expansion.Timeout, cfg.Expansion.MaxRetries),
		}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize query expansion: %w", err)
		}
		opts = append(opts, retrieval.WithExpander(x))
	}

	switch cfg.Heading.Encoder {
	case config.HeadingEncoderONNX:
		model, err := embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:  cfg.Heading.ModelPath,
			Dimensions: cfg.Heading.Dimensions,
			MaxTokens:  cfg.Heading.MaxTokens,
			CacheSize:  cfg.Heading.CacheSize,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to load heading model: %w", err)
		}
		enc := ranking.EmbedderEncoder{Embedder: model}
		return append(opts, retrieval.WithHeadingScorer(ranking.NewHeadingScorer(enc))), model.Close, nil
	default:
		enc, err := ranking.NewLexicalEncoder(cfg.Heading.Dimensions)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize heading encoder: %w", err)
		}
		return append(opts, retrieval.WithHeadingScorer(ranking.NewHeadingScorer(enc))), noop, nil
	}
}

func retryPolicy(timeout time.Duration, maxRetries int) retry.Policy {
	p := retry.DefaultPolicy()
	p.Timeout = timeout
	p.MaxRetries = maxRetries
	return p
}
