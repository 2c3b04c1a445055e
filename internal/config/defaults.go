package config

import "time"

// DefaultBoostWeight is the heading boost weight used when retrieval.boost_weight is unset.
const DefaultBoostWeight = 0.25

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "./data/faiss_index.bin"
	}
	if cfg.Storage.MetadataPath == "" {
		cfg.Storage.MetadataPath = "./data/metadata.json"
	}
	if cfg.Storage.CachePath == "" {
		cfg.Storage.CachePath = "./data/processed_docs.json"
	}
	if cfg.Storage.CacheBackend == "" {
		cfg.Storage.CacheBackend = CacheBackendJSON
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "./data/processed_docs.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 2
	}
	if cfg.Expansion.Provider == "" {
		cfg.Expansion.Provider = "openai"
	}
	if cfg.Expansion.Model == "" {
		cfg.Expansion.Model = "gpt-4o-mini"
	}
	if cfg.Expansion.Timeout == 0 {
		cfg.Expansion.Timeout = 20 * time.Second
	}
	if cfg.Expansion.MaxRetries == 0 {
		cfg.Expansion.MaxRetries = 1
	}
	if cfg.Heading.Encoder == "" {
		cfg.Heading.Encoder = HeadingEncoderLexical
	}
	if cfg.Heading.Dimensions == 0 {
		if cfg.Heading.Encoder == HeadingEncoderONNX {
			cfg.Heading.Dimensions = 384
		} else {
			cfg.Heading.Dimensions = 1024
		}
	}
	if cfg.Heading.MaxTokens == 0 {
		cfg.Heading.MaxTokens = 64
	}
	if cfg.Heading.CacheSize == 0 {
		cfg.Heading.CacheSize = 4096
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 50
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "memory"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 300
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 50
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
