// Package config provides configuration loading and structs for clausefind.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Expansion ExpansionConfig `yaml:"expansion"`
	Heading   HeadingConfig   `yaml:"heading"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Watch     WatchConfig     `yaml:"watch"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns host:port for net/http.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Cache backends for the ingestion cache.
const (
	CacheBackendJSON   = "json"
	CacheBackendSQLite = "sqlite"
)

// StorageConfig holds paths for the vector index, its metadata and the ingestion cache.
type StorageConfig struct {
	IndexPath    string `yaml:"index_path"`
	MetadataPath string `yaml:"metadata_path"`
	CachePath    string `yaml:"cache_path"`
	CacheBackend string `yaml:"cache_backend"`
	SQLitePath   string `yaml:"sqlite_path"`
	// StoreEmbeddings keeps each chunk's vector in the metadata file as well as in the
	// vector file. Defaults to true.
	StoreEmbeddings *bool `yaml:"store_embeddings"`
}

// StoreEmbeddingsOrDefault reports whether metadata records carry their embedding.
func (s StorageConfig) StoreEmbeddingsOrDefault() bool {
	return s.StoreEmbeddings == nil || *s.StoreEmbeddings
}

// CacheFile returns the file that holds the ingestion cache for the selected backend.
func (s StorageConfig) CacheFile() string {
	if s.CacheBackend == CacheBackendSQLite {
		return s.SQLitePath
	}
	return s.CachePath
}

// EmbeddingConfig holds settings for the primary embedding collaborator.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ExpansionConfig holds query expansion settings.
type ExpansionConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Heading encoders.
const (
	HeadingEncoderLexical = "lexical"
	HeadingEncoderONNX    = "onnx"
)

// HeadingConfig selects the secondary similarity model used for heading boosts.
type HeadingConfig struct {
	Encoder    string `yaml:"encoder"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds search and rerank settings.
type RetrievalConfig struct {
	TopK        int      `yaml:"top_k"`
	MaxTopK     int      `yaml:"max_top_k"`
	BoostWeight *float64 `yaml:"boost_weight"`
	IndexType   string   `yaml:"index_type"`
}

// BoostWeightOrDefault returns the configured heading boost weight. An explicit 0 disables the boost.
func (r *RetrievalConfig) BoostWeightOrDefault() float64 {
	if r.BoostWeight != nil {
		return *r.BoostWeight
	}
	return DefaultBoostWeight
}

// ChunkingConfig holds chunker window settings, in words.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.MetadataPath = expandPath(cfg.Storage.MetadataPath, configDir)
	cfg.Storage.CachePath = expandPath(cfg.Storage.CachePath, configDir)
	cfg.Storage.SQLitePath = expandPath(cfg.Storage.SQLitePath, configDir)
	if cfg.Heading.ModelPath != "" {
		cfg.Heading.ModelPath = expandPath(cfg.Heading.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied and paths left relative to the
// working directory. Used when no config file is given.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Storage.CacheBackend {
	case CacheBackendJSON, CacheBackendSQLite:
	default:
		return fmt.Errorf("invalid storage.cache_backend %q", c.Storage.CacheBackend)
	}
	switch c.Embedding.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("invalid embedding.provider %q", c.Embedding.Provider)
	}
	switch c.Heading.Encoder {
	case HeadingEncoderLexical, HeadingEncoderONNX:
	default:
		return fmt.Errorf("invalid heading.encoder %q", c.Heading.Encoder)
	}
	if c.Heading.Encoder == HeadingEncoderONNX && c.Heading.ModelPath == "" {
		return fmt.Errorf("heading.model_path is required for the onnx encoder")
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
