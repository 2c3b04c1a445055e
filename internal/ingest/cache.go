// Package ingest turns documents into indexed chunks exactly once per document path.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/clausefind/internal/vector"
)

// ErrCorruptState is returned when the cache file exists but cannot be decoded.
var ErrCorruptState = vector.ErrCorruptState

// DocumentCache records which documents have already been ingested, keyed by document id.
type DocumentCache interface {
	Contains(docID string) (bool, error)
	Record(docID, path string) error
	Persist() error
	Len() (int, error)
	Close() error
}

// Cache is the JSON-file ingestion cache: an object mapping document id to the path it
// was computed from. Records are never removed.
type Cache struct {
	path    string
	entries map[string]string
	mu      sync.RWMutex
}

// NewCache returns an empty cache persisted at path. Call Load to read existing records.
func NewCache(path string) *Cache {
	return &Cache{path: path, entries: make(map[string]string)}
}

// Load replaces the in-memory records with the file contents. A missing file leaves
// the cache empty; an unreadable or malformed one returns ErrCorruptState.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.mu.Lock()
		c.entries = make(map[string]string)
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: decode cache %s: %v", ErrCorruptState, c.path, err)
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Contains reports whether docID has been recorded.
func (c *Cache) Contains(docID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[docID]
	return ok, nil
}

// Record stores docID -> path, overwriting any previous value.
func (c *Cache) Record(docID, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[docID] = path
	return nil
}

// Persist writes all records to the cache file, creating its directory.
func (c *Cache) Persist() error {
	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Len returns the number of recorded documents.
func (c *Cache) Len() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// Close is a no-op for the file cache.
func (c *Cache) Close() error {
	return nil
}
