package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/clausefind/internal/models"
	"go.uber.org/zap"
)

// Store is the persistent vector index: a backend holding the vectors and a metadata
// sequence holding one entry per vector. Position i in both always describes the same
// chunk. AddEmbeddings and AddAndPersist are the only ways to grow them.
type Store struct {
	backend         Backend
	entries         []models.IndexEntry
	dimensions      int
	indexPath       string
	metadataPath    string
	storeEmbeddings bool
	logger          *zap.Logger
	mu              sync.RWMutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for persistence events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithBackend replaces the default flat backend. Its dimension must match the store's.
func WithBackend(b Backend) StoreOption {
	return func(s *Store) { s.backend = b }
}

// WithoutStoredEmbeddings drops the embedding field from metadata records.
// The vectors remain in the vector file.
func WithoutStoredEmbeddings() StoreOption {
	return func(s *Store) { s.storeEmbeddings = false }
}

// NewStore creates an empty store persisted to indexPath (vectors) and metadataPath (JSON).
func NewStore(indexPath, metadataPath string, dimensions int, opts ...StoreOption) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	s := &Store{
		entries:         make([]models.IndexEntry, 0),
		dimensions:      dimensions,
		indexPath:       indexPath,
		metadataPath:    metadataPath,
		storeEmbeddings: true,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		b, err := NewFlatBackend(dimensions)
		if err != nil {
			return nil, err
		}
		s.backend = b
	}
	if s.backend.Dimensions() != dimensions {
		return nil, fmt.Errorf("%w: backend has %d, store expects %d", ErrDimensionMismatch, s.backend.Dimensions(), dimensions)
	}
	return s, nil
}

// AddEmbeddings appends every entry's vector to the backend and its record to the
// metadata sequence, in order. If any embedding has the wrong length the whole batch
// is rejected and the store is unchanged.
func (s *Store) AddEmbeddings(ctx context.Context, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	vectors, err := s.checkBatch(entries)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(vectors, entries)
}

// AddAndPersist appends entries like AddEmbeddings and writes both files. If persisting
// fails the appended entries are removed again, so a failed call leaves nothing
// searchable behind.
func (s *Store) AddAndPersist(ctx context.Context, entries []models.IndexEntry) error {
	vectors, err := s.checkBatch(entries)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.entries)
	if err := s.addLocked(vectors, entries); err != nil {
		return err
	}
	if err := s.persistLocked(); err != nil {
		err = fmt.Errorf("persist index: %w", err)
		if terr := s.truncateLocked(before); terr != nil {
			s.logger.Error("failed to roll back vector index", zap.Error(terr))
			return fmt.Errorf("%w (rollback: %v)", err, terr)
		}
		s.logger.Warn("vector index persist failed, batch rolled back",
			zap.Int("entries", len(entries)),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) checkBatch(entries []models.IndexEntry) ([][]float32, error) {
	vectors := make([][]float32, len(entries))
	for i := range entries {
		if len(entries[i].Embedding) != s.dimensions {
			return nil, fmt.Errorf("%w: entry %d has %d, expected %d", ErrDimensionMismatch, i, len(entries[i].Embedding), s.dimensions)
		}
		vectors[i] = entries[i].Embedding
	}
	return vectors, nil
}

func (s *Store) addLocked(vectors [][]float32, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.backend.Add(vectors); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	for _, e := range entries {
		rec := models.IndexEntry{Text: e.Text, Metadata: e.Metadata}
		if rec.Metadata == nil {
			rec.Metadata = map[string]interface{}{}
		}
		if s.storeEmbeddings {
			rec.Embedding = append([]float32(nil), e.Embedding...)
		}
		s.entries = append(s.entries, rec)
	}
	return nil
}

// Persist writes the vector file and the metadata file, creating parent directories.
func (s *Store) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if err := s.backend.Save(s.indexPath); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeMetadata(s.metadataPath, s.entries); err != nil {
		return err
	}
	s.logger.Debug("vector index persisted",
		zap.String("index_path", s.indexPath),
		zap.String("metadata_path", s.metadataPath),
		zap.Int("entries", len(s.entries)),
	)
	return nil
}

// Load replaces the in-memory state with the persisted files. It returns ErrNotFound
// when either file is missing and ErrCorruptState when they cannot be decoded, leaving
// the in-memory state unchanged. If both decode but their lengths disagree the store is
// emptied and ErrCorruptState returned.
func (s *Store) Load() error {
	for _, p := range []string{s.indexPath, s.metadataPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNotFound, p)
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}
	entries, err := readMetadata(s.metadataPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Load(s.indexPath); err != nil {
		if errors.Is(err, ErrCorruptState) {
			return err
		}
		return fmt.Errorf("%w: load vectors: %v", ErrCorruptState, err)
	}
	if n := s.backend.Size(); n != len(entries) {
		// The backend already holds the file's vectors; drop everything rather than
		// keep a skewed pair.
		s.backend.Reset()
		s.entries = make([]models.IndexEntry, 0)
		return fmt.Errorf("%w: %d vectors but %d metadata records", ErrCorruptState, n, len(entries))
	}
	s.entries = entries
	s.logger.Debug("vector index loaded", zap.Int("entries", len(entries)))
	return nil
}

// truncateLocked shrinks both sequences back to n entries.
func (s *Store) truncateLocked(n int) error {
	if err := s.backend.Truncate(n); err != nil {
		return err
	}
	clear(s.entries[n:])
	s.entries = s.entries[:n]
	return nil
}

// Search returns up to k entries nearest to query by squared L2 distance, ascending,
// ties broken by insertion order. Slots the backend marks NoMatch are dropped.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]models.Hit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), s.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}
	// Backends size their result buffers by k.
	k = min(k, len(s.entries))
	distances, labels, err := s.backend.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return s.collectHits(distances, labels), nil
}

func (s *Store) collectHits(distances []float32, labels []int64) []models.Hit {
	hits := make([]models.Hit, 0, len(labels))
	for i, label := range labels {
		if label == NoMatch || label < 0 || label >= int64(len(s.entries)) {
			continue
		}
		e := s.entries[label]
		hits = append(hits, models.Hit{
			Position: int(label),
			Text:     e.Text,
			Metadata: e.Metadata,
			Distance: float64(distances[i]),
		})
	}
	return hits
}

// Entry returns the metadata record at position i.
func (s *Store) Entry(i int) (models.IndexEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.entries) {
		return models.IndexEntry{}, false
	}
	return s.entries[i], true
}

// Size returns the number of stored entries.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimensions returns the configured vector dimension.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Type returns the backend type identifier.
func (s *Store) Type() string {
	return s.backend.Type()
}

// Paths returns the vector file and metadata file paths.
func (s *Store) Paths() (indexPath, metadataPath string) {
	return s.indexPath, s.metadataPath
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func writeMetadata(path string, entries []models.IndexEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return f.Close()
}

func readMetadata(path string) ([]models.IndexEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}
	var entries []models.IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", ErrCorruptState, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: metadata is not an array", ErrCorruptState)
	}
	for i := range entries {
		if entries[i].Metadata == nil {
			entries[i].Metadata = map[string]interface{}{}
		}
	}
	return entries, nil
}
