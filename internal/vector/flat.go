package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FlatBackend is an exact brute-force L2 store. Every query scans all vectors.
type FlatBackend struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatBackend creates an empty flat backend for vectors of the given dimension.
func NewFlatBackend(dimensions int) (*FlatBackend, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatBackend{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the backend type identifier.
func (f *FlatBackend) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the vector dimension.
func (f *FlatBackend) Dimensions() int {
	return f.dimensions
}

// Add appends copies of vectors. The batch is rejected as a whole on any dimension mismatch.
func (f *FlatBackend) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("%w: vector %d has %d, expected %d", ErrDimensionMismatch, i, len(v), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		vec := make([]float32, f.dimensions)
		copy(vec, v)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search scans every stored vector and returns the k nearest by squared L2 distance.
func (f *FlatBackend) Search(query []float32, k int) ([]float32, []int64, error) {
	if len(query) != f.dimensions {
		return nil, nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, nil, nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	type scored struct {
		label    int64
		distance float64
	}
	scores := make([]scored, len(f.vectors))
	for i, vec := range f.vectors {
		scores[i] = scored{label: int64(i), distance: SquaredL2(query, vec)}
	}
	// Stable on insertion order: equal distances keep the smaller label first.
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].distance < scores[j].distance })

	distances := make([]float32, k)
	labels := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < len(scores) {
			distances[i] = float32(scores[i].distance)
			labels[i] = scores[i].label
			continue
		}
		distances[i] = math.MaxFloat32
		labels[i] = NoMatch
	}
	return distances, labels, nil
}

// Save writes the vectors to path, creating the directory if needed.
// Format (little endian): dimension uint32, count uint32, then count*dimension float32 values.
func (f *FlatBackend) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, vec := range f.vectors {
		if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return file.Close()
}

// Load replaces the in-memory vectors with the contents of path.
// On any error the current contents are left untouched.
func (f *FlatBackend) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	r := bufio.NewReader(file)

	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("%w: read dimensions: %v", ErrCorruptState, err)
	}
	if int(dim) != f.dimensions {
		return fmt.Errorf("%w: file has dimension %d, index expects %d", ErrCorruptState, dim, f.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("%w: read count: %v", ErrCorruptState, err)
	}
	vectors := make([][]float32, 0, n)
	buf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%w: read vector %d: %v", ErrCorruptState, i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after %d vectors", ErrCorruptState, n)
	}

	f.mu.Lock()
	f.vectors = vectors
	f.mu.Unlock()
	return nil
}

// Reset drops all stored vectors.
func (f *FlatBackend) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = make([][]float32, 0)
}

// Truncate keeps the first n vectors.
func (f *FlatBackend) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 || n > len(f.vectors) {
		return fmt.Errorf("truncate to %d: index holds %d vectors", n, len(f.vectors))
	}
	clear(f.vectors[n:])
	f.vectors = f.vectors[:n]
	return nil
}

// Vector returns a copy of the i-th stored vector.
func (f *FlatBackend) Vector(i int) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i < 0 || i >= len(f.vectors) {
		return nil, false
	}
	out := make([]float32, len(f.vectors[i]))
	copy(out, f.vectors[i])
	return out, true
}

// Size returns the number of stored vectors.
func (f *FlatBackend) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Close is a no-op for FlatBackend.
func (f *FlatBackend) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
