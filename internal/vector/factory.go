package vector

import "fmt"

// IndexType selects the backend that holds the raw vectors.
type IndexType string

const (
	// IndexTypeMemory is the pure Go brute-force flat backend.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is FAISS IndexFlatL2. Requires the FAISS C library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewBackend creates a backend of the specified type.
// Supported types: "memory" (default), "faiss".
func NewBackend(indexType string, dimensions int) (Backend, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewFlatBackend(dimensions)
	case IndexTypeFAISS:
		return NewFAISSBackend(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// IsFAISSAvailable reports whether FAISS support is compiled in (-tags=faiss).
func IsFAISSAvailable() bool {
	b, err := NewFAISSBackend(1)
	if err != nil {
		return false
	}
	_ = b.Close()
	return true
}
