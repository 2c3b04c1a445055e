//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import "fmt"

var errFAISSUnavailable = fmt.Errorf("FAISS not available: build with -tags=faiss and install FAISS library")

// FAISSBackend is a stub used when the faiss build tag is not set.
type FAISSBackend struct{}

// NewFAISSBackend returns an error because FAISS is not compiled in.
func NewFAISSBackend(dimensions int) (*FAISSBackend, error) {
	return nil, errFAISSUnavailable
}

func (f *FAISSBackend) Add(vectors [][]float32) error { return errFAISSUnavailable }

func (f *FAISSBackend) Search(query []float32, k int) ([]float32, []int64, error) {
	return nil, nil, errFAISSUnavailable
}

func (f *FAISSBackend) Save(path string) error { return errFAISSUnavailable }
func (f *FAISSBackend) Load(path string) error { return errFAISSUnavailable }
func (f *FAISSBackend) Reset()                 {}
func (f *FAISSBackend) Truncate(n int) error   { return errFAISSUnavailable }
func (f *FAISSBackend) Size() int              { return 0 }
func (f *FAISSBackend) Dimensions() int        { return 0 }
func (f *FAISSBackend) Close() error           { return nil }

// Type returns the backend type identifier.
func (f *FAISSBackend) Type() string {
	return string(IndexTypeFAISS)
}
