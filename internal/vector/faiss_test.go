//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/clausefind/internal/models"
)

func TestFAISSBackend_SearchAndPadding(t *testing.T) {
	b, err := NewFAISSBackend(3)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := b.Add([][]float32{{1, 0, 0}, {0, 1, 0}}); err != nil {
		t.Fatal(err)
	}
	dist, labels, err := b.Search([]float32{1, 0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != 0 || dist[0] != 0 {
		t.Errorf("top slot = (%d, %v), want (0, 0)", labels[0], dist[0])
	}
	if labels[2] != NoMatch || labels[3] != NoMatch {
		t.Errorf("expected FAISS to pad with -1, got %v", labels)
	}
}

func TestFAISSBackend_StoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	b, err := NewFAISSBackend(2)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(filepath.Join(dir, "faiss_index.bin"), filepath.Join(dir, "metadata.json"), 2, WithBackend(b))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	_ = s.AddEmbeddings(ctx, []models.IndexEntry{
		{Text: "a", Embedding: []float32{1, 0}},
		{Text: "b", Embedding: []float32{0, 1}},
	})
	if err := s.Persist(); err != nil {
		t.Fatal(err)
	}

	b2, _ := NewFAISSBackend(2)
	s2, _ := NewStore(filepath.Join(dir, "faiss_index.bin"), filepath.Join(dir, "metadata.json"), 2, WithBackend(b2))
	defer s2.Close()
	if err := s2.Load(); err != nil {
		t.Fatal(err)
	}
	hits, err := s2.Search(ctx, []float32{0, 1}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Text != "b" {
		t.Errorf("hits = %+v", hits)
	}
}
