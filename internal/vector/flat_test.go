package vector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFlatBackend_SearchOrderAndTies(t *testing.T) {
	b, _ := NewFlatBackend(2)
	// 1 and 2 are equidistant from the query; insertion order decides.
	if err := b.Add([][]float32{{5, 5}, {1, 0}, {0, 1}, {0, 0}}); err != nil {
		t.Fatal(err)
	}
	dist, labels, err := b.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	wantLabels := []int64{3, 1, 2}
	wantDist := []float32{0, 1, 1}
	for i := range wantLabels {
		if labels[i] != wantLabels[i] || dist[i] != wantDist[i] {
			t.Errorf("slot %d: got (%d, %v), want (%d, %v)", i, labels[i], dist[i], wantLabels[i], wantDist[i])
		}
	}
}

func TestFlatBackend_PadsWithNoMatch(t *testing.T) {
	b, _ := NewFlatBackend(2)
	_ = b.Add([][]float32{{1, 0}})
	_, labels, err := b.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 3 || labels[0] != 0 || labels[1] != NoMatch || labels[2] != NoMatch {
		t.Errorf("labels = %v", labels)
	}
}

func TestFlatBackend_AddRejectsWholeBatch(t *testing.T) {
	b, _ := NewFlatBackend(2)
	err := b.Add([][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if b.Size() != 0 {
		t.Errorf("partial add: size=%d", b.Size())
	}
}

func TestFlatBackend_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vectors.bin")
	b, _ := NewFlatBackend(3)
	_ = b.Add([][]float32{{1, 2, 3}, {0.5, -0.25, 1e-7}})
	if err := b.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewFlatBackend(3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("Size=%d, want 2", loaded.Size())
	}
	v, ok := loaded.Vector(1)
	if !ok || v[0] != 0.5 || v[1] != -0.25 || v[2] != 1e-7 {
		t.Errorf("vector 1 = %v", v)
	}
}

func TestFlatBackend_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	b, _ := NewFlatBackend(2)
	_ = b.Add([][]float32{{1, 1}})

	truncated := filepath.Join(dir, "truncated.bin")
	_ = b.Save(truncated)
	data, _ := os.ReadFile(truncated)
	if err := os.WriteFile(truncated, data[:len(data)-2], 0644); err != nil {
		t.Fatal(err)
	}
	if err := b.Load(truncated); !errors.Is(err, ErrCorruptState) {
		t.Errorf("truncated: expected ErrCorruptState, got %v", err)
	}
	if b.Size() != 1 {
		t.Errorf("failed load changed contents: size=%d", b.Size())
	}

	wrongDim := filepath.Join(dir, "dim.bin")
	other, _ := NewFlatBackend(3)
	_ = other.Save(wrongDim)
	if err := b.Load(wrongDim); !errors.Is(err, ErrCorruptState) {
		t.Errorf("wrong dimension: expected ErrCorruptState, got %v", err)
	}

	trailing := filepath.Join(dir, "trailing.bin")
	_ = b.Save(trailing)
	data, _ = os.ReadFile(trailing)
	_ = os.WriteFile(trailing, append(data, 0x01), 0644)
	if err := b.Load(trailing); !errors.Is(err, ErrCorruptState) {
		t.Errorf("trailing bytes: expected ErrCorruptState, got %v", err)
	}
}

func TestFlatBackend_Truncate(t *testing.T) {
	b, _ := NewFlatBackend(2)
	_ = b.Add([][]float32{{1, 0}, {0, 1}, {1, 1}})
	if err := b.Truncate(1); err != nil {
		t.Fatal(err)
	}
	if b.Size() != 1 {
		t.Fatalf("size = %d", b.Size())
	}
	if v, ok := b.Vector(0); !ok || v[0] != 1 || v[1] != 0 {
		t.Errorf("vector 0 = %v", v)
	}
	if err := b.Truncate(3); err == nil {
		t.Error("expected error growing via truncate")
	}
}
