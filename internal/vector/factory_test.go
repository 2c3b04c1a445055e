package vector

import "testing"

func TestNewBackend_Memory(t *testing.T) {
	b, err := NewBackend("memory", 3)
	if err != nil {
		t.Fatalf("NewBackend(memory): %v", err)
	}
	defer b.Close()

	if err := b.Add([][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if b.Size() != 1 {
		t.Errorf("Size=%d, want 1", b.Size())
	}
	if b.Type() != "memory" {
		t.Errorf("Type=%q", b.Type())
	}
}

func TestNewBackend_Empty(t *testing.T) {
	b, err := NewBackend("", 3)
	if err != nil {
		t.Fatalf("NewBackend(''): %v", err)
	}
	defer b.Close()
	if b.Size() != 0 {
		t.Errorf("Size=%d, want 0", b.Size())
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	if _, err := NewBackend("hnsw", 3); err == nil {
		t.Error("expected error for unknown index type")
	}
}

func TestNewBackend_InvalidDimension(t *testing.T) {
	if _, err := NewBackend("memory", 0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestNewBackend_FAISSMatchesAvailability(t *testing.T) {
	b, err := NewBackend("faiss", 3)
	if IsFAISSAvailable() {
		if err != nil {
			t.Fatalf("FAISS available but NewBackend failed: %v", err)
		}
		_ = b.Close()
		return
	}
	if err == nil {
		t.Error("expected error when FAISS is not compiled in")
	}
}
