package vector

import (
	"math"
	"testing"
)

func TestSquaredL2(t *testing.T) {
	if d := SquaredL2([]float32{1, 0, 0, 0}, []float32{0, 1, 0, 0}); d != 2 {
		t.Errorf("SquaredL2 = %v, want 2", d)
	}
	if d := SquaredL2([]float32{1, 2}, []float32{1, 2}); d != 0 {
		t.Errorf("SquaredL2 identical = %v, want 0", d)
	}
	if d := SquaredL2([]float32{1}, []float32{1, 2}); !math.IsInf(d, 1) {
		t.Errorf("SquaredL2 mismatched = %v, want +Inf", d)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if s := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(s-1) > 1e-9 {
		t.Errorf("parallel = %v, want 1", s)
	}
	if s := CosineSimilarity([]float32{1, 0}, []float32{0, 3}); s != 0 {
		t.Errorf("orthogonal = %v, want 0", s)
	}
	if s := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); math.Abs(s+1) > 1e-9 {
		t.Errorf("opposite = %v, want -1", s)
	}
	if s := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); s != 0 {
		t.Errorf("zero vector = %v, want 0", s)
	}
}
