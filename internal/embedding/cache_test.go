package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d", c.Len())
	}
}

type countingEmbedder struct {
	*MockEmbedder
	batches int
	texts   int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.texts++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches++
	c.texts += len(texts)
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	c := NewCachedEmbedder(inner, 10)

	first, _ := c.Embed(ctx, "coverage")
	second, _ := c.Embed(ctx, "coverage")
	if inner.texts != 1 {
		t.Errorf("expected one upstream call, got %d", inner.texts)
	}
	if first[0] != second[0] {
		t.Error("cached value differs")
	}

	out, err := c.EmbedBatch(ctx, []string{"coverage", "exclusions", "limits"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0] == nil || out[2] == nil {
		t.Fatalf("batch = %v", out)
	}
	if inner.texts != 3 {
		t.Errorf("only the 2 misses should go upstream, total texts=%d", inner.texts)
	}
}
