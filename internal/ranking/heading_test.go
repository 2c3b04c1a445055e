package ranking

import (
	"context"
	"errors"
	"math"
	"testing"
)

// tableEncoder returns fixed vectors per text and counts calls.
type tableEncoder struct {
	vectors map[string][]float32
	calls   int
	texts   int
	err     error
}

func (e *tableEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.texts += len(texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectors[t]
	}
	return out, nil
}

func TestHeadingScorer_MaxAcrossHeadings(t *testing.T) {
	enc := &tableEncoder{vectors: map[string][]float32{
		"knee surgery": {1, 0},
		"Exclusions":   {0, 1},
		"Surgery":      {1, 1},
		"Definitions":  {-1, 0},
	}}
	s := NewHeadingScorer(enc)
	scores, err := s.Scores(context.Background(), "knee surgery", [][]string{
		{"Exclusions", "Surgery"},
		{},
		{"Definitions"},
		{"Surgery"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(scores[0]-1/math.Sqrt2) > 1e-6 {
		t.Errorf("score 0 = %v, want 1/sqrt(2)", scores[0])
	}
	if scores[1] != 0 {
		t.Errorf("empty headings must score exactly 0, got %v", scores[1])
	}
	if math.Abs(scores[2]+1) > 1e-6 {
		t.Errorf("score 2 = %v, want -1", scores[2])
	}
	if enc.calls != 1 || enc.texts != 4 {
		t.Errorf("expected one call with query + 3 distinct headings, got calls=%d texts=%d", enc.calls, enc.texts)
	}
}

func TestHeadingScorer_NoHeadingsSkipsEncoder(t *testing.T) {
	enc := &tableEncoder{err: errors.New("should not be called")}
	scores, err := NewHeadingScorer(enc).Scores(context.Background(), "q", [][]string{nil, {}})
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 0 || scores[1] != 0 || enc.calls != 0 {
		t.Errorf("scores=%v calls=%d", scores, enc.calls)
	}
}

func TestHeadingScorer_EncoderError(t *testing.T) {
	enc := &tableEncoder{err: errors.New("model down")}
	if _, err := NewHeadingScorer(enc).Scores(context.Background(), "q", [][]string{{"A"}}); err == nil {
		t.Error("expected error")
	}
}

func TestLexicalEncoder(t *testing.T) {
	enc, err := NewLexicalEncoder(0)
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := enc.Encode(context.Background(), []string{"coverage details", "Coverage", "Exclusions", "the of"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs[0]) != DefaultLexicalDimensions {
		t.Fatalf("dimensions = %d", len(vecs[0]))
	}
	s := NewHeadingScorer(enc)
	scores, _ := s.Scores(context.Background(), "coverage details", [][]string{{"Coverage"}, {"Exclusions"}, {"the of"}})
	if scores[0] <= 0.5 {
		t.Errorf("stemmed match should score high, got %v", scores[0])
	}
	if scores[0] <= scores[1] {
		t.Errorf("Coverage (%v) should beat Exclusions (%v)", scores[0], scores[1])
	}
	if scores[2] != 0 {
		t.Errorf("stop words only should encode to zero, got %v", scores[2])
	}
	if terms := enc.Terms("Coverage"); len(terms) != 1 || terms[0] != "coverag" {
		t.Errorf("terms = %v", terms)
	}
}
