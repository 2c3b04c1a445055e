package models

import (
	"encoding/json"
	"testing"
)

func TestRetrieveRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		req      *RetrieveRequest
		wantErr  bool
		wantTopK int
	}{
		{"empty query", &RetrieveRequest{Query: ""}, true, 0},
		{"sets default top_k", &RetrieveRequest{Query: "x"}, false, 5},
		{"keeps explicit top_k", &RetrieveRequest{Query: "x", TopK: 3}, false, 3},
		{"caps top_k", &RetrieveRequest{Query: "x", TopK: 500}, false, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(5, 50)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.req.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.req.TopK, tt.wantTopK)
			}
		})
	}
}

func TestHeadingsFrom(t *testing.T) {
	if got := HeadingsFrom(nil); got != nil {
		t.Errorf("nil metadata: got %v", got)
	}
	if got := HeadingsFrom(map[string]interface{}{"source": "a.pdf"}); got != nil {
		t.Errorf("missing key: got %v", got)
	}
	got := HeadingsFrom(map[string]interface{}{HeadingsKey: []string{"Coverage", "Exclusions"}})
	if len(got) != 2 || got[0] != "Coverage" {
		t.Errorf("[]string: got %v", got)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(`{"headings":["Coverage",7,"Limits"]}`), &decoded); err != nil {
		t.Fatal(err)
	}
	got = HeadingsFrom(decoded)
	if len(got) != 2 || got[0] != "Coverage" || got[1] != "Limits" {
		t.Errorf("decoded JSON: got %v", got)
	}
}

func TestChunk_Headings(t *testing.T) {
	c := &Chunk{Text: "t", Metadata: map[string]interface{}{HeadingsKey: []string{}}}
	if len(c.Headings()) != 0 {
		t.Errorf("expected no headings, got %v", c.Headings())
	}
}
