package models

import "fmt"

// Query is one retrieval request as it moves through the pipeline.
// Expanded equals Raw when expansion is disabled or fails.
type Query struct {
	Raw       string    `json:"raw"`
	Expanded  string    `json:"expanded"`
	Embedding []float32 `json:"-"`
}

// RetrieveRequest is the input for a retrieval call over HTTP or the CLI.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate checks the request and fills in the default top_k, capped at maxTopK.
func (r *RetrieveRequest) Validate(defaultTopK, maxTopK int) error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = defaultTopK
	}
	if maxTopK > 0 && r.TopK > maxTopK {
		r.TopK = maxTopK
	}
	return nil
}
