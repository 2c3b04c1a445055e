// Package models defines core data structures for chunks, index entries, queries, and results.
package models

// HeadingsKey is the metadata key holding the ordered section headings of a chunk.
const HeadingsKey = "headings"

// Chunk is a unit of indexed content: text, free-form metadata, and its embedding.
type Chunk struct {
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	Embedding []float32              `json:"embedding,omitempty"`
}

// IndexEntry is the stored form of a Chunk. Its position in the index is its identifier.
type IndexEntry = Chunk

// Headings returns the chunk's section headings, or nil when none are recorded.
func (c *Chunk) Headings() []string {
	return HeadingsFrom(c.Metadata)
}

// HeadingsFrom reads the headings list from a metadata map. It accepts []string as built
// in memory and []interface{} as decoded from JSON; non-string elements are skipped.
func HeadingsFrom(metadata map[string]interface{}) []string {
	if metadata == nil {
		return nil
	}
	switch v := metadata[HeadingsKey].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, h := range v {
			if s, ok := h.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
