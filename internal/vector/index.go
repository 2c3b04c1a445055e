// Package vector provides the exact nearest-neighbor index and its persisted state.
package vector

// NoMatch is the label a backend reports for a result slot it could not fill.
const NoMatch int64 = -1

// Backend stores raw vectors in insertion order and answers exact squared-L2 queries.
// Label i always refers to the i-th vector added.
type Backend interface {
	Add(vectors [][]float32) error
	// Search returns exactly k (distance, label) pairs, ascending by distance with ties
	// broken by label. Slots beyond the stored count carry NoMatch.
	Search(query []float32, k int) (distances []float32, labels []int64, err error)
	Save(path string) error
	Load(path string) error
	Reset()
	// Truncate drops every vector at label n and above.
	Truncate(n int) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}
