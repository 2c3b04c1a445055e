package vector

import "errors"

var (
	// ErrNotFound means the vector file or the metadata file does not exist:
	// no index has been built yet. It is distinct from an empty index.
	ErrNotFound = errors.New("vector index not found")
	// ErrDimensionMismatch means a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrCorruptState means a persisted file could not be decoded or the two files disagree.
	ErrCorruptState = errors.New("vector index state corrupt")
)
