// Package fileid provides the deterministic document ID used by the ingestion cache.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocID returns the hex SHA-256 digest of the document path string.
// The path is hashed exactly as given: no cleaning, no content. Two spellings of the
// same file are two documents, and a file edited in place keeps its ID.
func DocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:])
}
