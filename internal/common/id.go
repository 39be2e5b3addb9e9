package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentID derives a stable document identifier from the normalized
// document text. Identical content always hashes to the same ID, so
// re-ingesting a document overwrites its prior record instead of
// duplicating it.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
