package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash is the whole-file dedup key: any byte difference produces a
// different digest.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
