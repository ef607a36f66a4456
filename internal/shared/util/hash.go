package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a stable hex identifier for s, safe to embed in cache and
// lock keys without exposing the raw value.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
