package expediente

// SHA-256 helpers for trust anchor fingerprints and document integrity
// checks. Declared hashes in the record are lowercase hex.

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns the SHA-256 digest of data as a lowercase hex string.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashMatches compares a computed digest against a declared one,
// case-insensitively. An empty declared hash never matches.
func HashMatches(computed, declared string) bool {
	if declared == "" {
		return false
	}
	return computed == strings.ToLower(declared)
}
