package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AlgorithmPrefix tags stored hashes with the digest algorithm so a future
// migration is detectable by readers.
const AlgorithmPrefix = "sha256:"

// Sum returns the SHA-256 digest of content as "sha256:<hex>".
// Pure and deterministic; no side effects.
func Sum(content []byte) string {
	digest := sha256.Sum256(content)
	return AlgorithmPrefix + hex.EncodeToString(digest[:])
}

// Verify reports whether content hashes to the given prefixed digest.
func Verify(content []byte, prefixed string) bool {
	if !strings.HasPrefix(prefixed, AlgorithmPrefix) {
		return false
	}
	return Sum(content) == prefixed
}
