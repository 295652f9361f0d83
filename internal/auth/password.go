// Package auth implements credential hashing for account passwords.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Stored credentials are unsalted sha-256 hex digests and authentication is a
// direct digest comparison. This reproduces the legacy storage format: every
// persisted credential matches digestPattern, so changing the scheme would
// invalidate existing rows. A salted KDF would be a breaking migration.
var digestPattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

// HashPassword returns the lowercase hex sha-256 digest of plain.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ValidDigest reports whether s is a well-formed credential digest.
func ValidDigest(s string) bool {
	return digestPattern.MatchString(s)
}
