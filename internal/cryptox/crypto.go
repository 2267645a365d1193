// Package cryptox holds the small cryptographic helpers used for session
// bookkeeping. Session tokens are stored only as digests.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// TokenDigest returns the hex SHA-256 of a session token.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MatchesDigest compares token against a stored digest in constant time.
func MatchesDigest(digest, token string) bool {
	if digest == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(TokenDigest(token))) == 1
}
