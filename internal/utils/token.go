package utils

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for session tokens
	"encoding/base64"
	"encoding/hex"
)

// SessionTokenBytes is the amount of entropy in a session token.
const SessionTokenBytes = 32

// NewSessionToken returns a URL-safe random token carrying
// SessionTokenBytes of entropy.  The encoding has no padding so the
// token can be placed in headers and query strings unchanged.
func NewSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hash of a raw bearer token as a hex
// string.  Only the hash is stored so a leaked table_sessions dump
// cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
