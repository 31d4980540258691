package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

const resetTokenBytes = 32

// GenerateResetToken returns an opaque 256-bit reset token encoded with
// unpadded base64url. The raw token is handed to the caller exactly once;
// only its hash is ever persisted.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashResetToken returns the SHA-256 digest of a reset token. The token is
// high-entropy random data, so an unsalted digest is sufficient at rest.
func HashResetToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// VerifyResetToken compares a submitted token against a stored hash in
// constant time.
func VerifyResetToken(token string, expectedHash []byte) bool {
	if token == "" || len(expectedHash) == 0 {
		return false
	}
	candidate := HashResetToken(token)
	if len(candidate) != len(expectedHash) {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, expectedHash) == 1
}
