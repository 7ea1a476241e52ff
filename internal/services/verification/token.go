// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TokenLength is the number of random bytes in a verification token.
const TokenLength = 32

// GenerateToken returns a new random token and the SHA256 hash stored for it.
func GenerateToken() (plaintext, hash string, err error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	plaintext = hex.EncodeToString(b)
	return plaintext, HashToken(plaintext), nil
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
