// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification_test

import (
	"testing"

	"codeberg.org/oliverandrich/courses/internal/services/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	plaintext, hash, err := verification.GenerateToken()

	require.NoError(t, err)
	// 32 random bytes, hex encoded
	assert.Len(t, plaintext, 64)
	assert.Len(t, hash, 64)
	assert.Equal(t, verification.HashToken(plaintext), hash)
	assert.NotEqual(t, plaintext, hash)
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		plaintext, _, err := verification.GenerateToken()
		require.NoError(t, err)
		assert.False(t, seen[plaintext])
		seen[plaintext] = true
	}
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, verification.HashToken("abc"), verification.HashToken("abc"))
	assert.NotEqual(t, verification.HashToken("abc"), verification.HashToken("abd"))
	// SHA256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", verification.HashToken("abc"))
}

func TestSafeNextURL(t *testing.T) {
	tests := []struct {
		next     string
		expected string
	}{
		{"", "/"},
		{"/", "/"},
		{"/courses/intro/lessons/one/", "/courses/intro/lessons/one/"},
		{"/courses/?page=2", "/courses/?page=2"},
		{"http://evil.example/", "/"},
		{"https://evil.example/path", "/"},
		{"//evil.example/", "/"},
		{`/\evil.example`, "/"},
		{"javascript:alert(1)", "/"},
		{"courses/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.expected, verification.SafeNextURL(tt.next))
		})
	}
}
