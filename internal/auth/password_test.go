package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	// sha-256("password"), the documented legacy format
	digest := HashPassword("password")
	assert.Equal(t, "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", digest)
	assert.True(t, ValidDigest(digest))

	// deterministic: same input, same digest
	assert.Equal(t, digest, HashPassword("password"))
	assert.NotEqual(t, digest, HashPassword("Password"))
}

func TestValidDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"lowercase hex", HashPassword("secret"), true},
		{"uppercase hex accepted", "5E884898DA28047151D0E56F8DC6292773603D0D6AABBDD62A11EF721D1542D8", true},
		{"plain text", "not-a-hash", false},
		{"too short", "abc123", false},
		{"too long", HashPassword("x") + "00", false},
		{"non-hex characters", "zz884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidDigest(tt.input))
		})
	}
}
