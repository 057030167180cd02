package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferralCode(t *testing.T) {
	code, err := GenerateReferralCode("TAL", 8)
	require.NoError(t, err)

	assert.Len(t, code, 11)
	assert.True(t, strings.HasPrefix(code, "TAL"))
	assert.True(t, ValidCodeFormat(code), "generated code %q fails its own format check", code)

	for _, r := range code[3:] {
		assert.Contains(t, codeAlphabet, string(r))
	}
}

func TestGenerateReferralCodeDefaults(t *testing.T) {
	// Empty prefix and out-of-range length fall back to defaults.
	code, err := GenerateReferralCode("", 99)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, DefaultCodePrefix))
	assert.Len(t, code, len(DefaultCodePrefix)+MaxCodeLength)
	assert.True(t, ValidCodeFormat(code))
}

// With 31^8 possible suffixes a small sample must not collide; a duplicate
// here means the generator's entropy is broken.
func TestGenerateReferralCodeDistinct(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		code, err := GenerateReferralCode("TAL", 8)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %q in a 1000 draw sample", code)
		seen[code] = true
	}
}

func TestValidCodeFormat(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"TAL23456X", true},
		{"TALWXYZ2345", true},
		{"ABCDEFGHJ", true},
		{"", false},
		{"TAL", false},
		{"TAL12345", false},      // 1 not in alphabet
		{"TAL0OIL99", false},     // ambiguous characters excluded
		{"tal234567", false},     // lowercase
		{"TAL2345", false},       // suffix too short
		{"TAL234567890", false},  // suffix too long (would need digit 0 anyway)
		{"TALWXYZWXYZW", false},  // 9-char suffix
		{"TA2345678", false},     // 2-letter prefix
		{"TAL 23456", false},     // whitespace
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidCodeFormat(tt.code))
		})
	}
}
