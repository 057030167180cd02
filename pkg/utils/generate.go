package utils

import (
	"crypto/rand"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== REFERRAL CODE ====================

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	DefaultCodePrefix = "TAL"
	MinCodeLength     = 6
	MaxCodeLength     = 8
)

// codePattern matches a 3-letter prefix followed by 6-8 characters from the
// restricted alphabet.
var codePattern = regexp.MustCompile(`^[A-Z]{3}[2-9ABCDEFGHJKMNPQRSTUVWXYZ]{6,8}$`)

// GenerateReferralCode produces one candidate code: prefix + length random
// characters from the restricted alphabet. Uniqueness is the reservation
// service's job, not the generator's.
func GenerateReferralCode(prefix string, length int) (string, error) {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	if length < MinCodeLength || length > MaxCodeLength {
		length = MaxCodeLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return prefix + string(out), nil
}

// ValidCodeFormat reports whether a stored or user-supplied code matches the
// generated format. Shared by attachment validation and the reconciler.
func ValidCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}
