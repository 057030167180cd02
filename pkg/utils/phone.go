package utils

import (
	"fmt"
	"strings"
)

// DefaultCountryCode is prepended to national numbers without a country
// prefix. TALOWA launched in India.
const DefaultCountryCode = "91"

// NormalizePhone converts user input into E.164 form (+<digits>). It strips
// spaces, dashes and parentheses, resolves a leading 00 to +, and applies
// the default country code to bare national numbers.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", fmt.Errorf("empty phone number")
	}

	switch {
	case strings.HasPrefix(cleaned, "+"):
		cleaned = cleaned[1:]
	case strings.HasPrefix(cleaned, "00"):
		cleaned = cleaned[2:]
	case strings.HasPrefix(cleaned, "0"):
		cleaned = DefaultCountryCode + cleaned[1:]
	default:
		if len(cleaned) <= 10 {
			cleaned = DefaultCountryCode + cleaned
		}
	}

	if len(cleaned) < 8 || len(cleaned) > 15 {
		return "", fmt.Errorf("phone number must be 8-15 digits, got %d", len(cleaned))
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone number contains non-digit %q", r)
		}
	}

	return "+" + cleaned, nil
}
