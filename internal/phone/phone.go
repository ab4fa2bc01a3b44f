package phone

import (
	"errors"
	"strings"
)

// ErrInvalidPhone indicates the raw input cannot be normalized into a usable
// phone number.
var ErrInvalidPhone = errors.New("invalid phone number")

const (
	minDigits = 9
	maxDigits = 14
)

// Normalize canonicalizes a raw phone number into the identity key used for
// every lookup and OTP binding: a leading plus followed by digits only.
//
// Separators (spaces, dashes, dots, parentheses) are stripped. A trunk "0"
// prefix is replaced by the default country code, and a bare country-code
// prefix gains the plus sign. Inputs whose significant digits fall outside
// the accepted length window are rejected.
func Normalize(raw, defaultCountryCode string) (string, error) {
	cleaned := strip(raw)
	if cleaned == "" || defaultCountryCode == "" {
		return "", ErrInvalidPhone
	}

	var digits string
	switch {
	case strings.HasPrefix(cleaned, "+"):
		digits = cleaned[1:]
	case strings.HasPrefix(cleaned, "0"):
		digits = defaultCountryCode + cleaned[1:]
	case strings.HasPrefix(cleaned, defaultCountryCode):
		digits = cleaned
	default:
		digits = defaultCountryCode + cleaned
	}

	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}

	return "+" + digits, nil
}

// strip removes everything except digits and a leading plus sign.
func strip(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// separator, drop
		default:
			return ""
		}
	}
	return b.String()
}
