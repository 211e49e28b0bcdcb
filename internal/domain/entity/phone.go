package entity

import (
	"fmt"
	"strings"

	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
)

// Phone normalization for the single supported country (Kenya, +254).
// The gateway only accepts the bare international form, so every accepted
// input canonicalizes to 254XXXXXXXXX (12 digits).

const (
	countryCode        = "254"
	canonicalPhoneLen  = 12 // 254 + 9 subscriber digits
	localPhoneLen      = 10 // 0 + 9 subscriber digits
)

// NormalizePhone validates and canonicalizes a payer mobile number.
// Accepted shapes:
//   - local:         07XXXXXXXX / 01XXXXXXXX
//   - international: +2547XXXXXXXX / +2541XXXXXXXX
//   - bare:          2547XXXXXXXX / 2541XXXXXXXX
// Everything else returns ErrInvalidPhone. Deterministic, no side effects.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty value", errs.ErrInvalidPhone)
	}

	s = strings.TrimPrefix(s, "+")
	if !isDigits(s) {
		return "", fmt.Errorf("%w: %q contains non-digit characters", errs.ErrInvalidPhone, raw)
	}

	switch {
	case len(s) == localPhoneLen && strings.HasPrefix(s, "0"):
		s = countryCode + s[1:]
	case len(s) == canonicalPhoneLen && strings.HasPrefix(s, countryCode):
		// already bare international
	default:
		return "", fmt.Errorf("%w: %q has an unrecognized format", errs.ErrInvalidPhone, raw)
	}

	// Only mobile ranges (7XX, 1XX) receive push prompts
	if s[3] != '7' && s[3] != '1' {
		return "", fmt.Errorf("%w: %q is not a mobile number", errs.ErrInvalidPhone, raw)
	}

	return s, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
