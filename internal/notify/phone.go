package notify

import (
	"fmt"
	"strings"
)

// nationalDigits is the number of digits in a national subscriber number.
// The kiosk serves a single country, so one length fits all customers.
const nationalDigits = 10

// Normalizer canonicalizes customer phone numbers into international format
// for a fixed venue country code.
type Normalizer struct {
	countryCode string
}

// NewNormalizer creates a Normalizer for the given dialing prefix, e.g. "+91".
func NewNormalizer(countryCode string) Normalizer {
	return Normalizer{countryCode: countryCode}
}

// Normalize returns the canonical international form of raw, padding a
// local-format number with the venue's country code. Numbers that do not
// match the expected digit count after normalization are rejected.
//
//	"9876543210"    -> "+919876543210"
//	"+919876543210" -> unchanged
//	"919876543210"  -> "+919876543210"
//	"123"           -> error
func (n Normalizer) Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("phone number is required")
	}

	ccDigits := strings.TrimPrefix(n.countryCode, "+")

	var full string
	switch {
	case strings.HasPrefix(s, n.countryCode):
		full = s
	case strings.HasPrefix(s, ccDigits) && len(s) == len(ccDigits)+nationalDigits:
		full = "+" + s
	default:
		full = n.countryCode + s
	}

	if !allDigits(strings.TrimPrefix(full, "+")) {
		return "", fmt.Errorf("phone number %q contains non-digit characters", raw)
	}
	if len(full) != len(n.countryCode)+nationalDigits {
		return "", fmt.Errorf("phone number %q does not match the %d-digit %s format",
			raw, nationalDigits, n.countryCode)
	}
	return full, nil
}

func allDigits(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
