package common

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidNumber is returned when a committed input value cannot be
// interpreted as a finite number.
var ErrInvalidNumber = errors.New("invalid numeric input")

// Round2 rounds to 2 decimal places, half away from zero.
// Used for all displayed money amounts and rates.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Round4 rounds to 4 decimal places, half away from zero.
// Used for per-share cost basis, matching fund NAV precision.
func Round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

// ParseProviderFloat parses a provider numeric field. Providers send
// placeholders such as "--" or "" for absent values; those parse to nil
// rather than zero so downstream math can tell "no value" from 0.
func ParseProviderFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseProviderFloatOrZero parses a provider numeric field, defaulting
// to 0 for placeholders. Used for change percentages.
func ParseProviderFloatOrZero(s string) float64 {
	if v := ParseProviderFloat(s); v != nil {
		return *v
	}
	return 0
}

// ParseDraft commits a free-text numeric input field. The text is the
// edit buffer as the user left it, so partial input is tolerated: an
// empty string commits to nil (no value) and a trailing decimal point
// ("12.") is accepted. Anything else non-numeric is an error and the
// caller must leave existing state untouched.
func ParseDraft(text string) (*float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	text = strings.TrimSuffix(text, ".")
	if text == "" || text == "-" || text == "+" {
		return nil, ErrInvalidNumber
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrInvalidNumber
	}
	return &v, nil
}
