package parse

import (
	"strconv"
	"strings"
)

// AbbrevFloat parses numeric strings the way financial sites render them:
// thousands separators, currency symbols, K/M/B unit suffixes, a leading
// plus sign, and parentheses for negatives. It returns ok=false for
// anything it cannot parse; callers treat that as a missing value rather
// than an error.
func AbbrevFloat(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}

	cleaned = strings.NewReplacer("$", "", ",", "", "+", "", "%", "").Replace(cleaned)

	// Parenthesised values are negative: (1.5M) == -1500000
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(cleaned, "B"), strings.HasSuffix(cleaned, "b"):
		multiplier = 1_000_000_000
		cleaned = cleaned[:len(cleaned)-1]
	case strings.HasSuffix(cleaned, "M"), strings.HasSuffix(cleaned, "m"):
		multiplier = 1_000_000
		cleaned = cleaned[:len(cleaned)-1]
	case strings.HasSuffix(cleaned, "K"), strings.HasSuffix(cleaned, "k"):
		multiplier = 1_000
		cleaned = cleaned[:len(cleaned)-1]
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f * multiplier, true
}

// AbbrevInt parses an abbreviated numeric string into an integer.
func AbbrevInt(value string) (int64, bool) {
	f, ok := AbbrevFloat(value)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
