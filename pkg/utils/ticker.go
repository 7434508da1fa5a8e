// Package utils provides small shared helpers: ticker normalization and
// US equity market-hours arithmetic.
package utils

import "strings"

// NormalizeTicker canonicalizes a user-supplied stock symbol: trims
// whitespace, strips a leading "$", and uppercases. "aapl " → "AAPL".
func NormalizeTicker(ticker string) string {
	t := strings.TrimSpace(ticker)
	t = strings.TrimPrefix(t, "$")
	return strings.ToUpper(t)
}

// IsOptionTicker reports whether the symbol is a Polygon-style option
// ticker (the "O:" prefix, e.g. O:SPY240119C00400000).
func IsOptionTicker(ticker string) bool {
	return strings.HasPrefix(ticker, "O:")
}

// NormalizeOptionTicker uppercases an option ticker without disturbing
// the "O:" prefix casing.
func NormalizeOptionTicker(ticker string) string {
	t := strings.TrimSpace(ticker)
	if len(t) >= 2 && strings.EqualFold(t[:2], "o:") {
		return "O:" + strings.ToUpper(t[2:])
	}
	return strings.ToUpper(t)
}
