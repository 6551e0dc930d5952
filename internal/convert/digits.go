package convert

import (
	"strconv"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// foldDigits maps Persian (U+06F0..U+06F9) and Arabic-Indic (U+0660..U+0669)
// digits to ASCII.
var foldDigits = runes.Map(func(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	default:
		return r
	}
})

// normalizeDigits returns s with Persian and Arabic-Indic digits folded.
func normalizeDigits(s string) string {
	out, _, err := transform.String(foldDigits, s)
	if err != nil {
		return s
	}
	return out
}

// toInt keeps only the digits of value, after folding, and parses them.
// It returns nil when there are none.
func toInt(value string) *int {
	if value == "" {
		return nil
	}

	var b strings.Builder
	for _, r := range normalizeDigits(value) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}

	n, err := strconv.Atoi(b.String())
	if err != nil {
		return nil
	}
	return &n
}

// cleanText collapses whitespace runs to a single space and trims.
func cleanText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
