package validators

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText normalizes free text supplied by customers and staff: NFC form,
// control characters other than newline and tab removed, surrounding space
// trimmed and the result cut to at most maxRunes runes.
func CleanText(input string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, norm.NFC.String(input))
	cleaned = strings.TrimSpace(cleaned)

	if maxRunes <= 0 {
		return cleaned
	}
	count := 0
	for i := range cleaned {
		if count == maxRunes {
			return strings.TrimSpace(cleaned[:i])
		}
		count++
	}
	return cleaned
}

// CleanOptionalText applies CleanText and maps blank results to nil.
func CleanOptionalText(input *string, maxRunes int) *string {
	if input == nil {
		return nil
	}
	cleaned := CleanText(*input, maxRunes)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
