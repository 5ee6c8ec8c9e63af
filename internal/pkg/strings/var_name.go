// Package strings provides string helpers for generated identifiers.
package strings

import (
	"strings"
	"unicode"
)

// Identifier keeps only the characters allowed in a Go identifier and drops
// leading digits.
func Identifier(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			sb.WriteRune(r)
		}
	}

	return strings.TrimLeftFunc(sb.String(), unicode.IsDigit)
}

// ToLowerCamel lower-cases the leading run of capitals. The last capital of
// an acronym stays upper when it starts the next word: HTTPClient becomes
// httpClient.
func ToLowerCamel(s string) string {
	runes := []rune(s)

	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		i++
	}
	if i > 1 && i < len(runes) && unicode.IsLower(runes[i]) {
		i--
	}

	return strings.ToLower(string(runes[:i])) + string(runes[i:])
}
