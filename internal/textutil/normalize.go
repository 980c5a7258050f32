package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a character name or tag fragment into its comparison key.
// "Lan Anh", "lananh" and "LÀN ANH" all normalize to "lananh".
func NormalizeName(value string) string {
	if value == "" {
		return ""
	}
	folded, _, err := transform.String(markStripper(), strings.ToLower(value))
	if err != nil {
		folded = strings.ToLower(value)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// markStripper builds a fresh chain per call; transform.Transformer values keep
// state and are not safe for concurrent reuse.
func markStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
}

// HasLetter reports whether value contains at least one Unicode letter.
func HasLetter(value string) bool {
	return strings.IndexFunc(value, unicode.IsLetter) >= 0
}

// LeadingLetters returns the longest prefix of value made of Unicode letters.
// Combining marks directly following a letter stay attached to it.
func LeadingLetters(value string) string {
	for i, r := range value {
		if unicode.IsLetter(r) || (i > 0 && unicode.Is(unicode.Mn, r)) {
			continue
		}
		return value[:i]
	}
	return value
}

// DigitsOnly drops every rune that is not an ASCII digit.
func DigitsOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
}
