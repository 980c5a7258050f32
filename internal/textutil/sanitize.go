package textutil

import (
	"strings"
	"unicode"
)

// SanitizeName keeps only Unicode letters (and the combining marks attached to
// them) so character names stay matchable against script tags.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) {
			return r
		}
		return -1
	}, name)
}
