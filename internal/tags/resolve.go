// Package tags resolves script tags such as "lan3" or "[Lan+Hùng]" into the
// roster slots they refer to.
package tags

import (
	"strings"

	"storyboard/internal/roster"
	"storyboard/internal/textutil"
)

// Candidates extracts the name fragments a tag refers to. A bracket group
// "[a+b]" takes precedence; otherwise the leading run of letters is the single
// candidate. The tag is lower-cased first.
func Candidates(tag string) []string {
	lowered := strings.ToLower(tag)
	if inner, ok := bracketGroup(lowered); ok {
		parts := strings.Split(inner, "+")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	if lead := textutil.LeadingLetters(lowered); lead != "" {
		return []string{lead}
	}
	return nil
}

// bracketGroup returns the interior of the first "[...]" group. An empty
// group such as "lan[]" does not count, so the leading letters still apply.
func bracketGroup(tag string) (string, bool) {
	open := strings.IndexByte(tag, '[')
	if open < 0 {
		return "", false
	}
	end := strings.IndexByte(tag[open+1:], ']')
	if end < 0 {
		return "", false
	}
	inner := tag[open+1 : open+1+end]
	if inner == "" {
		return "", false
	}
	return inner, true
}

// Resolve maps tag to the set of roster slots it names. When nothing matches
// and the tag contains a letter, the default slot is used if one is set. A tag
// without letters never resolves to anyone.
func Resolve(tag string, r roster.Roster, defaultSlot *int) roster.CharacterSet {
	lookup := r.Lookup()
	var matched []int
	for _, candidate := range Candidates(tag) {
		if idx, ok := lookup[textutil.NormalizeName(candidate)]; ok {
			matched = append(matched, idx)
		}
	}
	if len(matched) > 0 {
		return roster.NewSet(matched...)
	}
	if defaultSlot != nil && textutil.HasLetter(tag) {
		return roster.NewSet(*defaultSlot)
	}
	return roster.NewSet()
}
