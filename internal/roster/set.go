package roster

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Random is the sentinel slot index meaning "pick a random character".
const Random = -2

// None is the legacy sentinel for "no character". It is never stored in a
// CharacterSet; the empty set carries that meaning.
const None = -1

// CharacterSet is a sorted, duplicate-free set of slot indices.
type CharacterSet []int

// NewSet builds a set from indices, dropping duplicates and the None sentinel.
func NewSet(indices ...int) CharacterSet {
	out := make(CharacterSet, 0, len(indices))
	for _, idx := range indices {
		if idx == None {
			continue
		}
		out = append(out, idx)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Equal compares two sets ignoring order.
func (s CharacterSet) Equal(other CharacterSet) bool {
	return slices.Equal(NewSet(s...), NewSet(other...))
}

// Contains reports whether idx is a member.
func (s CharacterSet) Contains(idx int) bool {
	return slices.Contains(s, idx)
}

// IsRandom reports whether the set asks for a random character.
func (s CharacterSet) IsRandom() bool {
	return s.Contains(Random)
}

// Clone returns an independent copy.
func (s CharacterSet) Clone() CharacterSet {
	if s == nil {
		return CharacterSet{}
	}
	return append(CharacterSet{}, s...)
}

// String renders the set as "none", "random" or "0+2".
func (s CharacterSet) String() string {
	if len(s) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(s))
	for _, idx := range s {
		if idx == Random {
			parts = append(parts, "random")
			continue
		}
		parts = append(parts, strconv.Itoa(idx))
	}
	return strings.Join(parts, "+")
}

// ParseSet parses "none", "random" or a comma/plus separated list of slots.
func ParseSet(value string) (CharacterSet, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", "none":
		return CharacterSet{}, nil
	case "random":
		return CharacterSet{Random}, nil
	}
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' })
	indices := make([]int, 0, len(fields))
	for _, field := range fields {
		idx, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("parse character slot %q: %w", field, err)
		}
		if !ValidSlot(idx) {
			return nil, fmt.Errorf("character slot %d out of range [0,%d)", idx, Slots)
		}
		indices = append(indices, idx)
	}
	return NewSet(indices...), nil
}
