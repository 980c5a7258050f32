package roster

import (
	"fmt"
	"strings"

	"storyboard/internal/textutil"
)

const (
	// Slots is the fixed number of character slots in a roster.
	Slots = 3
	// MaxReferenceImages caps the reference images kept per character.
	MaxReferenceImages = 5
)

// Character is one recurring character.
type Character struct {
	Name            string
	ReferenceImages []string
	StyleNote       string
}

// Empty reports whether the slot has no name and therefore never matches a tag.
func (c Character) Empty() bool {
	return strings.TrimSpace(c.Name) == ""
}

func (c Character) clone() Character {
	c.ReferenceImages = append([]string(nil), c.ReferenceImages...)
	return c
}

// Roster is the fixed-size character table.
type Roster [Slots]Character

// Clone returns a deep copy.
func (r Roster) Clone() Roster {
	var out Roster
	for i, c := range r {
		out[i] = c.clone()
	}
	return out
}

// ValidSlot reports whether slot addresses a roster position.
func ValidSlot(slot int) bool {
	return slot >= 0 && slot < Slots
}

// Set returns a copy of r with slot replaced by c. The name is reduced to
// letters and reference images beyond MaxReferenceImages are dropped.
func (r Roster) Set(slot int, c Character) (Roster, error) {
	if !ValidSlot(slot) {
		return r, fmt.Errorf("character slot %d out of range [0,%d)", slot, Slots)
	}
	c.Name = textutil.SanitizeName(c.Name)
	c.StyleNote = strings.TrimSpace(c.StyleNote)
	if len(c.ReferenceImages) > MaxReferenceImages {
		c.ReferenceImages = c.ReferenceImages[:MaxReferenceImages]
	}
	out := r.Clone()
	out[slot] = c.clone()
	return out, nil
}

// Clear returns a copy of r with slot emptied.
func (r Roster) Clear(slot int) (Roster, error) {
	return r.Set(slot, Character{})
}

// Lookup maps normalized names to slot indices. Empty slots are skipped; when
// two slots normalize to the same name the later slot wins.
func (r Roster) Lookup() map[string]int {
	lookup := make(map[string]int, Slots)
	for i, c := range r {
		if c.Empty() {
			continue
		}
		key := textutil.NormalizeName(c.Name)
		if key == "" {
			continue
		}
		lookup[key] = i
	}
	return lookup
}

// Named returns the indices of non-empty slots in order.
func (r Roster) Named() []int {
	var out []int
	for i, c := range r {
		if !c.Empty() {
			out = append(out, i)
		}
	}
	return out
}

// FromSlice pads or truncates characters into a Roster.
func FromSlice(characters []Character) Roster {
	var out Roster
	for i := 0; i < Slots && i < len(characters); i++ {
		out[i] = characters[i].clone()
	}
	return out
}
