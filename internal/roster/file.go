package roster

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a roster definition kept alongside a script, for example:
//
//	default: 0
//	characters:
//	  - slot: 0
//	    name: Lan
//	    style: short black hair, red scarf
//	    images: [refs/lan-front.png, refs/lan-side.png]
type File struct {
	// Default is the slot used when a tag names nobody; "none" or absent disables it.
	Default    *string         `yaml:"default"`
	Characters []FileCharacter `yaml:"characters"`
}

// FileCharacter is one slot entry of a roster file.
type FileCharacter struct {
	Slot   int      `yaml:"slot"`
	Name   string   `yaml:"name"`
	Style  string   `yaml:"style"`
	Images []string `yaml:"images"`
}

// LoadFile reads a roster file. Relative image paths are resolved against the
// file's directory.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}
	file, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i := range file.Characters {
		for j, img := range file.Characters[i].Images {
			if !filepath.IsAbs(img) {
				file.Characters[i].Images[j] = filepath.Join(base, img)
			}
		}
	}
	return file, nil
}

// ParseFile unmarshals YAML bytes into a validated File.
func ParseFile(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("roster: parse: %w", err)
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *File) validate() error {
	var errs []string
	seen := make(map[int]bool, len(f.Characters))
	for i, c := range f.Characters {
		if !ValidSlot(c.Slot) {
			errs = append(errs, fmt.Sprintf("characters[%d].slot %d out of range [0,%d)", i, c.Slot, Slots))
			continue
		}
		if seen[c.Slot] {
			errs = append(errs, fmt.Sprintf("characters[%d].slot %d listed twice", i, c.Slot))
		}
		seen[c.Slot] = true
		if len(c.Images) > MaxReferenceImages {
			errs = append(errs, fmt.Sprintf("characters[%d] has %d images, at most %d allowed", i, len(c.Images), MaxReferenceImages))
		}
	}
	if _, err := f.DefaultSlot(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("roster: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultSlot returns the default character slot, or nil when none is set.
func (f *File) DefaultSlot() (*int, error) {
	if f.Default == nil {
		return nil, nil
	}
	return ParseDefault(*f.Default)
}

// ParseDefault parses a default character value: a slot index or "none".
func ParseDefault(value string) (*int, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "none" {
		return nil, nil
	}
	slot, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("default %q is not a slot index", value)
	}
	if !ValidSlot(slot) {
		return nil, fmt.Errorf("default slot %d out of range [0,%d)", slot, Slots)
	}
	return &slot, nil
}

// Build applies the file on top of base. encode turns an image path into the
// payload stored on the character (a data URL). Slots absent from the file keep
// their current character.
func (f *File) Build(base Roster, encode func(path string) (string, error)) (Roster, error) {
	out := base.Clone()
	for _, c := range f.Characters {
		images := make([]string, 0, len(c.Images))
		for _, path := range c.Images {
			payload, err := encode(path)
			if err != nil {
				return base, fmt.Errorf("roster: slot %d image %s: %w", c.Slot, path, err)
			}
			images = append(images, payload)
		}
		var err error
		out, err = out.Set(c.Slot, Character{Name: c.Name, StyleNote: c.Style, ReferenceImages: images})
		if err != nil {
			return base, err
		}
	}
	return out, nil
}
