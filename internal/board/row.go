package board

import (
	"fmt"

	"storyboard/internal/roster"
)

// Status is the in-flight state of a row.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusGeneratingAsset  Status = "generating_asset"
	StatusGeneratingPrompt Status = "generating_prompt"
)

// Source field positions in the imported script row.
const (
	FieldTag = iota
	FieldSecondary
	FieldPrimary
	FieldLabel
	FieldContext
	FieldCount
)

// Source holds the raw imported cells: tag, secondary-language text,
// primary-language text, prompt label and context prompt.
type Source [FieldCount]string

func (s Source) Tag() string       { return s[FieldTag] }
func (s Source) Secondary() string { return s[FieldSecondary] }
func (s Source) Primary() string   { return s[FieldPrimary] }
func (s Source) Label() string     { return s[FieldLabel] }
func (s Source) Context() string   { return s[FieldContext] }

// Row is one storyboard line.
type Row struct {
	ID            int
	Source        Source
	ContextPrompt string
	Characters    roster.CharacterSet
	Assets        []string
	MainAsset     int
	Status        Status
	LastError     string
	LastPrompt    string
	VideoPrompt   string
}

// NewRow builds an idle row with no assets.
func NewRow(id int, source Source, characters roster.CharacterSet) *Row {
	return &Row{
		ID:            id,
		Source:        source,
		ContextPrompt: source.Context(),
		Characters:    characters.Clone(),
		Assets:        []string{},
		MainAsset:     -1,
		Status:        StatusIdle,
	}
}

// Clone returns a deep copy.
func (r *Row) Clone() *Row {
	out := *r
	out.Characters = r.Characters.Clone()
	out.Assets = append([]string{}, r.Assets...)
	return &out
}

// Busy reports whether an operation is in flight for the row.
func (r *Row) Busy() bool {
	return r.Status != StatusIdle && r.Status != ""
}

// MainAssetValue returns the selected asset. Rows without an explicit
// selection fall back to the newest asset.
func (r *Row) MainAssetValue() (string, bool) {
	idx := r.MainAsset
	if idx < 0 {
		idx = len(r.Assets) - 1
	}
	if idx < 0 || idx >= len(r.Assets) {
		return "", false
	}
	return r.Assets[idx], true
}

// WithCharacters returns a copy with the character set replaced.
func (r *Row) WithCharacters(set roster.CharacterSet) *Row {
	out := r.Clone()
	out.Characters = roster.NewSet(set...)
	return out
}

// WithTag returns a copy with a new tag and the characters it resolves to.
// The row ID is not re-derived.
func (r *Row) WithTag(tag string, set roster.CharacterSet) *Row {
	out := r.WithCharacters(set)
	out.Source[FieldTag] = tag
	return out
}

// WithSourceField returns a copy with one source cell replaced.
func (r *Row) WithSourceField(field int, value string) (*Row, error) {
	if field < 0 || field >= FieldCount {
		return nil, fmt.Errorf("source field %d out of range [0,%d)", field, FieldCount)
	}
	out := r.Clone()
	out.Source[field] = value
	return out, nil
}

// WithContextPrompt returns a copy with the editable context prompt replaced.
func (r *Row) WithContextPrompt(prompt string) *Row {
	out := r.Clone()
	out.ContextPrompt = prompt
	return out
}

// WithVideoPrompt returns a copy with the video prompt replaced.
func (r *Row) WithVideoPrompt(prompt string) *Row {
	out := r.Clone()
	out.VideoPrompt = prompt
	return out
}

// WithMainAsset returns a copy selecting asset idx.
func (r *Row) WithMainAsset(idx int) (*Row, error) {
	if idx < -1 || idx >= len(r.Assets) {
		return nil, fmt.Errorf("asset index %d out of range for %d assets", idx, len(r.Assets))
	}
	out := r.Clone()
	out.MainAsset = idx
	return out, nil
}

// WithAsset appends payload, selects it and clears any error. prompt records
// the exact input that produced the asset; attached media pass "".
func (r *Row) WithAsset(payload, prompt string) *Row {
	out := r.Clone()
	out.Assets = append(out.Assets, payload)
	out.MainAsset = len(out.Assets) - 1
	out.LastError = ""
	if prompt != "" {
		out.LastPrompt = prompt
	}
	return out
}
