package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"storyboard/internal/board"
	"storyboard/internal/roster"
	"storyboard/internal/services"
)

// ErrCorrupt reports a project file that is not a JSON object.
var ErrCorrupt = fmt.Errorf("%w: corrupt project file", services.ErrMigration)

type fields map[string]json.RawMessage

// Migrate decodes any historical project shape into the current model.
func Migrate(raw []byte) (Project, error) {
	var top fields
	if err := json.Unmarshal(bytes.TrimSpace(raw), &top); err != nil || top == nil {
		if err == nil {
			err = errors.New("top level is null")
		}
		return Project{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	p := Project{
		Meta: Meta{
			Name:            top.str("projectName"),
			StylePrompt:     top.str("selectedStylePrompt"),
			VideoPromptNote: top.str("videoPromptNote"),
		},
		Roster: migrateRoster(top["characters"]),
	}
	if slot, ok := top.integer("defaultCharacterIndex"); ok && roster.ValidSlot(slot) {
		p.Meta.DefaultCharacter = &slot
	}

	var ids board.UniqueIDs
	for i, raw := range top.array("tableData") {
		var rf fields
		if err := json.Unmarshal(raw, &rf); err != nil || rf == nil {
			continue
		}
		p.Rows = append(p.Rows, migrateRow(rf, i+1, &ids))
	}
	if p.Rows == nil {
		p.Rows = []*board.Row{}
	}
	return p, nil
}

func migrateRoster(raw json.RawMessage) roster.Roster {
	var out roster.Roster
	var entries []json.RawMessage
	if json.Unmarshal(raw, &entries) != nil {
		return out
	}
	for i := 0; i < roster.Slots && i < len(entries); i++ {
		var cf fields
		if json.Unmarshal(entries[i], &cf) != nil || cf == nil {
			continue
		}
		images := cf.stringList("images")
		if len(images) > roster.MaxReferenceImages {
			images = images[:roster.MaxReferenceImages]
		}
		out[i] = roster.Character{
			Name:            cf.str("name"),
			ReferenceImages: images,
			StyleNote:       cf.str("stylePrompt"),
		}
	}
	return out
}

func migrateRow(rf fields, position int, ids *board.UniqueIDs) *board.Row {
	id, ok := rf.integer("id")
	if !ok {
		id = position
	}

	var source board.Source
	for i, cell := range rf.array("originalRow") {
		if i >= board.FieldCount {
			break
		}
		source[i] = cellString(cell)
	}

	row := board.NewRow(ids.Claim(id), source, migrateCharacters(rf))
	if _, present := rf["contextPrompt"]; present {
		row.ContextPrompt = rf.str("contextPrompt")
	}

	assets := rf.stringList("generatedImages")
	if len(assets) == 0 {
		if legacy := rf.str("generatedImage"); legacy != "" {
			assets = []string{legacy}
		}
	}
	row.Assets = append(row.Assets, assets...)

	main, ok := rf.integer("mainImageIndex")
	switch {
	case !ok, main >= len(row.Assets):
		main = len(row.Assets) - 1
	case main < -1:
		main = -1
	}
	row.MainAsset = main

	row.LastError = rf.str("error")
	row.LastPrompt = rf.str("lastUsedPrompt")
	row.VideoPrompt = rf.str("videoPrompt")
	return row
}

func migrateCharacters(rf fields) roster.CharacterSet {
	if raw, ok := rf["selectedCharacterIndices"]; ok {
		var values []json.RawMessage
		if json.Unmarshal(raw, &values) == nil && values != nil {
			indices := make([]int, 0, len(values))
			for _, v := range values {
				if idx, ok := intValue(v); ok && (idx == roster.Random || roster.ValidSlot(idx)) {
					indices = append(indices, idx)
				}
			}
			return roster.NewSet(indices...)
		}
	}
	idx, ok := rf.integer("selectedCharacterIndex")
	if !ok || idx < roster.Random || idx == roster.None {
		return roster.NewSet()
	}
	return roster.NewSet(idx)
}

func (f fields) str(key string) string {
	var s string
	if json.Unmarshal(f[key], &s) != nil {
		return ""
	}
	return s
}

func (f fields) integer(key string) (int, bool) {
	return intValue(f[key])
}

func (f fields) array(key string) []json.RawMessage {
	var out []json.RawMessage
	if json.Unmarshal(f[key], &out) != nil {
		return nil
	}
	return out
}

// stringList returns the string members of an array, skipping other types.
func (f fields) stringList(key string) []string {
	var out []string
	for _, raw := range f.array(key) {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intValue(raw json.RawMessage) (int, bool) {
	var n float64
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// cellString renders a spreadsheet cell that may be a string, number or null.
func cellString(raw json.RawMessage) string {
	var v any
	if json.Unmarshal(raw, &v) != nil {
		return ""
	}
	switch cell := v.(type) {
	case string:
		return cell
	case float64:
		return strconv.FormatFloat(cell, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(cell)
	default:
		return ""
	}
}
