package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"storyboard/internal/board"
	"storyboard/internal/roster"
	"storyboard/internal/services"
	"storyboard/internal/tags"
	"storyboard/internal/textutil"
)

var (
	ErrEmptyTable       = fmt.Errorf("%w: table is empty", services.ErrImport)
	ErrNoScriptRows     = fmt.Errorf("%w: no script rows after the header", services.ErrImport)
	ErrColumnOutOfRange = fmt.Errorf("%w: column mapping out of range", services.ErrImport)
	ErrNoMapping        = fmt.Errorf("%w: header not recognised, a column mapping is required", services.ErrImport)
)

// BuildRows converts a table (header first) into rows. Blank rows are skipped.
// IDs come from the digits of the tag cell; a missing, zero or unparsable ID
// falls back to the row's 1-based position among kept rows, and a duplicate is
// moved past the highest ID seen.
func BuildRows(table [][]string, m ColumnMapping, r roster.Roster, defaultSlot *int) ([]*board.Row, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}
	if err := m.validate(len(table[0])); err != nil {
		return nil, err
	}

	var ids board.UniqueIDs
	rows := make([]*board.Row, 0, len(table)-1)
	for _, record := range table[1:] {
		if blank(record) {
			continue
		}
		position := len(rows) + 1

		var source board.Source
		for field, col := range m {
			if col == Unmapped || col >= len(record) {
				continue
			}
			source[field] = strings.TrimSpace(record[col])
		}
		tagMapped := m[board.FieldTag] != Unmapped && m[board.FieldTag] < len(record)
		if !tagMapped {
			source[board.FieldTag] = strconv.Itoa(position)
		}

		id := ids.Claim(idFromTag(source.Tag(), position))
		rows = append(rows, board.NewRow(id, source, tags.Resolve(source.Tag(), r, defaultSlot)))
	}
	if len(rows) == 0 {
		return nil, ErrNoScriptRows
	}
	return rows, nil
}

// Import detects the mapping when none is given and builds rows.
func Import(table [][]string, m *ColumnMapping, r roster.Roster, defaultSlot *int) ([]*board.Row, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}
	if m != nil {
		return BuildRows(table, *m, r, defaultSlot)
	}
	detected, ok := DetectMapping(table[0])
	if !ok {
		return nil, ErrNoMapping
	}
	return BuildRows(table, detected, r, defaultSlot)
}

func idFromTag(tag string, position int) int {
	id, err := strconv.Atoi(textutil.DigitsOnly(tag))
	if err != nil || id <= 0 {
		return position
	}
	return id
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
