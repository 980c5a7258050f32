// Package reconcile keeps each row's character set in step with the roster.
//
// Reconciliation re-resolves every row's tag and replaces only the rows whose
// set actually changed. Rows that are unchanged keep their pointer, and a pass
// that changes nothing returns the input slice itself, so running it again is
// a no-op.
package reconcile

import (
	"storyboard/internal/board"
	"storyboard/internal/roster"
	"storyboard/internal/tags"
)

// All re-resolves every row against r and defaultSlot.
func All(rows []*board.Row, r roster.Roster, defaultSlot *int) ([]*board.Row, bool) {
	var out []*board.Row
	for i, row := range rows {
		next, changed := Row(row, r, defaultSlot)
		if !changed {
			continue
		}
		if out == nil {
			out = append([]*board.Row(nil), rows...)
		}
		out[i] = next
	}
	if out == nil {
		return rows, false
	}
	return out, true
}

// Row re-resolves a single row.
func Row(row *board.Row, r roster.Roster, defaultSlot *int) (*board.Row, bool) {
	resolved := tags.Resolve(row.Source.Tag(), r, defaultSlot)
	if resolved.Equal(row.Characters) {
		return row, false
	}
	return row.WithCharacters(resolved), true
}
