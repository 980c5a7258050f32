package board

import "fmt"

// Find returns the position and row with id, or -1 and nil.
func Find(rows []*Row, id int) (int, *Row) {
	for i, row := range rows {
		if row.ID == id {
			return i, row
		}
	}
	return -1, nil
}

// Replace returns a new slice with the row sharing updated's ID swapped out.
// Other row pointers are kept.
func Replace(rows []*Row, updated *Row) ([]*Row, bool) {
	i, _ := Find(rows, updated.ID)
	if i < 0 {
		return rows, false
	}
	out := append([]*Row(nil), rows...)
	out[i] = updated
	return out, true
}

// ApplyEvent folds ev into the matching row. The input slice is returned when
// no row changed.
func ApplyEvent(rows []*Row, ev Event) ([]*Row, bool) {
	i, row := Find(rows, ev.RowID)
	if i < 0 {
		return rows, false
	}
	next := row.Apply(ev)
	if next == row {
		return rows, false
	}
	out := append([]*Row(nil), rows...)
	out[i] = next
	return out, true
}

// CheckUnique reports the first duplicated row ID.
func CheckUnique(rows []*Row) error {
	seen := make(map[int]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ID]; ok {
			return fmt.Errorf("duplicate row id %d", row.ID)
		}
		seen[row.ID] = struct{}{}
	}
	return nil
}

// UniqueIDs assigns max+1 to every ID already taken, in table order.
type UniqueIDs struct {
	seen    map[int]struct{}
	highest int
}

// Claim returns id if it is free and positive, otherwise the next free ID
// above all IDs claimed so far.
func (u *UniqueIDs) Claim(id int) int {
	if u.seen == nil {
		u.seen = make(map[int]struct{})
	}
	_, taken := u.seen[id]
	if taken || id <= 0 {
		id = u.highest + 1
	}
	u.seen[id] = struct{}{}
	if id > u.highest {
		u.highest = id
	}
	return id
}
