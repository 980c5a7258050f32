package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"storyboard/internal/board"
)

// Unmapped marks a row field that no column feeds.
const Unmapped = -1

// ColumnMapping maps each row field (board.FieldTag ... board.FieldContext)
// to a source column index or Unmapped.
type ColumnMapping [board.FieldCount]int

// CanonicalMapping is the five-column layout: tag, secondary, primary, label, context.
var CanonicalMapping = ColumnMapping{0, 1, 2, 3, 4}

var fieldNames = [board.FieldCount]string{"tag", "secondary", "primary", "label", "context"}

// EmptyMapping returns a mapping with every field unmapped.
func EmptyMapping() ColumnMapping {
	return ColumnMapping{Unmapped, Unmapped, Unmapped, Unmapped, Unmapped}
}

// ParseMapping parses "tag=0,primary=2,context=4". Fields not listed stay unmapped.
func ParseMapping(value string) (ColumnMapping, error) {
	m := EmptyMapping()
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, col, ok := strings.Cut(part, "=")
		if !ok {
			return m, fmt.Errorf("column mapping %q: expected field=index", part)
		}
		field := fieldIndex(strings.TrimSpace(name))
		if field < 0 {
			return m, fmt.Errorf("column mapping %q: unknown field (want one of %s)", part, strings.Join(fieldNames[:], ", "))
		}
		idx, err := strconv.Atoi(strings.TrimSpace(col))
		if err != nil || idx < 0 {
			return m, fmt.Errorf("column mapping %q: invalid column index", part)
		}
		m[field] = idx
	}
	return m, nil
}

func fieldIndex(name string) int {
	for i, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// FieldByName maps a source field name (tag, secondary, primary, label,
// context) to its board field index.
func FieldByName(name string) (int, bool) {
	i := fieldIndex(strings.TrimSpace(name))
	return i, i >= 0
}

// String renders the mapping in ParseMapping syntax.
func (m ColumnMapping) String() string {
	parts := make([]string, 0, board.FieldCount)
	for field, col := range m {
		if col == Unmapped {
			continue
		}
		parts = append(parts, fieldNames[field]+"="+strconv.Itoa(col))
	}
	return strings.Join(parts, ",")
}

func (m ColumnMapping) validate(width int) error {
	for field, col := range m {
		if col == Unmapped {
			continue
		}
		if col < 0 || col >= width {
			return fmt.Errorf("%w: %s column %d, header has %d columns", ErrColumnOutOfRange, fieldNames[field], col, width)
		}
	}
	return nil
}

// DetectMapping recognises the canonical five-column header: its first cell
// names the sequence column ("stt", "id", "#") or its third names the primary
// language ("việt", "viet", "primary").
func DetectMapping(header []string) (ColumnMapping, bool) {
	if len(header) != board.FieldCount {
		return EmptyMapping(), false
	}
	first := strings.ToLower(strings.TrimSpace(header[0]))
	third := strings.ToLower(strings.TrimSpace(header[2]))
	switch {
	case strings.Contains(first, "stt"), first == "id", first == "#":
		return CanonicalMapping, true
	case strings.Contains(third, "việt"), strings.Contains(third, "viet"), strings.Contains(third, "primary"):
		return CanonicalMapping, true
	}
	return EmptyMapping(), false
}
