package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"storyboard/internal/board"
	"storyboard/internal/roster"
	"storyboard/internal/services"
	"storyboard/internal/tags"
)

// Message is one turn of a script-writing conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is an ordered conversation.
type Transcript []Message

// ErrNoModelText reports a transcript without any model output.
var ErrNoModelText = fmt.Errorf("%w: transcript has no model messages", services.ErrImport)

// ParseTranscript accepts a JSON array of {role, content} messages; any other
// input is taken as a single model message.
func ParseTranscript(data []byte) Transcript {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var messages Transcript
		if err := json.Unmarshal([]byte(trimmed), &messages); err == nil {
			return messages
		}
	}
	return Transcript{{Role: "model", Content: string(data)}}
}

func (t Transcript) modelMessages() []string {
	var out []string
	for _, m := range t {
		if strings.EqualFold(m.Role, "model") || strings.EqualFold(m.Role, "assistant") {
			out = append(out, m.Content)
		}
	}
	return out
}

// ModelText joins every model message with newlines.
func (t Transcript) ModelText() string {
	return strings.Join(t.modelMessages(), "\n")
}

// LastModelText returns the final model message.
func (t Transcript) LastModelText() (string, bool) {
	messages := t.modelMessages()
	if len(messages) == 0 {
		return "", false
	}
	return messages[len(messages)-1], true
}

// ParseMarkdownTables collects the body rows of every markdown table in text.
// A line followed by a |---| separator is a header and is dropped. Rows are
// padded or truncated to five cells; blank rows are skipped.
func ParseMarkdownTables(text string) [][]string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var out [][]string
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if isSeparator(line) {
			continue
		}
		if i+1 < len(lines) && isSeparator(strings.TrimSpace(lines[i+1])) {
			continue
		}
		cells := splitCells(line)
		if blank(cells) {
			continue
		}
		out = append(out, fit(cells, board.FieldCount))
	}
	return out
}

func isSeparator(line string) bool {
	if !strings.HasPrefix(line, "|") {
		return false
	}
	sawDash := false
	for _, r := range line {
		switch r {
		case '-':
			sawDash = true
		case '|', ':', ' ', '\t':
		default:
			return false
		}
	}
	return sawDash
}

func splitCells(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func fit(cells []string, width int) []string {
	out := make([]string, width)
	copy(out, cells)
	return out
}

// RowsFromChat builds rows from extracted table rows. IDs are positional; a
// blank tag cell becomes the position.
func RowsFromChat(tableRows [][]string, r roster.Roster, defaultSlot *int) ([]*board.Row, error) {
	if len(tableRows) == 0 {
		return nil, fmt.Errorf("%w: no table rows found", ErrNoScriptRows)
	}
	rows := make([]*board.Row, 0, len(tableRows))
	for i, cells := range tableRows {
		var source board.Source
		copy(source[:], fit(cells, board.FieldCount))
		if source.Tag() == "" {
			source[board.FieldTag] = strconv.Itoa(i + 1)
		}
		rows = append(rows, board.NewRow(i+1, source, tags.Resolve(source.Tag(), r, defaultSlot)))
	}
	return rows, nil
}

// ScriptLines splits text into trimmed non-blank lines.
func ScriptLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// TextColumn selects where plain script lines are written.
type TextColumn int

const (
	ColumnPrimary   TextColumn = board.FieldPrimary
	ColumnSecondary TextColumn = board.FieldSecondary
)

// ParseTextColumn accepts "primary" or "secondary".
func ParseTextColumn(value string) (TextColumn, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "primary":
		return ColumnPrimary, nil
	case "secondary":
		return ColumnSecondary, nil
	default:
		return ColumnPrimary, fmt.Errorf("unknown text column %q (want primary or secondary)", value)
	}
}

// RowsFromScript seeds a table from plain lines. Tags are positional and no
// characters are resolved.
func RowsFromScript(lines []string, col TextColumn) ([]*board.Row, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: script has no lines", ErrNoScriptRows)
	}
	rows := make([]*board.Row, 0, len(lines))
	for i, line := range lines {
		var source board.Source
		source[board.FieldTag] = strconv.Itoa(i + 1)
		source[col] = line
		rows = append(rows, board.NewRow(i+1, source, roster.NewSet()))
	}
	return rows, nil
}

// MergeScript writes line i into row i's column. Extra lines are ignored and
// rows beyond the script are left untouched.
func MergeScript(rows []*board.Row, lines []string, col TextColumn) []*board.Row {
	out := append([]*board.Row(nil), rows...)
	for i, line := range lines {
		if i >= len(out) {
			break
		}
		if out[i].Source[col] == line {
			continue
		}
		next := out[i].Clone()
		next.Source[col] = line
		out[i] = next
	}
	return out
}

// ChatResult describes how a transcript was turned into rows.
type ChatResult struct {
	Rows []*board.Row
	// Tabular is true when markdown tables were found.
	Tabular bool
	// Merged is true when plain lines were merged into existing rows.
	Merged bool
}

// FromTranscript prefers markdown tables across all model messages and falls
// back to the plain lines of the last model message. Plain lines replace an
// empty table or merge into existing rows.
func FromTranscript(t Transcript, existing []*board.Row, col TextColumn, r roster.Roster, defaultSlot *int) (ChatResult, error) {
	if tableRows := ParseMarkdownTables(t.ModelText()); len(tableRows) > 0 {
		rows, err := RowsFromChat(tableRows, r, defaultSlot)
		if err != nil {
			return ChatResult{}, err
		}
		return ChatResult{Rows: rows, Tabular: true}, nil
	}
	last, ok := t.LastModelText()
	if !ok {
		return ChatResult{}, ErrNoModelText
	}
	lines := ScriptLines(last)
	if len(existing) > 0 {
		if len(lines) == 0 {
			return ChatResult{}, fmt.Errorf("%w: script has no lines", ErrNoScriptRows)
		}
		return ChatResult{Rows: MergeScript(existing, lines, col), Merged: true}, nil
	}
	rows, err := RowsFromScript(lines, col)
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Rows: rows}, nil
}
