package ingest_test

import (
	"errors"
	"testing"

	"storyboard/internal/board"
	"storyboard/internal/ingest"
	"storyboard/internal/roster"
)

const chatTable = `Here is the script:

| STT | Deutsch | Tiếng Việt | Prompt | Bối cảnh |
|-----|:-------:|------------|--------|----------|
| lan1 | Hallo | Xin chào | greet | market |
|  |  |  |  |  |
| | Tschüss | Tạm biệt | bye | harbor | extra |

Anything else?`

func TestParseMarkdownTables(t *testing.T) {
	rows := ingest.ParseMarkdownTables(chatTable)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2: %q", len(rows), rows)
	}
	if rows[0][0] != "lan1" || rows[0][4] != "market" {
		t.Fatalf("unexpected first row: %q", rows[0])
	}
	if len(rows[1]) != 5 || rows[1][0] != "" || rows[1][4] != "harbor" {
		t.Fatalf("row should be truncated to five cells: %q", rows[1])
	}
}

func TestParseMarkdownTablesWithoutHeader(t *testing.T) {
	rows := ingest.ParseMarkdownTables("| a | b |\n| c |")
	if len(rows) != 2 || rows[1][0] != "c" || rows[1][1] != "" {
		t.Fatalf("unexpected rows: %q", rows)
	}
}

func TestRowsFromChatPositionalIDs(t *testing.T) {
	r := roster.FromSlice([]roster.Character{{Name: "Lan"}})
	rows, err := ingest.RowsFromChat(ingest.ParseMarkdownTables(chatTable), r, nil)
	if err != nil {
		t.Fatalf("RowsFromChat returned error: %v", err)
	}
	if rows[0].ID != 1 || !rows[0].Characters.Equal(roster.NewSet(0)) {
		t.Fatalf("first row id=%d chars=%v", rows[0].ID, rows[0].Characters)
	}
	if rows[1].ID != 2 || rows[1].Source.Tag() != "2" {
		t.Fatalf("second row id=%d tag=%q", rows[1].ID, rows[1].Source.Tag())
	}
	if rows[1].ContextPrompt != "harbor" {
		t.Fatalf("context prompt = %q", rows[1].ContextPrompt)
	}
}

func TestParseTranscript(t *testing.T) {
	transcript := ingest.ParseTranscript([]byte(`[
		{"role": "user", "content": "write a script"},
		{"role": "model", "content": "line one"},
		{"role": "user", "content": "shorter"},
		{"role": "model", "content": "line a\nline b"}
	]`))
	if len(transcript) != 4 {
		t.Fatalf("messages = %d", len(transcript))
	}
	last, ok := transcript.LastModelText()
	if !ok || last != "line a\nline b" {
		t.Fatalf("LastModelText = %q %v", last, ok)
	}
	if transcript.ModelText() != "line one\nline a\nline b" {
		t.Fatalf("ModelText = %q", transcript.ModelText())
	}

	plain := ingest.ParseTranscript([]byte("just text"))
	if len(plain) != 1 || plain[0].Role != "model" {
		t.Fatalf("plain transcript = %+v", plain)
	}
}

func TestFromTranscriptPrefersTables(t *testing.T) {
	transcript := ingest.Transcript{
		{Role: "model", Content: chatTable},
		{Role: "model", Content: "only lines here"},
	}
	result, err := ingest.FromTranscript(transcript, nil, ingest.ColumnPrimary, roster.Roster{}, nil)
	if err != nil {
		t.Fatalf("FromTranscript returned error: %v", err)
	}
	if !result.Tabular || len(result.Rows) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestFromTranscriptPlainLinesNewTable(t *testing.T) {
	transcript := ingest.Transcript{
		{Role: "model", Content: "ignored earlier reply"},
		{Role: "model", Content: "  Scene one  \n\nScene two\n"},
	}
	result, err := ingest.FromTranscript(transcript, nil, ingest.ColumnSecondary, roster.Roster{}, nil)
	if err != nil {
		t.Fatalf("FromTranscript returned error: %v", err)
	}
	if result.Tabular || result.Merged || len(result.Rows) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	row := result.Rows[1]
	if row.ID != 2 || row.Source.Tag() != "2" || row.Source.Secondary() != "Scene two" || len(row.Characters) != 0 {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestMergeScriptByPosition(t *testing.T) {
	existing := []*board.Row{
		board.NewRow(10, board.Source{"lan", "", "old a"}, roster.NewSet(0)),
		board.NewRow(11, board.Source{"hung", "", "old b"}, roster.NewSet(1)),
		board.NewRow(12, board.Source{"mai", "", "old c"}, roster.NewSet(2)),
	}
	merged := ingest.MergeScript(existing, []string{"new a", "old b"}, ingest.ColumnPrimary)
	if merged[0] == existing[0] || merged[0].Source.Primary() != "new a" || merged[0].ID != 10 {
		t.Fatalf("first row not merged: %+v", merged[0])
	}
	if merged[1] != existing[1] {
		t.Fatal("unchanged row must keep its pointer")
	}
	if merged[2] != existing[2] {
		t.Fatal("rows beyond the script must be untouched")
	}
	if existing[0].Source.Primary() != "old a" {
		t.Fatal("input rows must not be mutated")
	}

	longer := ingest.MergeScript(existing[:1], []string{"x", "y", "z"}, ingest.ColumnSecondary)
	if len(longer) != 1 || longer[0].Source.Secondary() != "x" {
		t.Fatalf("extra lines must be ignored: %+v", longer)
	}
}

func TestFromTranscriptErrors(t *testing.T) {
	if _, err := ingest.FromTranscript(ingest.Transcript{{Role: "user", Content: "| a |"}}, nil, ingest.ColumnPrimary, roster.Roster{}, nil); !errors.Is(err, ingest.ErrNoModelText) {
		t.Fatalf("error = %v, want ErrNoModelText", err)
	}
	if _, err := ingest.FromTranscript(ingest.Transcript{{Role: "model", Content: "\n \n"}}, nil, ingest.ColumnPrimary, roster.Roster{}, nil); !errors.Is(err, ingest.ErrNoScriptRows) {
		t.Fatalf("error = %v, want ErrNoScriptRows", err)
	}
}

func TestParseTextColumn(t *testing.T) {
	if col, err := ingest.ParseTextColumn("Secondary"); err != nil || col != ingest.ColumnSecondary {
		t.Fatalf("ParseTextColumn = %v, %v", col, err)
	}
	if _, err := ingest.ParseTextColumn("tag"); err == nil {
		t.Fatal("expected error")
	}
}
