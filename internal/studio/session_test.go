package studio_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"storyboard/internal/ingest"
	"storyboard/internal/project"
	"storyboard/internal/roster"
	"storyboard/internal/services"
	"storyboard/internal/studio"
)

func intPtr(v int) *int { return &v }

func scriptTable() [][]string {
	return [][]string{
		{"STT", "Deutsch", "Tiếng Việt", "Prompt", "Bối cảnh"},
		{"lan3", "Hallo", "Xin chào", "greeting", "market"},
		{"hung4", "Danke", "Cảm ơn", "thanks", "kitchen"},
		{"xyz9", "Tschüss", "Tạm biệt", "farewell", "harbor"},
	}
}

func importScript(t *testing.T, s *studio.Session) {
	t.Helper()
	if _, err := s.Import(scriptTable(), nil, true); err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
}

func mustRow(t *testing.T, s *studio.Session, id int) *rowView {
	t.Helper()
	row, err := s.Row(id)
	if err != nil {
		t.Fatalf("Row(%d) returned error: %v", id, err)
	}
	return &rowView{chars: row.Characters, tag: row.Source.Tag(), assets: len(row.Assets), main: row.MainAsset, err: row.LastError}
}

type rowView struct {
	chars  roster.CharacterSet
	tag    string
	assets int
	main   int
	err    string
}

func TestImportRequiresConfirmationToReplace(t *testing.T) {
	s := studio.New()
	rows, err := s.Import(scriptTable(), nil, false)
	if err != nil {
		t.Fatalf("first Import returned error: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != 3 || rows[1].ID != 4 || rows[2].ID != 9 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if !s.Dirty() {
		t.Fatal("expected session to be dirty after import")
	}

	if _, err := s.Import(scriptTable()[:2], nil, false); !errors.Is(err, studio.ErrConfirmationRequired) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if got := len(s.Rows()); got != 3 {
		t.Fatalf("rows replaced without confirmation: %d", got)
	}
	if _, err := s.Import(scriptTable()[:2], nil, true); err != nil {
		t.Fatalf("confirmed Import returned error: %v", err)
	}
	if got := len(s.Rows()); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestImportErrorKeepsTable(t *testing.T) {
	s := studio.New()
	importScript(t, s)
	_, err := s.Import([][]string{{"a", "b"}}, nil, true)
	if !errors.Is(err, services.ErrImport) {
		t.Fatalf("expected import error, got %v", err)
	}
	if got := len(s.Rows()); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
}

func TestImportChatMergesWithoutConfirmation(t *testing.T) {
	s := studio.New()
	importScript(t, s)

	plain := ingest.ParseTranscript([]byte("Guten Morgen\nBis bald"))
	result, err := s.ImportChat(plain, ingest.ColumnSecondary, false)
	if err != nil {
		t.Fatalf("ImportChat returned error: %v", err)
	}
	if !result.Merged {
		t.Fatal("expected plain lines to merge")
	}
	rows := s.Rows()
	if rows[0].Source.Secondary() != "Guten Morgen" || rows[1].Source.Secondary() != "Bis bald" || rows[2].Source.Secondary() != "Tschüss" {
		t.Fatalf("unexpected merge: %q %q %q", rows[0].Source.Secondary(), rows[1].Source.Secondary(), rows[2].Source.Secondary())
	}

	table := ingest.ParseTranscript([]byte("| tag | text |\n|---|---|\n| lan1 | Hi |"))
	if _, err := s.ImportChat(table, ingest.ColumnPrimary, false); !errors.Is(err, studio.ErrConfirmationRequired) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestRosterEditsReconcileRows(t *testing.T) {
	s := studio.New()
	importScript(t, s)

	changed, err := s.SetCharacter(0, roster.Character{Name: "Lan"})
	if err != nil || changed != 1 {
		t.Fatalf("SetCharacter changed=%d err=%v, want 1", changed, err)
	}
	if got := mustRow(t, s, 3).chars; !got.Equal(roster.NewSet(0)) {
		t.Fatalf("row 3 characters = %v", got)
	}

	if changed, _ := s.SetCharacter(1, roster.Character{Name: "Hùng"}); changed != 1 {
		t.Fatalf("second SetCharacter changed %d rows, want 1", changed)
	}
	if changed, _ := s.SetDefaultCharacter(intPtr(0)); changed != 1 {
		t.Fatalf("SetDefaultCharacter changed %d rows, want 1", changed)
	}
	if got := mustRow(t, s, 9).chars; !got.Equal(roster.NewSet(0)) {
		t.Fatalf("row 9 characters = %v, want default slot", got)
	}
	if changed, _ := s.SetDefaultCharacter(intPtr(0)); changed != 0 {
		t.Fatalf("repeated default changed %d rows", changed)
	}
	if _, err := s.SetDefaultCharacter(intPtr(5)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if changed, _ := s.SetDefaultCharacter(nil); changed != 1 {
		t.Fatalf("clearing the default changed %d rows, want 1", changed)
	}
	if changed, _ := s.ClearCharacter(0); changed != 1 {
		t.Fatalf("ClearCharacter changed %d rows, want 1", changed)
	}
	if got := mustRow(t, s, 3).chars; len(got) != 0 {
		t.Fatalf("row 3 characters after clear = %v", got)
	}
}

func TestManualSelectionIsReplacedByNextRosterChange(t *testing.T) {
	s := studio.New()
	importScript(t, s)
	if _, err := s.SetCharacter(0, roster.Character{Name: "Lan"}); err != nil {
		t.Fatalf("SetCharacter: %v", err)
	}

	if _, err := s.SelectCharacters(3, roster.NewSet(roster.Random)); err != nil {
		t.Fatalf("SelectCharacters returned error: %v", err)
	}
	if got := mustRow(t, s, 3).chars; !got.IsRandom() {
		t.Fatalf("expected random selection, got %v", got)
	}
	if _, err := s.SelectCharacters(3, roster.NewSet(7)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := s.SetCharacter(2, roster.Character{Name: "Mai"}); err != nil {
		t.Fatalf("SetCharacter: %v", err)
	}
	if got := mustRow(t, s, 3).chars; !got.Equal(roster.NewSet(0)) {
		t.Fatalf("manual selection survived roster change: %v", got)
	}
}

func TestEditTagKeepsID(t *testing.T) {
	s := studio.New()
	importScript(t, s)
	if _, err := s.SetCharacter(1, roster.Character{Name: "Hung"}); err != nil {
		t.Fatalf("SetCharacter: %v", err)
	}

	row, err := s.EditTag(3, "hung77")
	if err != nil {
		t.Fatalf("EditTag returned error: %v", err)
	}
	if row.ID != 3 || row.Source.Tag() != "hung77" || !row.Characters.Equal(roster.NewSet(1)) {
		t.Fatalf("unexpected row after tag edit: id=%d tag=%q chars=%v", row.ID, row.Source.Tag(), row.Characters)
	}
	if _, err := s.EditTag(42, "lan"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttachAndSelectAssets(t *testing.T) {
	s := studio.New()
	importScript(t, s)

	if _, err := s.AttachAsset(4, "data:image/png;base64,AAA"); err != nil {
		t.Fatalf("AttachAsset returned error: %v", err)
	}
	if _, err := s.AttachAsset(4, "data:video/mp4;base64,BBB"); err != nil {
		t.Fatalf("AttachAsset returned error: %v", err)
	}
	view := mustRow(t, s, 4)
	if view.assets != 2 || view.main != 1 {
		t.Fatalf("assets=%d main=%d, want 2 and 1", view.assets, view.main)
	}

	if _, err := s.SetMainAsset(4, 0); err != nil {
		t.Fatalf("SetMainAsset returned error: %v", err)
	}
	if got := mustRow(t, s, 4).main; got != 0 {
		t.Fatalf("main = %d, want 0", got)
	}
	if _, err := s.SetMainAsset(4, 2); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.AttachAsset(4, "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty payload, got %v", err)
	}
}

func TestEditSourceRoutesTagEdits(t *testing.T) {
	s := studio.New()
	importScript(t, s)

	row, err := s.EditSource(9, 2, "Auf Wiedersehen")
	if err != nil {
		t.Fatalf("EditSource returned error: %v", err)
	}
	if row.Source.Primary() != "Auf Wiedersehen" {
		t.Fatalf("primary = %q", row.Source.Primary())
	}
	row, err = s.EditSource(9, 0, "lan9")
	if err != nil {
		t.Fatalf("EditSource tag returned error: %v", err)
	}
	if row.Source.Tag() != "lan9" || row.ID != 9 {
		t.Fatalf("unexpected tag edit: %q id=%d", row.Source.Tag(), row.ID)
	}
	if _, err := s.EditSource(9, 8, "x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOpenSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.json")

	s, err := studio.Open(path)
	if err != nil {
		t.Fatalf("Open missing project returned error: %v", err)
	}
	if len(s.Rows()) != 0 {
		t.Fatalf("expected empty project, got %d rows", len(s.Rows()))
	}
	importScript(t, s)
	if _, err := s.SetCharacter(0, roster.Character{Name: "Lan", StyleNote: "red scarf"}); err != nil {
		t.Fatalf("SetCharacter: %v", err)
	}
	s.SetName("Episode 1")
	s.SetStylePrompt("watercolor")
	if _, err := s.SelectCharacters(4, roster.NewSet(0)); err != nil {
		t.Fatalf("SelectCharacters: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if s.Dirty() {
		t.Fatal("expected clean session after save")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := studio.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer reopened.Close()
	meta := reopened.Meta()
	if meta.Name != "Episode 1" || meta.StylePrompt != "watercolor" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if got := reopened.Roster()[0]; got.Name != "Lan" || got.StyleNote != "red scarf" {
		t.Fatalf("unexpected roster slot 0: %+v", got)
	}
	// hung4 names nobody in the roster, so the saved selection is re-derived.
	if got := mustRow(t, reopened, 4).chars; !got.Equal(roster.NewSet()) {
		t.Fatalf("row 4 characters after reload = %v, want none", got)
	}
	if got := mustRow(t, reopened, 3).chars; !got.Equal(roster.NewSet(0)) {
		t.Fatalf("row 3 characters after reload = %v, want {0}", got)
	}
	if len(reopened.Rows()) != 3 {
		t.Fatalf("rows = %d, want 3", len(reopened.Rows()))
	}
	if !reopened.Dirty() {
		t.Fatal("expected reconciled load to mark the session dirty")
	}
}

func TestOpenReconcilesLegacySelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	payload := `{
		"characters": [{"name": "Lan"}, {"name": "Hùng"}],
		"tableData": [
			{"id": 1, "originalRow": ["lan1", "Hallo"], "selectedCharacterIndex": 1},
			{"id": 2, "originalRow": ["hung2", "Danke"], "selectedCharacterIndex": 1}
		]
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := studio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if got := mustRow(t, s, 1).chars; !got.Equal(roster.NewSet(0)) {
		t.Fatalf("row 1 characters = %v, want {0}", got)
	}
	if got := mustRow(t, s, 2).chars; !got.Equal(roster.NewSet(1)) {
		t.Fatalf("row 2 characters = %v, want {1}", got)
	}
	if !s.Dirty() {
		t.Fatal("expected session to be dirty after re-resolving rows")
	}
}

func TestOpenHoldsProjectLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.json")
	s, err := studio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := studio.Open(path); !errors.Is(err, project.ErrLocked) {
		t.Fatalf("second Open = %v, want ErrLocked", err)
	}
	// Saving keeps the lock.
	importScript(t, s)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := studio.Open(path); !errors.Is(err, project.ErrLocked) {
		t.Fatalf("Open after save = %v, want ErrLocked", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	other, err := studio.Open(path)
	if err != nil {
		t.Fatalf("Open after Close: %v", err)
	}
	defer other.Close()
	if len(other.Rows()) != 3 {
		t.Fatalf("rows = %d, want 3", len(other.Rows()))
	}
}

func TestSaveAsMovesLock(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")
	s, err := studio.Open(first)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	importScript(t, s)
	if err := s.SaveAs(second); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if s.Path() != second {
		t.Fatalf("path = %q, want %q", s.Path(), second)
	}

	released, err := project.Acquire(first)
	if err != nil {
		t.Fatalf("old path still locked: %v", err)
	}
	_ = released.Release()
	if _, err := project.Acquire(second); !errors.Is(err, project.ErrLocked) {
		t.Fatalf("Acquire(new path) = %v, want ErrLocked", err)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := studio.New().Save(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
