package studio

import (
	"fmt"
	"strings"

	"storyboard/internal/board"
	"storyboard/internal/ingest"
	"storyboard/internal/logging"
	"storyboard/internal/reconcile"
	"storyboard/internal/roster"
	"storyboard/internal/services"
	"storyboard/internal/tags"
)

// SetName sets the project name.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Meta.Name = strings.TrimSpace(name)
	s.dirty = true
}

// SetStylePrompt sets the style prompt prepended to every image prompt.
func (s *Session) SetStylePrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Meta.StylePrompt = prompt
	s.dirty = true
}

// SetVideoPromptNote sets the note appended to every video prompt request.
func (s *Session) SetVideoPromptNote(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Meta.VideoPromptNote = note
	s.dirty = true
}

// Import replaces the table with rows built from a parsed CSV table. A nil
// mapping detects columns from the header. Replacing a non-empty table
// requires confirm.
func (s *Session) Import(table [][]string, mapping *ingest.ColumnMapping, confirm bool) ([]*board.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.project.Rows) > 0 && !confirm {
		return nil, ErrConfirmationRequired
	}
	rows, err := ingest.Import(table, mapping, s.project.Roster, s.project.Meta.DefaultCharacter)
	if err != nil {
		return nil, err
	}
	s.replaceRowsLocked(rows)
	s.logger.Info("table imported", logging.Int("rows", len(rows)))
	return s.project.Rows, nil
}

// ImportChat builds rows from a chat transcript. Markdown tables and plain
// scripts replace the table, which requires confirm when it is not empty.
// Plain lines merge into an existing table without confirmation.
func (s *Session) ImportChat(t ingest.Transcript, col ingest.TextColumn, confirm bool) (ingest.ChatResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := ingest.FromTranscript(t, s.project.Rows, col, s.project.Roster, s.project.Meta.DefaultCharacter)
	if err != nil {
		return ingest.ChatResult{}, err
	}
	if !result.Merged && len(s.project.Rows) > 0 && !confirm {
		return ingest.ChatResult{}, ErrConfirmationRequired
	}
	s.replaceRowsLocked(result.Rows)
	s.logger.Info("chat imported",
		logging.Int("rows", len(result.Rows)),
		logging.Bool("tabular", result.Tabular),
		logging.Bool("merged", result.Merged),
	)
	return result, nil
}

func (s *Session) replaceRowsLocked(rows []*board.Row) {
	s.project.Rows = rows
	s.reserved = make(map[int]bool)
	s.dirty = true
}

// SetCharacter stores c in slot and reconciles every row. It returns the
// number of rows whose characters changed.
func (s *Session) SetCharacter(slot int, c roster.Character) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.project.Roster.Set(slot, c)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "studio", "set character", "", err)
	}
	return s.setRosterLocked(next, s.project.Meta.DefaultCharacter), nil
}

// ClearCharacter empties slot and reconciles every row.
func (s *Session) ClearCharacter(slot int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.project.Roster.Clear(slot)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "studio", "clear character", "", err)
	}
	return s.setRosterLocked(next, s.project.Meta.DefaultCharacter), nil
}

// SetDefaultCharacter sets the slot used for rows whose tag names nobody.
// nil clears it.
func (s *Session) SetDefaultCharacter(slot *int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot != nil && !roster.ValidSlot(*slot) {
		return 0, fmt.Errorf("%w: default character slot %d out of range", services.ErrValidation, *slot)
	}
	var def *int
	if slot != nil {
		v := *slot
		def = &v
	}
	return s.setRosterLocked(s.project.Roster, def), nil
}

// ApplyRosterFile merges a roster file into the roster. encode turns a
// reference image path into a data URL. The file's default, when present,
// replaces the project default.
func (s *Session) ApplyRosterFile(f *roster.File, encode func(path string) (string, error)) (int, error) {
	def, err := f.DefaultSlot()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	base := s.project.Roster.Clone()
	s.mu.Unlock()

	next, err := f.Build(base, encode)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if def == nil {
		def = s.project.Meta.DefaultCharacter
	}
	return s.setRosterLocked(next, def), nil
}

func (s *Session) setRosterLocked(r roster.Roster, def *int) int {
	s.project.Roster = r
	s.project.Meta.DefaultCharacter = def
	s.dirty = true
	rows, changed := reconcile.All(s.project.Rows, r, def)
	if !changed {
		return 0
	}
	count := 0
	for i, row := range rows {
		if row != s.project.Rows[i] {
			count++
		}
	}
	s.project.Rows = rows
	s.logger.Debug("rows reconciled", logging.Int("changed", count))
	return count
}

// EditTag replaces a row's tag and re-resolves its characters. The row ID
// does not change.
func (s *Session) EditTag(id int, tag string) (*board.Row, error) {
	return s.updateRow(id, func(row *board.Row) (*board.Row, error) {
		set := tags.Resolve(tag, s.project.Roster, s.project.Meta.DefaultCharacter)
		return row.WithTag(tag, set), nil
	})
}

// EditSource replaces one of a row's source cells other than the tag.
func (s *Session) EditSource(id, field int, value string) (*board.Row, error) {
	if field == board.FieldTag {
		return s.EditTag(id, value)
	}
	return s.updateRow(id, func(row *board.Row) (*board.Row, error) {
		next, err := row.WithSourceField(field, value)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "studio", "edit source", "", err)
		}
		return next, nil
	})
}

// SelectCharacters overrides a row's characters until the next roster or
// default change.
func (s *Session) SelectCharacters(id int, set roster.CharacterSet) (*board.Row, error) {
	for _, idx := range set {
		if idx != roster.Random && !roster.ValidSlot(idx) {
			return nil, fmt.Errorf("%w: character slot %d out of range", services.ErrValidation, idx)
		}
	}
	return s.updateRow(id, func(row *board.Row) (*board.Row, error) {
		return row.WithCharacters(set), nil
	})
}

// SetContextPrompt replaces a row's setting description.
func (s *Session) SetContextPrompt(id int, prompt string) (*board.Row, error) {
	return s.updateRow(id, func(row *board.Row) (*board.Row, error) {
		return row.WithContextPrompt(prompt), nil
	})
}

// SetVideoPrompt replaces a row's video prompt.
func (s *Session) SetVideoPrompt(id int, prompt string) (*board.Row, error) {
	return s.updateRow(id, func(row *board.Row) (*board.Row, error) {
		return row.WithVideoPrompt(prompt), nil
	})
}

// SetMainAsset selects the asset used for video prompts. -1 selects the
// newest asset.
func (s *Session) SetMainAsset(id, idx int) (*board.Row, error) {
	return s.updateRow(id, func(row *board.Row) (*board.Row, error) {
		next, err := row.WithMainAsset(idx)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "studio", "main asset", "", err)
		}
		return next, nil
	})
}

// AttachAsset appends a media data URL to a row, selects it and clears the
// row's error.
func (s *Session) AttachAsset(id int, payload string) (*board.Row, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("%w: asset payload is empty", services.ErrValidation)
	}
	return s.updateRow(id, func(row *board.Row) (*board.Row, error) {
		return row.WithAsset(payload, ""), nil
	})
}

// updateRow applies fn to an idle row and stores the result.
func (s *Session) updateRow(id int, fn func(row *board.Row) (*board.Row, error)) (*board.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, row := board.Find(s.project.Rows, id)
	if row == nil {
		return nil, rowNotFound(id)
	}
	if row.Busy() || s.reserved[id] {
		return nil, fmt.Errorf("%w: row %d", ErrRowBusy, id)
	}
	next, err := fn(row)
	if err != nil {
		return nil, err
	}
	s.project.Rows, _ = board.Replace(s.project.Rows, next)
	s.dirty = true
	return next, nil
}
