package project

import (
	"encoding/json"
	"fmt"

	"storyboard/internal/board"
	"storyboard/internal/roster"
	"storyboard/internal/services"
)

// Meta holds the project-wide settings.
type Meta struct {
	Name            string
	StylePrompt     string
	VideoPromptNote string
	// DefaultCharacter is the slot used for rows whose tag names nobody.
	DefaultCharacter *int
}

// Project is a loaded storyboard.
type Project struct {
	Meta   Meta
	Roster roster.Roster
	Rows   []*board.Row
}

type wireCharacter struct {
	Name        string   `json:"name"`
	Images      []string `json:"images"`
	StylePrompt string   `json:"stylePrompt"`
}

type wireRow struct {
	ID                       int      `json:"id"`
	OriginalRow              []string `json:"originalRow"`
	ContextPrompt            string   `json:"contextPrompt"`
	SelectedCharacterIndices []int    `json:"selectedCharacterIndices"`
	GeneratedImages          []string `json:"generatedImages"`
	MainImageIndex           int      `json:"mainImageIndex"`
	IsGenerating             bool     `json:"isGenerating"`
	Error                    *string  `json:"error"`
	LastUsedPrompt           string   `json:"lastUsedPrompt,omitempty"`
	VideoPrompt              string   `json:"videoPrompt"`
	IsGeneratingPrompt       bool     `json:"isGeneratingPrompt"`
}

type wireProject struct {
	ProjectName           string          `json:"projectName"`
	SelectedStylePrompt   string          `json:"selectedStylePrompt"`
	VideoPromptNote       string          `json:"videoPromptNote"`
	DefaultCharacterIndex *int            `json:"defaultCharacterIndex"`
	Characters            []wireCharacter `json:"characters"`
	TableData             []wireRow       `json:"tableData"`
}

// Encode renders p in the current file shape. A table with duplicate row IDs
// is rejected.
func Encode(p Project) ([]byte, error) {
	if err := board.CheckUnique(p.Rows); err != nil {
		return nil, services.Wrap(services.ErrValidation, "project", "encode", p.Meta.Name, err)
	}
	out := wireProject{
		ProjectName:         p.Meta.Name,
		SelectedStylePrompt: p.Meta.StylePrompt,
		VideoPromptNote:     p.Meta.VideoPromptNote,
		Characters:          make([]wireCharacter, 0, roster.Slots),
		TableData:           make([]wireRow, 0, len(p.Rows)),
	}
	if p.Meta.DefaultCharacter != nil {
		slot := *p.Meta.DefaultCharacter
		out.DefaultCharacterIndex = &slot
	}
	for _, c := range p.Roster {
		images := append([]string{}, c.ReferenceImages...)
		out.Characters = append(out.Characters, wireCharacter{Name: c.Name, Images: images, StylePrompt: c.StyleNote})
	}
	for _, row := range p.Rows {
		wr := wireRow{
			ID:                       row.ID,
			OriginalRow:              append([]string{}, row.Source[:]...),
			ContextPrompt:            row.ContextPrompt,
			SelectedCharacterIndices: append([]int{}, row.Characters...),
			GeneratedImages:          append([]string{}, row.Assets...),
			MainImageIndex:           row.MainAsset,
			IsGenerating:             row.Status == board.StatusGeneratingAsset,
			LastUsedPrompt:           row.LastPrompt,
			VideoPrompt:              row.VideoPrompt,
			IsGeneratingPrompt:       row.Status == board.StatusGeneratingPrompt,
		}
		if row.LastError != "" {
			msg := row.LastError
			wr.Error = &msg
		}
		out.TableData = append(out.TableData, wr)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "project", "encode", fmt.Sprintf("marshal %q", p.Meta.Name), err)
	}
	return data, nil
}
