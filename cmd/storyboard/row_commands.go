package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storyboard/internal/asset"
	"storyboard/internal/board"
	"storyboard/internal/ingest"
	"storyboard/internal/roster"
	"storyboard/internal/studio"
)

func newRowsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rows",
		Short: "List storyboard rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			rows := session.Rows()
			if asJSON {
				return writeJSON(cmd, rowsJSON(rows, session.Roster()))
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rows; import a script first")
				return nil
			}
			printRows(cmd.OutOrStdout(), rows, session.Roster())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	return cmd
}

func characterNames(set roster.CharacterSet, r roster.Roster) string {
	if len(set) == 0 {
		return "-"
	}
	names := make([]string, 0, len(set))
	for _, idx := range set {
		switch {
		case idx == roster.Random:
			names = append(names, "(random)")
		case roster.ValidSlot(idx) && r[idx].Name != "":
			names = append(names, r[idx].Name)
		default:
			names = append(names, "#"+strconv.Itoa(idx))
		}
	}
	return strings.Join(names, ", ")
}

func mainAssetLabel(row *board.Row) string {
	if len(row.Assets) == 0 {
		return "-"
	}
	idx := row.MainAsset
	if idx < 0 {
		idx = len(row.Assets) - 1
	}
	label := fmt.Sprintf("%d/%d", idx, len(row.Assets))
	if idx < len(row.Assets) && asset.IsVideo(row.Assets[idx]) {
		label += " video"
	}
	return label
}

func printRows(out io.Writer, rows []*board.Row, r roster.Roster) {
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{
			strconv.Itoa(row.ID),
			row.Source.Tag(),
			characterNames(row.Characters, r),
			excerpt(row.Source.Primary()),
			mainAssetLabel(row),
			yesNo(row.VideoPrompt != ""),
			excerpt(row.LastError),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"ID", "Tag", "Characters", "Scene", "Main", "Prompt", "Error"},
		table,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

type rowJSON struct {
	ID          int    `json:"id"`
	Tag         string `json:"tag"`
	Secondary   string `json:"secondary"`
	Primary     string `json:"primary"`
	Label       string `json:"label"`
	Context     string `json:"context"`
	Characters  []int  `json:"characters"`
	Names       string `json:"characterNames"`
	Assets      int    `json:"assets"`
	MainAsset   int    `json:"mainAsset"`
	VideoPrompt string `json:"videoPrompt,omitempty"`
	LastPrompt  string `json:"lastPrompt,omitempty"`
	Error       string `json:"error,omitempty"`
	Status      string `json:"status"`
}

func rowsJSON(rows []*board.Row, r roster.Roster) []rowJSON {
	out := make([]rowJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowJSON{
			ID:          row.ID,
			Tag:         row.Source.Tag(),
			Secondary:   row.Source.Secondary(),
			Primary:     row.Source.Primary(),
			Label:       row.Source.Label(),
			Context:     row.ContextPrompt,
			Characters:  append([]int{}, row.Characters...),
			Names:       characterNames(row.Characters, r),
			Assets:      len(row.Assets),
			MainAsset:   row.MainAsset,
			VideoPrompt: row.VideoPrompt,
			LastPrompt:  row.LastPrompt,
			Error:       row.LastError,
			Status:      string(row.Status),
		})
	}
	return out
}

func parseRowID(value string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid row id %q", value)
	}
	return id, nil
}

func newRowCommand(ctx *commandContext) *cobra.Command {
	rowCmd := &cobra.Command{
		Use:   "row",
		Short: "Inspect and edit one row",
	}

	rowCmd.AddCommand(newRowShowCommand(ctx))
	rowCmd.AddCommand(newRowEditCommand(ctx, "tag <id> <tag>", "Change a row's tag and re-resolve its characters",
		func(s *studio.Session, id int, value string) (*board.Row, error) {
			return s.EditTag(id, value)
		}))
	rowCmd.AddCommand(newRowEditCommand(ctx, "context <id> <text>", "Replace a row's setting description",
		func(s *studio.Session, id int, value string) (*board.Row, error) {
			return s.SetContextPrompt(id, value)
		}))
	rowCmd.AddCommand(newRowEditCommand(ctx, "video <id> <text>", "Replace a row's video prompt",
		func(s *studio.Session, id int, value string) (*board.Row, error) {
			return s.SetVideoPrompt(id, value)
		}))
	rowCmd.AddCommand(newRowEditCommand(ctx, "characters <id> <none|random|slots>", "Override a row's characters until the roster changes or the project is reloaded",
		func(s *studio.Session, id int, value string) (*board.Row, error) {
			set, err := roster.ParseSet(value)
			if err != nil {
				return nil, err
			}
			return s.SelectCharacters(id, set)
		}))
	rowCmd.AddCommand(newRowEditCommand(ctx, "main <id> <index>", "Select the asset used for video prompts",
		func(s *studio.Session, id int, value string) (*board.Row, error) {
			idx, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid asset index %q", value)
			}
			return s.SetMainAsset(id, idx)
		}))
	rowCmd.AddCommand(newRowEditCommand(ctx, "attach <id> <file>", "Attach an image or video file as the row's main asset",
		func(s *studio.Session, id int, value string) (*board.Row, error) {
			payload, err := asset.FromFile(value)
			if err != nil {
				return nil, err
			}
			return s.AttachAsset(id, payload)
		}))
	rowCmd.AddCommand(newRowSourceCommand(ctx))
	rowCmd.AddCommand(newRowExportCommand(ctx))

	return rowCmd
}

func newRowEditCommand(ctx *commandContext, use, short string, edit func(*studio.Session, int, string) (*board.Row, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *studio.Session) error {
				row, err := edit(s, id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Row %d updated (characters: %s, assets: %s)\n",
					row.ID, characterNames(row.Characters, s.Roster()), mainAssetLabel(row))
				return nil
			})
		},
	}
}

func newRowSourceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "source <id> <tag|secondary|primary|label|context> <value>",
		Short: "Edit one imported source field of a row",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			field, ok := ingest.FieldByName(args[1])
			if !ok {
				return fmt.Errorf("unknown source field %q", args[1])
			}
			return ctx.withSession(func(s *studio.Session) error {
				row, err := s.EditSource(id, field, args[2])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Row %d %s set (characters: %s)\n",
					row.ID, strings.ToLower(args[1]), characterNames(row.Characters, s.Roster()))
				return nil
			})
		},
	}
}

func newRowShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			session, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			row, err := session.Row(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field := func(label, value string) {
				if value == "" {
					value = "-"
				}
				fmt.Fprintf(out, "%-14s %s\n", label+":", value)
			}
			field("ID", strconv.Itoa(row.ID))
			field("Tag", row.Source.Tag())
			field("Secondary", row.Source.Secondary())
			field("Primary", row.Source.Primary())
			field("Label", row.Source.Label())
			field("Setting", row.ContextPrompt)
			field("Characters", characterNames(row.Characters, session.Roster()))
			field("Main asset", mainAssetLabel(row))
			field("Error", row.LastError)
			field("Last prompt", row.LastPrompt)
			field("Video prompt", row.VideoPrompt)
			return nil
		},
	}
}

func newRowExportCommand(ctx *commandContext) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write a row's asset to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			session, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			row, err := session.Row(id)
			if err != nil {
				return err
			}
			payload, ok := row.MainAssetValue()
			if cmd.Flags().Changed("index") {
				ok = index >= 0 && index < len(row.Assets)
				if ok {
					payload = row.Assets[index]
				}
			}
			if !ok {
				return fmt.Errorf("row %d has no asset to export", id)
			}
			if err := asset.WriteFile(args[1], payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote row %d asset to %s\n", id, args[1])
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "Asset index (defaults to the main asset)")
	return cmd
}
