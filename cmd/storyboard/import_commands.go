package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storyboard/internal/ingest"
	"storyboard/internal/studio"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var columns string
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Replace the storyboard rows with a CSV script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			table, err := ingest.ReadCSV(file)
			file.Close()
			if err != nil {
				return err
			}

			var mapping *ingest.ColumnMapping
			if strings.TrimSpace(columns) != "" {
				parsed, err := ingest.ParseMapping(columns)
				if err != nil {
					return err
				}
				mapping = &parsed
			}

			return ctx.withSession(func(s *studio.Session) error {
				rows, err := s.Import(table, mapping, force)
				if errors.Is(err, studio.ErrConfirmationRequired) {
					return fmt.Errorf("%w (rerun with --force)", err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", len(rows), s.Path())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&columns, "columns", "", "Column mapping, e.g. tag=0,secondary=1,primary=2,label=3,context=4")
	cmd.Flags().BoolVar(&force, "force", false, "Replace existing rows without confirmation")
	return cmd
}

func newImportChatCommand(ctx *commandContext) *cobra.Command {
	var column string
	var force bool

	cmd := &cobra.Command{
		Use:   "import-chat <file>",
		Short: "Build rows from a script-writing chat transcript",
		Long: "Reads a JSON array of {role, content} messages or plain text. Markdown tables in the model's\n" +
			"messages become rows; otherwise the lines of the last model message fill one text column,\n" +
			"merging into existing rows when the table is not empty.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := ingest.ParseTextColumn(column)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			transcript := ingest.ParseTranscript(data)

			return ctx.withSession(func(s *studio.Session) error {
				result, err := s.ImportChat(transcript, col, force)
				if errors.Is(err, studio.ErrConfirmationRequired) {
					return fmt.Errorf("%w (rerun with --force)", err)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case result.Tabular:
					fmt.Fprintf(out, "Imported %d rows from chat tables\n", len(result.Rows))
				case result.Merged:
					fmt.Fprintf(out, "Merged script lines into %d rows\n", len(result.Rows))
				default:
					fmt.Fprintf(out, "Imported %d script lines\n", len(result.Rows))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&column, "column", "primary", "Column for plain script lines: primary or secondary")
	cmd.Flags().BoolVar(&force, "force", false, "Replace existing rows without confirmation")
	return cmd
}
