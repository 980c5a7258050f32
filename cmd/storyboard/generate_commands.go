package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyboard/internal/generate"
	"storyboard/internal/studio"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate images and video prompts",
	}

	generateCmd.AddCommand(newGenerateImagesCommand(ctx))
	generateCmd.AddCommand(newGeneratePromptsCommand(ctx))
	generateCmd.AddCommand(newGenerateRowCommand(ctx))
	generateCmd.AddCommand(newGeneratePromptCommand(ctx))

	return generateCmd
}

func newGenerateImagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "Generate an image for every row without assets or errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withGenerator(cmd, func(s *studio.Session) error {
				result, err := s.GenerateImages(cmd.Context())
				if err != nil {
					return err
				}
				printBatchSummary(cmd.OutOrStdout(), "images", result)
				return cmd.Context().Err()
			})
		},
	}
}

func newGeneratePromptsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "Write a video prompt for every row with an asset and no prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withGenerator(cmd, func(s *studio.Session) error {
				result, err := s.GeneratePrompts(cmd.Context())
				if err != nil {
					return err
				}
				printBatchSummary(cmd.OutOrStdout(), "video prompts", result)
				return cmd.Context().Err()
			})
		},
	}
}

func newGenerateRowCommand(ctx *commandContext) *cobra.Command {
	var options []string
	var manual string

	cmd := &cobra.Command{
		Use:   "row <id>",
		Short: "Generate a new image for one row",
		Long:  "Generates regardless of the row's existing assets or error. --option and --manual refine the prompt of a remake.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			adj := generate.Adjustments{Options: options, Manual: manual}
			return ctx.withGenerator(cmd, func(s *studio.Session) error {
				result, err := s.GenerateRow(cmd.Context(), id, adj)
				if err != nil {
					return err
				}
				return reportRow(cmd, s, id, result.Failed > 0, "image")
			})
		},
	}

	cmd.Flags().StringArrayVar(&options, "option", nil, "Prompt adjustment, e.g. \"closer shot\" (repeatable)")
	cmd.Flags().StringVar(&manual, "manual", "", "Additional free-form instructions")
	return cmd
}

func newGeneratePromptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <id>",
		Short: "Write a video prompt for one row's main asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			return ctx.withGenerator(cmd, func(s *studio.Session) error {
				result, err := s.GeneratePrompt(cmd.Context(), id)
				if err != nil {
					return err
				}
				return reportRow(cmd, s, id, result.Failed > 0, "video prompt")
			})
		},
	}
}

func reportRow(cmd *cobra.Command, s *studio.Session, id int, failed bool, what string) error {
	row, err := s.Row(id)
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("row %d %s failed: %s", id, what, row.LastError)
	}
	out := cmd.OutOrStdout()
	if what == "image" {
		fmt.Fprintf(out, "Row %d: new image (%s)\n", id, mainAssetLabel(row))
		return nil
	}
	fmt.Fprintf(out, "Row %d video prompt:\n%s\n", id, row.VideoPrompt)
	return nil
}
