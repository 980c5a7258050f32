package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyboard/internal/config"
	"storyboard/internal/studio"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Project name, style prompt and video prompt note",
	}
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectSetCommand(ctx))
	projectCmd.AddCommand(newProjectSaveAsCommand(ctx))
	return projectCmd
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show project settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			meta := session.Meta()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File: %s\n", session.Path())
			fmt.Fprintf(out, "Name: %s\n", meta.Name)
			fmt.Fprintf(out, "Style prompt: %s\n", meta.StylePrompt)
			fmt.Fprintf(out, "Video prompt note: %s\n", meta.VideoPromptNote)
			fmt.Fprintf(out, "Rows: %d\n", len(session.Rows()))
			return nil
		},
	}
}

func newProjectSetCommand(ctx *commandContext) *cobra.Command {
	var name, style, note string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change project settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("name") && !flags.Changed("style") && !flags.Changed("video-note") {
				return fmt.Errorf("nothing to change: pass --name, --style or --video-note")
			}
			return ctx.withSession(func(s *studio.Session) error {
				if flags.Changed("name") {
					s.SetName(name)
				}
				if flags.Changed("style") {
					s.SetStylePrompt(style)
				}
				if flags.Changed("video-note") {
					s.SetVideoPromptNote(note)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Project updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&style, "style", "", "Image style prompt (empty falls back to style.prompt_template)")
	cmd.Flags().StringVar(&note, "video-note", "", "Note appended to every video prompt")
	return cmd
}

func newProjectSaveAsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save-as <file>",
		Short: "Write the project to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *studio.Session) error {
				if err := s.SaveAs(target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d rows to %s\n", len(s.Rows()), target)
				return nil
			})
		},
	}
}
