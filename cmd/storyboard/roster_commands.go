package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storyboard/internal/asset"
	"storyboard/internal/project"
	"storyboard/internal/roster"
	"storyboard/internal/studio"
)

func newRosterCommand(ctx *commandContext) *cobra.Command {
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the three character slots",
	}

	rosterCmd.AddCommand(newRosterShowCommand(ctx))
	rosterCmd.AddCommand(newRosterSetCommand(ctx))
	rosterCmd.AddCommand(newRosterClearCommand(ctx))
	rosterCmd.AddCommand(newRosterDefaultCommand(ctx))
	rosterCmd.AddCommand(newRosterApplyCommand(ctx))

	return rosterCmd
}

func newRosterShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			printRoster(cmd.OutOrStdout(), session.Roster(), session.Meta())
			return nil
		},
	}
}

func printRoster(out io.Writer, r roster.Roster, meta project.Meta) {
	rows := make([][]string, 0, roster.Slots)
	for slot, c := range r {
		isDefault := meta.DefaultCharacter != nil && *meta.DefaultCharacter == slot
		rows = append(rows, []string{
			strconv.Itoa(slot),
			c.Name,
			excerpt(c.StyleNote),
			strconv.Itoa(len(c.ReferenceImages)),
			yesNo(isDefault),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Slot", "Name", "Style", "Images", "Default"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func parseSlot(value string) (int, error) {
	slot, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || !roster.ValidSlot(slot) {
		return 0, fmt.Errorf("invalid slot %q (want 0-%d)", value, roster.Slots-1)
	}
	return slot, nil
}

func newRosterSetCommand(ctx *commandContext) *cobra.Command {
	var name string
	var style string
	var images []string

	cmd := &cobra.Command{
		Use:   "set <slot>",
		Short: "Set a character slot",
		Long:  "Sets the slot's name, style note and reference images. Omitted values keep the slot's current ones.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *studio.Session) error {
				c := s.Roster()[slot]
				if cmd.Flags().Changed("name") {
					c.Name = name
				}
				if cmd.Flags().Changed("style") {
					c.StyleNote = style
				}
				if len(images) > 0 {
					c.ReferenceImages = make([]string, 0, len(images))
					for _, path := range images {
						payload, err := asset.FromFile(path)
						if err != nil {
							return err
						}
						c.ReferenceImages = append(c.ReferenceImages, payload)
					}
				}
				changed, err := s.SetCharacter(slot, c)
				if err != nil {
					return err
				}
				stored := s.Roster()[slot]
				fmt.Fprintf(cmd.OutOrStdout(), "Slot %d set to %q with %d images; %d rows updated\n", slot, stored.Name, len(stored.ReferenceImages), changed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Character name")
	cmd.Flags().StringVar(&style, "style", "", "Style note used in image prompts")
	cmd.Flags().StringArrayVar(&images, "image", nil, "Reference image file (repeatable, replaces current images)")
	return cmd
}

func newRosterClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <slot>",
		Short: "Empty a character slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *studio.Session) error {
				changed, err := s.ClearCharacter(slot)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Slot %d cleared; %d rows updated\n", slot, changed)
				return nil
			})
		},
	}
}

func newRosterDefaultCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "default <slot|none>",
		Short: "Set the character used when a tag names nobody",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := roster.ParseDefault(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *studio.Session) error {
				changed, err := s.SetDefaultCharacter(slot)
				if err != nil {
					return err
				}
				label := "none"
				if slot != nil {
					label = strconv.Itoa(*slot)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default character set to %s; %d rows updated\n", label, changed)
				return nil
			})
		},
	}
}

func newRosterApplyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <roster.yaml>",
		Short: "Load characters from a roster file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := roster.LoadFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *studio.Session) error {
				changed, err := s.ApplyRosterFile(file, asset.FromFile)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d characters; %d rows updated\n", len(file.Characters), changed)
				return nil
			})
		},
	}
}
