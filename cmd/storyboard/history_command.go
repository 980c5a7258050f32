package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"storyboard/internal/history"
	"storyboard/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var rowID int
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generation attempts for the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store, projectPath string) error {
				attempts, err := store.List(cmd.Context(), history.Filter{Project: projectPath, RowID: rowID, Limit: limit})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, attempts)
				}
				out := cmd.OutOrStdout()
				if len(attempts) == 0 {
					fmt.Fprintln(out, "No generation attempts recorded")
					return nil
				}
				rows := make([][]string, 0, len(attempts))
				for _, a := range attempts {
					rows = append(rows, []string{
						a.StartedAt.Local().Format(time.DateTime),
						strconv.Itoa(a.RowID),
						a.Kind,
						a.Outcome,
						a.Duration().Round(time.Millisecond).String(),
						excerpt(a.ErrorMessage),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Started", "Row", "Kind", "Outcome", "Took", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))

				counts, err := store.OutcomeCounts(cmd.Context(), projectPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Totals: %d succeeded, %d blocked, %d transport, %d rejected, %d failed\n",
					counts[history.OutcomeSucceeded], counts[services.OutcomeBlocked], counts[services.OutcomeTransport],
					counts[services.OutcomeRejected], counts[services.OutcomeFailed])
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&rowID, "row", 0, "Only attempts for this row")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum attempts to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print attempts as JSON")
	return cmd
}
