package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/roughcut/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Paths.StateDB)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func renderHistory(runs []store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		finished := "-"
		if !r.FinishedAt.IsZero() {
			finished = r.FinishedAt.Local().Format("2006-01-02 15:04:05")
		}
		result := r.DocumentPath
		if r.Status == store.RunFailed {
			result = r.ErrorMessage
		}
		rows = append(rows, []string{
			r.ID[:min(8, len(r.ID))],
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			finished,
			r.Mode,
			string(r.Status),
			fmt.Sprintf("%d", r.Clips),
			fmt.Sprintf("%.1f%%", r.AnalysisRate),
			fmt.Sprintf("%d", r.Plans),
			orDash(result),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Finished", "Mode", "Status", "Clips", "Analyzed", "Plans", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}
