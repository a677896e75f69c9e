package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent log sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.HistoryRepo().Recent(cmd.Context(), store.QueryOpts{Limit: limit, Source: source})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-19s  %6s  %7s  %9s  %6s  %9s  %s\n",
			"Applied", "Events", "Started", "Completed", "Failed", "Unmatched", "Source")
		fmt.Fprintln(w, strings.Repeat(rule, 90))
		for _, r := range runs {
			src := r.Source
			if r.Historical {
				src += " (backlog)"
			}
			fmt.Fprintf(w, "%-19s  %6d  %7d  %9d  %6d  %9d  %s\n",
				r.AppliedAt.Local().Format(time.DateTime), r.Events, r.Started, r.Completed, r.Failed, len(r.Unmatched), src)
		}
		fmt.Fprintf(w, "\n%d runs\n", len(runs))
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum runs to show (0 = all)")
	historyCmd.Flags().String("source", "", "Only show runs for this log file")
}
