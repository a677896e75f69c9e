package cmd

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/status"
	"github.com/abhisek/questsync/internal/ui/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status [task]",
	Short: "Show the derived status of one task or all tasks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		w := cmd.OutOrStdout()
		e := env.engine
		locale := env.cfg.Locale

		if len(args) == 1 {
			rec, err := e.Lookup(args[0])
			if err != nil {
				return err
			}
			st, _ := e.Status(rec.ID)
			lipgloss.Fprintln(w, theme.RenderStatus(st), taskLabel(e, locale, rec.ID))
			state := e.State()
			for _, obj := range rec.Objectives {
				mark := "[ ]"
				if state.IsObjectiveCompleted(rec.ID, obj.Index) {
					mark = "[x]"
				}
				lipgloss.Fprintf(w, "  %s objective %d %s\n", mark, obj.Index, theme.Hint.Render(obj.Type))
			}
			return nil
		}

		only, _ := cmd.Flags().GetString("only")
		var filter *status.Status
		if only != "" {
			s, err := parseStatus(only)
			if err != nil {
				return err
			}
			filter = &s
		}

		statuses := e.Statuses()
		counts := make(map[status.Status]int)
		var ids []string
		for _, id := range e.Catalog().IDs() {
			s := statuses[id]
			counts[s]++
			if filter == nil || *filter == s {
				ids = append(ids, id)
			}
		}
		printTaskList(w, e, locale, ids, false)
		lipgloss.Fprintf(w, "\n%d done, %d active, %d locked, %d level locked, %d failed\n",
			counts[status.Done], counts[status.Active], counts[status.Locked], counts[status.LevelLocked], counts[status.Failed])
		return nil
	},
}

func parseStatus(s string) (status.Status, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "locked":
		return status.Locked, nil
	case "active":
		return status.Active, nil
	case "done":
		return status.Done, nil
	case "failed":
		return status.Failed, nil
	case "levellocked", "level-locked":
		return status.LevelLocked, nil
	}
	return 0, fmt.Errorf("unknown status %q: must be locked, active, done, failed or level-locked", s)
}

func init() {
	statusCmd.Flags().String("only", "", "Only list tasks with this status")
}
