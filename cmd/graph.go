package cmd

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/ui/theme"
)

var graphCmd = &cobra.Command{
	Use:   "graph [task]",
	Short: "Show dependency graph statistics, or the dependencies of one task",
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
		showCycles, _ := cmd.Flags().GetBool("cycles")
		showIssues, _ := cmd.Flags().GetBool("issues")

		if len(args) == 1 {
			rec, err := e.Lookup(args[0])
			if err != nil {
				return err
			}
			st, _ := e.Status(rec.ID)
			lipgloss.Fprintln(w, theme.Title.Render(rec.DisplayName(locale)), theme.Subtitle.Render(rec.ID), theme.RenderStatus(st))
			if rec.Trader != "" {
				lipgloss.Fprintf(w, "trader %s", rec.Trader)
				if rec.RequiredLevel > 0 {
					lipgloss.Fprintf(w, "  level %d", rec.RequiredLevel)
				}
				lipgloss.Fprintln(w)
			}

			prereqs := e.AllPrerequisites(rec.ID)
			lipgloss.Fprintln(w, theme.Heading.Render("Prerequisites"), len(prereqs))
			printTaskList(w, e, locale, prereqs, false)

			follow := e.DirectFollowUps(rec.ID)
			lipgloss.Fprintln(w, theme.Heading.Render("Follow-ups"), len(follow))
			printTaskList(w, e, locale, follow, false)

			lipgloss.Fprintln(w, theme.Heading.Render("Optimal path"))
			printTaskList(w, e, locale, e.OptimalPath(rec.ID), true)
			return nil
		}

		s := e.Graph().Stats()
		lipgloss.Fprintln(w, theme.Title.Render("Quest graph"))
		lipgloss.Fprintln(w, strings.Repeat(rule, 40))
		lipgloss.Fprintf(w, "%-28s %6d\n", "Tasks", s.Tasks)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Dependency edges", s.Edges)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Root tasks", s.Roots)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Leaf tasks", s.Leaves)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Required for endgame", s.EndgameRequired)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Endgame plan size", s.KappaSet)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Alternative groups", s.AltGroups)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Circular dependencies", s.Cycles)
		lipgloss.Fprintf(w, "%-28s %6d\n", "Data issues", s.Issues)

		if showCycles {
			for _, c := range e.DetectCircularDependencies() {
				lipgloss.Fprintln(w, theme.WarningText.Render("cycle"), strings.Join(append(c, c[0]), " → "))
			}
		}
		if showIssues {
			for _, is := range e.Graph().Issues() {
				lipgloss.Fprintf(w, "%s %s %s: %s\n", theme.WarningText.Render(is.Kind.String()), is.TaskID, is.RefID, is.Detail)
			}
		}
		return nil
	},
}

func init() {
	graphCmd.Flags().Bool("cycles", false, "List circular dependencies")
	graphCmd.Flags().Bool("issues", false, "List catalog data issues")
}
