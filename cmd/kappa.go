package cmd

import (
	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/ui/components"
	"github.com/abhisek/questsync/internal/ui/theme"
)

var kappaCmd = &cobra.Command{
	Use:   "kappa",
	Short: "Print the ordered completion plan for endgame-required tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		w := cmd.OutOrStdout()
		e := env.engine
		remaining, _ := cmd.Flags().GetBool("remaining")

		done, total := e.KappaProgress()
		lipgloss.Fprintln(w, theme.Title.Render("Endgame path"))
		lipgloss.Fprintln(w, components.NewProgressBar("Progress", done, total, 60).View())

		path := e.KappaPath()
		if remaining {
			st := e.State()
			kept := path[:0]
			for _, id := range path {
				if !st.IsCompleted(id) {
					kept = append(kept, id)
				}
			}
			path = kept
		}
		printTaskList(w, e, env.cfg.Locale, path, true)
		return nil
	},
}

func init() {
	kappaCmd.Flags().Bool("remaining", false, "Hide tasks that are already done")
}
