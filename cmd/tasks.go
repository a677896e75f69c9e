package cmd

import (
	"fmt"
	"strconv"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/progress"
	"github.com/abhisek/questsync/internal/ui/theme"
)

var completeCmd = &cobra.Command{
	Use:   "complete <task>",
	Short: "Mark a task done, completing its prerequisites too",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noPrereqs, _ := cmd.Flags().GetBool("no-prereqs")
		return mutate(cmd, args[0], "completed", func(env *runtimeEnv, id string) (progress.Result, error) {
			return env.engine.CompleteTask(cmd.Context(), id, !noPrereqs)
		})
	},
}

var failCmd = &cobra.Command{
	Use:   "fail <task>",
	Short: "Mark a task failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], "failed", func(env *runtimeEnv, id string) (progress.Result, error) {
			return env.engine.FailTask(cmd.Context(), id)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <task>",
	Short: "Clear a task's recorded state so its status is derived again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], "reset", func(env *runtimeEnv, id string) (progress.Result, error) {
			return env.engine.ResetTask(cmd.Context(), id)
		})
	},
}

func mutate(cmd *cobra.Command, ref, verb string, fn func(*runtimeEnv, string) (progress.Result, error)) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	rec, err := env.engine.Lookup(ref)
	if err != nil {
		return err
	}
	res, err := fn(env, rec.ID)
	if err != nil {
		return err
	}
	printMutation(cmd.OutOrStdout(), env.engine, env.cfg.Locale, verb, res)
	return nil
}

var objectiveCmd = &cobra.Command{
	Use:   "objective <task> <index>",
	Short: "Mark one objective of a task complete",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid objective index %q", args[1])
		}
		undo, _ := cmd.Flags().GetBool("undo")

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.engine.Lookup(args[0])
		if err != nil {
			return err
		}
		if err := env.engine.SetObjectiveCompleted(cmd.Context(), rec.ID, index, !undo); err != nil {
			return err
		}
		state := "complete"
		if undo {
			state = "incomplete"
		}
		lipgloss.Fprintf(cmd.OutOrStdout(), "objective %d of %s marked %s\n",
			index, taskLabel(env.engine, env.cfg.Locale, rec.ID), state)
		return nil
	},
}

var chooseCmd = &cobra.Command{
	Use:   "choose <task>",
	Short: "Record which variant of an alternative group was taken",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.engine.Lookup(args[0])
		if err != nil {
			return err
		}
		choice, err := env.engine.ChooseAlternative(cmd.Context(), rec.ID)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		locale := env.cfg.Locale
		lipgloss.Fprintf(w, "%s %s for group %s\n", theme.SuccessText.Render("chose"), taskLabel(env.engine, locale, rec.ID), choice.Group)
		for _, id := range choice.Cleared {
			lipgloss.Fprintf(w, "  cleared %s\n", taskLabel(env.engine, locale, id))
		}
		return nil
	},
}

func init() {
	completeCmd.Flags().Bool("no-prereqs", false, "Do not complete prerequisites")
	objectiveCmd.Flags().Bool("undo", false, "Mark the objective incomplete instead")
}
