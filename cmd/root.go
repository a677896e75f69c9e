package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "questsync",
	Short: "Quest dependency tracker with log-driven progress sync",
	Long: `questsync tracks completion of interdependent quests: prerequisite chains,
mutually exclusive alternatives and completion evidence read from game logs.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUESTSYNC_DB env var)")
	rootCmd.PersistentFlags().String("catalog", "", "Path to the task catalog snapshot (JSON or YAML)")
	rootCmd.PersistentFlags().String("config", "", "Configuration directory (overrides QUESTSYNC_CONFIG_DIR env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(kappaCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(failCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(objectiveCmd)
	rootCmd.AddCommand(chooseCmd)
	rootCmd.AddCommand(levelCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then QUESTSYNC_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
