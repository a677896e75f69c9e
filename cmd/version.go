package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/catalog"
	"github.com/abhisek/questsync/internal/progress"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and supported data formats",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "questsync", version)
		if verbose, _ := cmd.Flags().GetBool("formats"); verbose {
			fmt.Fprintf(w, "catalog snapshots %s.x\n", catalog.SupportedMajor)
			fmt.Fprintf(w, "progress documents v%d\n", progress.DocumentVersion)
		}
	},
}

func init() {
	versionCmd.Flags().Bool("formats", false, "Also print supported catalog and progress formats")
}
