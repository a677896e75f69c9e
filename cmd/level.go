package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var levelCmd = &cobra.Command{
	Use:   "level [n]",
	Short: "Show or set the player level",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, _, err := openSettings(cmd)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprintln(w, "player level", st.PlayerLevel())
			return nil
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid level %q", args[0])
		}
		if err := st.SetPlayerLevel(n); err != nil {
			return err
		}
		fmt.Fprintln(w, "player level set to", st.PlayerLevel())
		return nil
	},
}
