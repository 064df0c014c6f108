package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peshell/pesh/core/interp"
)

// builtinsCmd lists the commands implemented inside the shell.
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the shell's builtin commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range interp.Builtins() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
