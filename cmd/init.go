package cmd

import (
	"log"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/peshell/pesh/core/config"
)

// initCmd writes a fresh configuration directory.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the shell configuration in the config directory.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		if _, err := config.Initialize(afero.NewOsFs(), cfgPath); err != nil {
			return err
		}
		logger.Printf("Wrote %s", config.ConfigurationName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
