package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perchbar/perch/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Resolve(configPath)
		if err != nil {
			return err
		}
		cfg, warnings, err := config.Load(path)
		for _, w := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d bars, %d modules)\n",
			path, len(cfg.Bars), len(cfg.Modules))
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
