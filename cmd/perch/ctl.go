package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/perchbar/perch/internal/config"
	"github.com/perchbar/perch/internal/ctl"
)

var ctlLockFile string

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Signal a running perch instance",
	Long:  "Send signals to the perch instance holding the lock file.",
}

// newCtlClient finds the lock file from --lock-file, then the config's
// lock_file, then the default location.
func newCtlClient() *ctl.Client {
	if ctlLockFile != "" {
		return ctl.New(ctlLockFile)
	}
	if path, err := config.Resolve(configPath); err == nil {
		if cfg, _, err := config.Load(path); err == nil {
			return ctl.New(cfg.LockFile)
		}
	}
	return ctl.New("")
}

var ctlUsr1Cmd = &cobra.Command{
	Use:   "usr1",
	Short: "Send SIGUSR1 (default: toggle bars)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newCtlClient().Usr1()
	},
}

var ctlUsr2Cmd = &cobra.Command{
	Use:   "usr2",
	Short: "Send SIGUSR2 (default: reload)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newCtlClient().Usr2()
	},
}

var ctlQuitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Send SIGINT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newCtlClient().Quit()
	},
}

var ctlRefreshCmd = &cobra.Command{
	Use:   "refresh <offset>",
	Short: "Send SIGRTMIN+offset to refresh bound modules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid offset %q", args[0])
		}
		return newCtlClient().Refresh(offset)
	},
}

var ctlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether perch is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newCtlClient().Status(cmd.OutOrStdout())
	},
}

func init() {
	ctlCmd.PersistentFlags().StringVar(&ctlLockFile, "lock-file", "", "lock file of the running instance")
	ctlCmd.AddCommand(ctlUsr1Cmd, ctlUsr2Cmd, ctlQuitCmd, ctlRefreshCmd, ctlStatusCmd)
	rootCmd.AddCommand(ctlCmd)
}
