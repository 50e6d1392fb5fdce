package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "perch [bar...]",
	Short: "perch -- signal-driven status bar",
	Long: "perch draws status bars from module commands. SIGUSR1 and SIGUSR2 apply\n" +
		"each bar's configured action, SIGRTMIN+N refreshes modules bound to N,\n" +
		"and SIGINT quits.",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPerch,
}

// exitError carries a non-zero exit code whose cause was already logged.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: search PERCH_CONFIG and XDG paths)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var code exitError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
