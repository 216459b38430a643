package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	dryRun  bool
	rootCmd = &cobra.Command{
		Use:          "reminders",
		Short:        "Send today's due-date reminders once and exit",
		SilenceUsage: true,
		RunE:         runReminders,
	}
)

// Execute exits 1 on any error returned by the command, 0 otherwise.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve eligible recipients without sending")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
