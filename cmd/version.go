package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the agent version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s/%s)\n", appName, appVersion, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// no configuration needed
	versionCmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }
	rootCmd.AddCommand(versionCmd)
}
