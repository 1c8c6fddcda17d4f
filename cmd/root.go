// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "posthog-digest",
	Short: "A CLI tool that posts a PostHog usage digest to Discord.",
	Long: `posthog-digest queries the PostHog analytics API for per-project
usage metrics (DAU/WAU/MAU, pageviews, custom events), computes
week-over-week changes, and delivers the formatted digest as a
Discord direct message.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}
