// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/posthog-digest/internal/config"
	"github.com/naka-gawa/posthog-digest/internal/gateway"
	"github.com/naka-gawa/posthog-digest/internal/notifier"
	"github.com/naka-gawa/posthog-digest/internal/usecase"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Collects PostHog metrics and sends the digest as a Discord DM",
	Long:  `Collects current and previous-period usage metrics (DAU/WAU/MAU, pageviews, custom events) for every configured or discovered PostHog project and delivers the formatted week-over-week digest as a Discord direct message.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := logrus.New()
		logger.SetOutput(io.Discard) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
			logger.SetLevel(logrus.DebugLevel)
		}

		logger.Info("Starting PostHog daily digest")

		// Configuration problems are fatal before any network call.
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			os.Exit(1)
		}

		// Inject dependencies and run the main business logic.
		posthogGateway := gateway.NewPostHogGateway(cfg.PostHogRegion, cfg.PostHogAPIKey, logger)
		collector := usecase.NewCollector(posthogGateway, logger)
		discord := notifier.NewDiscordNotifier(cfg.DiscordBotToken, logger)
		runner := usecase.NewRunner(posthogGateway, collector, discord, cfg.Projects, cfg.DiscordUserID, logger)

		// Per-project failures are reported inside the digest and do not
		// affect the exit code; only discovery and delivery failures do.
		if err := runner.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Digest run failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}
