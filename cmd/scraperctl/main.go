// Command scraperctl drives the scraper service from the terminal: link
// extraction, career-page analysis, pasted-URL submission, and import
// queue management.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/orchestrator"
)

var (
	serverURL string
	debug     bool
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "scraperctl",
		Short: "Control the job scraper service",
		Long:  `Extract job links, analyze career pages, and manage import queues on a running scraper service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", envOr("SCRAPER_SERVER", "http://localhost:8060"), "scraper service base URL")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newExtractCommand(),
		newAnalyzeCommand(),
		newPasteCommand(),
		newQueuesCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newDeps builds the shared client and logger for a subcommand run.
func newDeps() (*orchestrator.Client, logger.Logger) {
	level := "info"
	if debug {
		level = "debug"
	}
	log := logger.Must(logger.Config{Level: level, Development: debug})
	return orchestrator.NewClient(serverURL), log
}
