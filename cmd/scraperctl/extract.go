package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/job-scraper/internal/models"
	"github.com/jonesrussell/job-scraper/internal/orchestrator"
)

func newExtractCommand() *cobra.Command {
	var pollInterval time.Duration
	var submit bool

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract job links from a listing page",
		Long: `Extract job links from a listing page. Falls back to a background
extraction task when the synchronous pass finds nothing, polling until the
task finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, log := newDeps()
			ctrl := orchestrator.NewExtractionController(client, log, pollInterval, nil)
			defer ctrl.StopAll()

			links, err := ctrl.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			renderLinks(links)
			if !submit {
				return nil
			}

			queues := orchestrator.NewQueueController(client, log, orchestrator.DefaultQueuePollInterval, nil, nil)
			queue, err := queues.Create(cmd.Context(), args[0], linkURLs(links), linkTitles(links))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Created import queue %s with %d jobs\n", queue.ID, queue.TotalJobs)
			return nil
		},
	}

	cmd.Flags().DurationVar(&pollInterval, "poll-interval", orchestrator.DefaultTaskPollInterval, "background task poll interval")
	cmd.Flags().BoolVar(&submit, "submit", false, "submit extracted links as an import queue")
	return cmd
}

func linkURLs(links []models.ExtractedJobLink) []string {
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	return urls
}

func linkTitles(links []models.ExtractedJobLink) []string {
	titles := make([]string, len(links))
	for i, l := range links {
		titles[i] = l.Title
	}
	return titles
}
