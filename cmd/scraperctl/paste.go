package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/job-scraper/internal/orchestrator"
)

func newPasteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paste",
		Short: "Submit job URLs from stdin as an import queue",
		Long: `Read newline-separated job URLs from stdin, drop blank lines and
relative URLs, and submit the rest as a manual-paste import queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}

			client, log := newDeps()
			queues := orchestrator.NewQueueController(client, log, orchestrator.DefaultQueuePollInterval, nil, nil)
			queue, err := queues.SubmitPasted(cmd.Context(), string(text))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Created import queue %s with %d jobs\n", queue.ID, queue.TotalJobs)
			return nil
		},
	}
}
