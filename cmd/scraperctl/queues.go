package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/job-scraper/internal/models"
	"github.com/jonesrussell/job-scraper/internal/orchestrator"
)

func newQueuesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queues",
		Short: "Manage import queues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newQueuesListCommand(),
		newQueuesWatchCommand(),
		newQueuesCancelCommand(),
		newQueuesDeleteCommand(),
		newQueuesRetryFailedCommand(),
		newQueuesRetryJobCommand(),
		newQueuesCancelJobCommand(),
	)
	return cmd
}

func newQueuesListCommand() *cobra.Command {
	var showJobs bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all import queues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _ := newDeps()
			queues, err := client.GetAllQueues(cmd.Context())
			if err != nil {
				return err
			}
			renderQueues(queues)
			if showJobs {
				for i := range queues {
					fmt.Fprintf(os.Stdout, "\nQueue %s\n", queues[i].ID)
					renderJobs(queues[i].Jobs)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showJobs, "jobs", false, "also list each queue's jobs")
	return cmd
}

func newQueuesWatchCommand() *cobra.Command {
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch queues until interrupted",
		Long: `Poll queue state while any queue is active and re-render on change.
Prints a reconcile notice once when the last active queue settles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, log := newDeps()

			onReconcile := func() {
				fmt.Fprintln(os.Stdout, "All queues settled; job listings are up to date.")
			}
			onUpdate := func(queues []models.ImportQueue) {
				renderQueues(queues)
			}

			ctrl := orchestrator.NewQueueController(client, log, pollInterval, onReconcile, onUpdate)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := ctrl.Start(ctx); err != nil {
				return err
			}
			defer ctrl.Stop()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&pollInterval, "poll-interval", orchestrator.DefaultQueuePollInterval, "queue poll interval")
	return cmd
}

func newQueuesCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <queue-id>",
		Short: "Cancel all pending jobs in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _ := newDeps()
			if err := client.CancelQueue(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Cancelled queue %s\n", args[0])
			return nil
		},
	}
}

func newQueuesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <queue-id>",
		Short: "Delete a terminal queue and its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _ := newDeps()
			if err := client.DeleteQueue(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Deleted queue %s\n", args[0])
			return nil
		},
	}
}

func newQueuesRetryFailedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-failed <queue-id>",
		Short: "Requeue every failed job in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, log := newDeps()
			ctrl := orchestrator.NewQueueController(client, log, orchestrator.DefaultQueuePollInterval, nil, nil)
			if err := ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}

			count, err := ctrl.RetryFailed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Requeued %d failed jobs in queue %s\n", count, args[0])
			return nil
		},
	}
}

func newQueuesRetryJobCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-job <queue-id> <job-id>",
		Short: "Requeue a single failed job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _ := newDeps()
			if err := client.RetryJob(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Requeued job %s\n", args[1])
			return nil
		},
	}
}

func newQueuesCancelJobCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-job <queue-id> <job-id>",
		Short: "Cancel a single pending job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _ := newDeps()
			if err := client.CancelJob(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Cancelled job %s\n", args[1])
			return nil
		},
	}
}
