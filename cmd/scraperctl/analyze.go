package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/job-scraper/internal/orchestrator"
)

func newAnalyzeCommand() *cobra.Command {
	var materialize bool

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a career page and suggest a follow-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _ := newDeps()
			consumer := orchestrator.NewAnalysisConsumer(client)

			analysis, err := consumer.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderAnalysis(analysis)

			fu := orchestrator.DeriveFollowUp(analysis)
			fmt.Fprintf(os.Stdout, "\nSuggested follow-up: %s\n", followUpLabel(fu.Kind))
			if !materialize {
				return nil
			}

			links, err := consumer.Materialize(cmd.Context(), fu)
			if err != nil {
				return err
			}
			if len(links) == 0 {
				fmt.Fprintln(os.Stdout, "No links to review; open the page manually.")
				return nil
			}
			renderLinks(links)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().BoolVar(&materialize, "links", false, "materialize the follow-up into reviewable links")
	return cmd
}

func followUpLabel(kind orchestrator.FollowUpKind) string {
	switch kind {
	case orchestrator.FollowUpAPIExtract:
		return "extract via the platform jobs API"
	case orchestrator.FollowUpReviewLinks:
		return "review the extracted links"
	case orchestrator.FollowUpSampleImport:
		return "review the sample links (low confidence)"
	default:
		return "manual review"
	}
}
