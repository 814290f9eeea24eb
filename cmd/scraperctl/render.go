package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/job-scraper/internal/models"
)

func renderLinks(links []models.ExtractedJobLink) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "URL"})
	for i, l := range links {
		title := l.Title
		if title == "" {
			title = "-"
		}
		t.AppendRow(table.Row{i + 1, title, l.URL})
	}
	t.Render()
}

func renderQueues(queues []models.ImportQueue) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Source", "Status", "Progress", "Failed", "Cancelled"})
	for i := range queues {
		q := &queues[i]
		done, total := q.Progress()
		t.AppendRow(table.Row{
			q.ID,
			q.SourceURL,
			q.Status,
			fmt.Sprintf("%d/%d", done, total),
			q.Failed,
			q.Cancelled,
		})
	}
	t.Render()
}

func renderJobs(jobs []models.ImportJob) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Job ID", "Status", "URL", "Error"})
	for i := range jobs {
		t.AppendRow(table.Row{jobs[i].ID, jobs[i].Status, jobs[i].URL, jobs[i].Error})
	}
	t.Render()
}

func renderAnalysis(a *models.URLAnalysisResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"URL", a.URL},
		{"Confidence", fmt.Sprintf("%.2f", a.Confidence)},
		{"Site type", a.SiteType},
		{"Platform", valueOr(a.Platform, "unknown")},
		{"Loading method", string(a.JobLoadingMethod)},
		{"API endpoint", valueOr(a.APIEndpointPattern, "-")},
		{"Links found", fmt.Sprintf("%d", len(a.AllExtractedLinks))},
		{"Sample links", fmt.Sprintf("%d", len(a.SampleJobLinks))},
	})
	t.Render()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
