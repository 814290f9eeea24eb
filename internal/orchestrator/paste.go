package orchestrator

import (
	"context"
	"strings"

	"github.com/jonesrussell/job-scraper/internal/models"
)

// ParsePastedURLs filters freeform newline-delimited text down to well-formed
// absolute http(s) URLs. Everything else, blank lines included, is dropped.
func ParsePastedURLs(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if validateTargetURL(line) != nil {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

// SubmitPasted creates an import queue from pasted text. Titles are unknown
// for pasted URLs; the manual-paste sentinel source distinguishes this path
// from listing-page-derived batches downstream.
func (c *QueueController) SubmitPasted(ctx context.Context, text string) (*models.ImportQueue, error) {
	urls := ParsePastedURLs(text)
	if len(urls) == 0 {
		return nil, ErrNoValidURLs
	}
	return c.Create(ctx, models.SourceManualPaste, urls, nil)
}
