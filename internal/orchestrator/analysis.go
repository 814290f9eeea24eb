package orchestrator

import (
	"context"
	"fmt"

	"github.com/jonesrussell/job-scraper/internal/models"
)

// FollowUpKind is the single follow-up action derived from an analysis.
type FollowUpKind string

const (
	// FollowUpAPIExtract materializes links through the platform jobs API.
	FollowUpAPIExtract FollowUpKind = "api_extract"
	// FollowUpReviewLinks routes directly-extracted links into queue review.
	FollowUpReviewLinks FollowUpKind = "review_links"
	// FollowUpSampleImport offers the reduced-confidence sample list.
	FollowUpSampleImport FollowUpKind = "sample_import"
	// FollowUpManualReview carries only the source URL forward.
	FollowUpManualReview FollowUpKind = "manual_review"
)

// FollowUp is the one action offered to the operator after analysis. Links
// are candidates for review, never an automatic import.
type FollowUp struct {
	Kind      FollowUpKind
	SourceURL string
	Links     []models.ExtractedJobLink

	// API extraction inputs, set only for FollowUpAPIExtract.
	APIEndpointPattern string
	JobLinkPattern     string
}

// AnalysisConsumer runs career-page analysis and derives follow-up actions.
type AnalysisConsumer struct {
	client *Client
}

func NewAnalysisConsumer(client *Client) *AnalysisConsumer {
	return &AnalysisConsumer{client: client}
}

// Analyze validates the URL and runs the one-shot analysis.
func (a *AnalysisConsumer) Analyze(ctx context.Context, pageURL string) (*models.URLAnalysisResult, error) {
	if err := validateTargetURL(pageURL); err != nil {
		return nil, err
	}
	return a.client.AnalyzeCareerPage(ctx, pageURL)
}

// DeriveFollowUp picks exactly one follow-up for an analysis, in precedence
// order: API pattern, full extracted link list, sample fallback, manual
// hand-off.
func DeriveFollowUp(analysis *models.URLAnalysisResult) FollowUp {
	switch {
	case analysis.APIEndpointPattern != "":
		return FollowUp{
			Kind:               FollowUpAPIExtract,
			SourceURL:          analysis.URL,
			APIEndpointPattern: analysis.APIEndpointPattern,
			JobLinkPattern:     analysis.JobLinkPattern,
		}
	case len(analysis.AllExtractedLinks) > 0:
		return FollowUp{
			Kind:      FollowUpReviewLinks,
			SourceURL: analysis.URL,
			Links:     linksFromURLs(analysis.AllExtractedLinks),
		}
	case len(analysis.SampleJobLinks) > 0:
		return FollowUp{
			Kind:      FollowUpSampleImport,
			SourceURL: analysis.URL,
			Links:     linksFromURLs(analysis.SampleJobLinks),
		}
	default:
		return FollowUp{
			Kind:      FollowUpManualReview,
			SourceURL: analysis.URL,
		}
	}
}

// Materialize resolves a follow-up into reviewable links. API extraction is
// the only variant that needs another server call; the manual hand-off
// yields no links.
func (a *AnalysisConsumer) Materialize(ctx context.Context, fu FollowUp) ([]models.ExtractedJobLink, error) {
	switch fu.Kind {
	case FollowUpAPIExtract:
		return a.client.ExtractFromAPI(ctx, fu.APIEndpointPattern, fu.SourceURL, fu.JobLinkPattern)
	case FollowUpReviewLinks, FollowUpSampleImport:
		return fu.Links, nil
	case FollowUpManualReview:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown follow-up kind %q", fu.Kind)
	}
}

func linksFromURLs(urls []string) []models.ExtractedJobLink {
	links := make([]models.ExtractedJobLink, len(urls))
	for i, u := range urls {
		links[i] = models.ExtractedJobLink{URL: u}
	}
	return links
}
