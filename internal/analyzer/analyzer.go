// Package analyzer performs a one-shot inspection of a career page,
// characterizing its platform, loading method and likely extraction strategy.
// The result is advisory: nothing here commits an import.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/job-scraper/internal/extractor"
	"github.com/jonesrussell/job-scraper/internal/httpclient"
	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

const maxBodyBytes = 5 << 20

// Hosted applicant-tracking platforms recognized by host or markup markers.
var platformMarkers = []struct {
	name        string
	hostHint    string
	markup      string
	apiEndpoint string
	linkPattern string
}{
	{
		name:        "greenhouse",
		hostHint:    "greenhouse.io",
		markup:      "#grnhse_app",
		apiEndpoint: "https://boards-api.greenhouse.io/v1/boards/{board}/jobs",
		linkPattern: `/jobs/\d+`,
	},
	{
		name:        "lever",
		hostHint:    "lever.co",
		markup:      ".lever-job, .posting",
		apiEndpoint: "https://api.lever.co/v0/postings/{company}",
		linkPattern: `/[0-9a-f-]{36}`,
	},
	{
		name:     "workday",
		hostHint: "myworkdayjobs.com",
		markup:   "[data-automation-id]",
	},
	{
		name:        "ashby",
		hostHint:    "ashbyhq.com",
		markup:      "#ashby_embed",
		linkPattern: `/[0-9a-f-]{36}`,
	},
}

// scriptURLPattern finds job-ish URLs buried in inline scripts, used for the
// reduced-confidence sample list on script-rendered pages.
var scriptURLPattern = regexp.MustCompile(`https?://[^\s"'<>\\]*(?:job|career|position|opening)[^\s"'<>\\]*`)

type Analyzer struct {
	logger      logger.Logger
	client      *http.Client
	extractor   *extractor.Extractor
	userAgent   string
	sampleLimit int
}

func New(log logger.Logger, ext *extractor.Extractor, timeout time.Duration, userAgent string, sampleLimit int) *Analyzer {
	return &Analyzer{
		logger:      log,
		client:      httpclient.New(&httpclient.Config{Timeout: timeout}),
		extractor:   ext,
		userAgent:   userAgent,
		sampleLimit: sampleLimit,
	}
}

// Analyze fetches the page once and builds a URLAnalysisResult. Direct link
// extraction is attempted as part of the analysis so consumers can offer a
// "review N jobs" follow-up without another scan.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string) (*models.URLAnalysisResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	body, err := a.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &models.URLAnalysisResult{
		URL:      pageURL,
		SiteType: "career_page",
	}

	a.detectPlatform(base, doc, result)
	a.detectLoadingMethod(doc, result)
	a.guessSelectors(doc, result)

	links, err := a.extractor.ExtractLinks(ctx, pageURL)
	if err != nil {
		// Analysis still stands without direct links; note the challenge.
		result.Challenges = append(result.Challenges, "direct link extraction failed: "+err.Error())
	}
	for _, l := range links {
		result.AllExtractedLinks = append(result.AllExtractedLinks, l.URL)
	}

	if len(result.AllExtractedLinks) == 0 {
		result.SampleJobLinks = a.sampleFromScripts(string(body))
	}
	if n := len(result.AllExtractedLinks); n > 0 {
		result.TotalJobsEstimate = n
	}

	a.buildPlan(result)
	result.Confidence = a.score(result)

	a.logger.Info("Career page analysis complete",
		logger.String("url", pageURL),
		logger.String("platform", result.Platform),
		logger.String("loading_method", string(result.JobLoadingMethod)),
		logger.Float64("confidence", result.Confidence),
		logger.Int("links", len(result.AllExtractedLinks)),
	)

	return result, nil
}

func (a *Analyzer) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (a *Analyzer) detectPlatform(base *url.URL, doc *goquery.Document, result *models.URLAnalysisResult) {
	host := strings.ToLower(base.Host)
	for _, p := range platformMarkers {
		if strings.Contains(host, p.hostHint) || doc.Find(p.markup).Length() > 0 {
			result.Platform = p.name
			result.APIEndpointPattern = p.apiEndpoint
			result.JobLinkPattern = p.linkPattern
			return
		}
	}
	result.Platform = "custom"
}

func (a *Analyzer) detectLoadingMethod(doc *goquery.Document, result *models.URLAnalysisResult) {
	if result.APIEndpointPattern != "" {
		result.JobLoadingMethod = models.LoadingAPI
		return
	}

	anchors := doc.Find("a[href]").Length()
	scripts := doc.Find("script[src]").Length()
	bodyText := strings.TrimSpace(doc.Find("body").Text())

	switch {
	case anchors == 0 && scripts > 0 && len(bodyText) < 200:
		result.JobLoadingMethod = models.LoadingSPA
		result.Challenges = append(result.Challenges, "job list is rendered client-side")
	case doc.Find("[data-ajax], [hx-get]").Length() > 0:
		result.JobLoadingMethod = models.LoadingAjax
	default:
		result.JobLoadingMethod = models.LoadingStatic
	}
}

func (a *Analyzer) guessSelectors(doc *goquery.Document, result *models.URLAnalysisResult) {
	for _, sel := range []string{".jobs-list", ".job-list", "ul.jobs", ".openings", ".positions"} {
		if doc.Find(sel).Length() > 0 {
			result.JobListSelector = sel
			break
		}
	}

	for _, sel := range []string{"a[href*='job']", "a[href*='career']", "a[href*='position']"} {
		if doc.Find(sel).Length() > 0 {
			result.JobLinkSelector = sel
			break
		}
	}
	if result.JobLinkPattern == "" && result.JobLinkSelector != "" {
		result.JobLinkPattern = `/(?:jobs?|careers?|positions?)/[\w-]+`
	}

	if doc.Find(".pagination, nav[aria-label='pagination']").Length() > 0 {
		result.PaginationType = "numbered"
		result.PaginationSelector = ".pagination"
	}
	if sel := doc.Find("form[role='search'], form.search"); sel.Length() > 0 {
		result.SearchFormSelector = "form[role='search']"
	}
}

func (a *Analyzer) sampleFromScripts(body string) []string {
	seen := make(map[string]bool)
	samples := make([]string, 0)
	for _, raw := range scriptURLPattern.FindAllString(body, -1) {
		candidate := strings.TrimRight(raw, ".,;)")
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		samples = append(samples, candidate)
		if len(samples) >= a.sampleLimit {
			break
		}
	}
	return samples
}

// buildPlan fills the ordered method preference and step guide the operator
// sees during review.
func (a *Analyzer) buildPlan(result *models.URLAnalysisResult) {
	if result.APIEndpointPattern != "" {
		result.ExtractionMethods = append(result.ExtractionMethods, "api")
		result.ExtractionSteps = append(result.ExtractionSteps,
			"Query the platform jobs API at "+result.APIEndpointPattern,
			"Match returned URLs against the job link pattern",
		)
	}
	if len(result.AllExtractedLinks) > 0 {
		result.ExtractionMethods = append(result.ExtractionMethods, "html")
		result.ExtractionSteps = append(result.ExtractionSteps,
			"Collect anchors from the listing page and filter to job paths",
		)
	}
	if result.JobLoadingMethod == models.LoadingSPA {
		result.ExtractionMethods = append(result.ExtractionMethods, "browser")
		result.ExtractionSteps = append(result.ExtractionSteps,
			"Render the page in a browser before collecting links",
		)
	}
	if len(result.ExtractionMethods) == 0 {
		result.ExtractionMethods = []string{"manual"}
		result.ExtractionSteps = append(result.ExtractionSteps,
			"Review the page in the bulk extract tool",
		)
	}
}

func (a *Analyzer) score(result *models.URLAnalysisResult) float64 {
	confidence := 0.2
	if result.Platform != "custom" {
		confidence += 0.3
	}
	if len(result.AllExtractedLinks) > 0 {
		confidence += 0.3
	} else if len(result.SampleJobLinks) > 0 {
		confidence += 0.1
	}
	if result.JobLoadingMethod == models.LoadingStatic || result.JobLoadingMethod == models.LoadingAPI {
		confidence += 0.1
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}
