// Package scrape fetches a single job posting page and pulls out the fields
// needed to prefill the create-job form.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/job-scraper/internal/httpclient"
	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

const maxDescriptionLen = 2000

// Scraper handles single-page job scraping
type Scraper struct {
	logger    logger.Logger
	client    *http.Client
	userAgent string
}

func New(log logger.Logger, timeout time.Duration, userAgent string) *Scraper {
	return &Scraper{
		logger:    log,
		client:    httpclient.New(&httpclient.Config{Timeout: timeout}),
		userAgent: userAgent,
	}
}

// Scrape fetches a job posting URL and extracts its fields. JSON-LD JobPosting
// data wins when present; OpenGraph and plain meta tags are the fallback.
func (s *Scraper) Scrape(ctx context.Context, jobURL string) (*models.ScrapedJob, error) {
	s.logger.Info("Scraping job posting",
		logger.String("url", jobURL),
	)

	parsedURL, err := url.Parse(jobURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	job := &models.ScrapedJob{URL: jobURL}

	if s.extractJSONLD(doc, job) {
		s.logger.Debug("Used JSON-LD job posting data",
			logger.String("url", jobURL),
		)
	} else {
		s.extractMetaTags(doc, parsedURL, job)
	}

	if job.Title == "" {
		return nil, fmt.Errorf("no job title found at %s", jobURL)
	}

	return job, nil
}

// jsonLDPosting is the subset of the schema.org JobPosting type we read.
type jsonLDPosting struct {
	Type               string `json:"@type"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	HiringOrganization struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
	JobLocation struct {
		Address struct {
			Locality string `json:"addressLocality"`
			Region   string `json:"addressRegion"`
		} `json:"address"`
	} `json:"jobLocation"`
}

func (s *Scraper) extractJSONLD(doc *goquery.Document, job *models.ScrapedJob) bool {
	found := false
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var posting jsonLDPosting
		if err := json.Unmarshal([]byte(sel.Text()), &posting); err != nil {
			return true
		}
		if !strings.EqualFold(posting.Type, "JobPosting") {
			return true
		}

		job.Title = strings.TrimSpace(posting.Title)
		job.Company = strings.TrimSpace(posting.HiringOrganization.Name)
		job.Description = cleanDescription(posting.Description)
		job.Location = joinLocation(
			posting.JobLocation.Address.Locality,
			posting.JobLocation.Address.Region,
		)
		found = job.Title != ""
		return !found
	})
	return found
}

func (s *Scraper) extractMetaTags(doc *goquery.Document, parsedURL *url.URL, job *models.ScrapedJob) {
	// Title: OG title first, then the title tag with site suffix trimmed.
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && ogTitle != "" {
		job.Title = strings.TrimSpace(ogTitle)
	} else if title := doc.Find("title").First().Text(); title != "" {
		job.Title = trimTitleSuffix(strings.TrimSpace(title))
	} else if h1 := doc.Find("h1").First().Text(); h1 != "" {
		job.Title = strings.TrimSpace(h1)
	}

	if ogSite, exists := doc.Find("meta[property='og:site_name']").Attr("content"); exists && ogSite != "" {
		job.Company = strings.TrimSpace(ogSite)
	} else {
		job.Company = parsedURL.Host
	}

	if desc, exists := doc.Find("meta[property='og:description']").Attr("content"); exists && desc != "" {
		job.Description = cleanDescription(desc)
	} else if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		job.Description = cleanDescription(desc)
	}

	for _, sel := range []string{".job-location", "[data-location]", ".location"} {
		if loc := strings.TrimSpace(doc.Find(sel).First().Text()); loc != "" {
			job.Location = loc
			break
		}
	}
}

// trimTitleSuffix drops a trailing " | Company" or " - Company" segment.
func trimTitleSuffix(title string) string {
	for _, sep := range []string{" | ", " - ", " – "} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return title
}

func cleanDescription(raw string) string {
	// JSON-LD descriptions often carry HTML markup.
	if strings.Contains(raw, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			raw = doc.Text()
		}
	}
	cleaned := strings.Join(strings.Fields(raw), " ")
	if len(cleaned) > maxDescriptionLen {
		cleaned = cleaned[:maxDescriptionLen]
	}
	return cleaned
}

func joinLocation(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
