// Package extractor finds candidate job links on listing pages. It handles
// HTML pages via goquery and JSON API responses via URL pattern scanning in
// a single auto-detect round trip.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/job-scraper/internal/httpclient"
	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

// maxBodyBytes caps how much of a listing page is read.
const maxBodyBytes = 5 << 20

// absoluteURLPattern matches absolute http(s) URLs embedded in JSON payloads.
var absoluteURLPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+`)

// jobPathHints are path fragments that suggest an anchor points at a job
// posting rather than site navigation.
var jobPathHints = []string{
	"job", "career", "position", "opening", "vacanc", "opportunit", "role",
}

type Extractor struct {
	logger    logger.Logger
	client    *http.Client
	userAgent string
}

func New(log logger.Logger, timeout time.Duration, userAgent string) *Extractor {
	return &Extractor{
		logger:    log,
		client:    httpclient.New(&httpclient.Config{Timeout: timeout}),
		userAgent: userAgent,
	}
}

// ExtractLinks fetches a listing page and returns candidate job links in
// document order, deduplicated by URL. JSON responses are scanned for
// absolute job URLs; HTML is parsed for anchors. An empty result is not an
// error here; classification is left to the caller.
func (e *Extractor) ExtractLinks(ctx context.Context, pageURL string) ([]models.ExtractedJobLink, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	body, contentType, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var links []models.ExtractedJobLink
	if isJSONContent(contentType, body) {
		links = e.linksFromJSON(body, base, "")
	} else {
		links, err = e.linksFromHTML(body, base)
		if err != nil {
			return nil, err
		}
	}

	e.logger.Info("Link extraction complete",
		logger.String("url", pageURL),
		logger.Int("links", len(links)),
	)

	return links, nil
}

// FromAPI fetches a JSON jobs endpoint directly and materializes concrete
// job URLs, optionally filtered by linkPattern. Relative URLs in the payload
// are resolved against baseURL.
func (e *Extractor) FromAPI(ctx context.Context, endpoint, baseURL, linkPattern string) ([]models.ExtractedJobLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	body, _, err := e.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return e.linksFromJSON(body, base, linkPattern), nil
}

func (e *Extractor) fetch(ctx context.Context, target string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func (e *Extractor) linksFromHTML(body []byte, base *url.URL) ([]models.ExtractedJobLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	links := make([]models.ExtractedJobLink, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		if !looksLikeJobLink(resolved, base) {
			return
		}

		seen[resolved] = true
		links = append(links, models.ExtractedJobLink{
			URL:   resolved,
			Title: strings.TrimSpace(s.Text()),
		})
	})

	return links, nil
}

func (e *Extractor) linksFromJSON(body []byte, base *url.URL, linkPattern string) []models.ExtractedJobLink {
	var pattern *regexp.Regexp
	if linkPattern != "" {
		compiled, err := regexp.Compile(linkPattern)
		if err != nil {
			e.logger.Warn("Invalid job link pattern, matching by path hints",
				logger.String("pattern", linkPattern),
				logger.Error(err),
			)
		} else {
			pattern = compiled
		}
	}

	seen := make(map[string]bool)
	links := make([]models.ExtractedJobLink, 0)
	for _, raw := range absoluteURLPattern.FindAllString(string(body), -1) {
		candidate := strings.TrimRight(raw, ".,;)")
		if seen[candidate] {
			continue
		}

		switch {
		case pattern != nil:
			if !pattern.MatchString(candidate) {
				continue
			}
		case !looksLikeJobLink(candidate, base):
			continue
		}

		seen[candidate] = true
		links = append(links, models.ExtractedJobLink{URL: candidate})
	}

	return links
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// looksLikeJobLink keeps links on the same site (www-insensitive) whose path
// or query suggests a job posting, and discards the listing page itself.
func looksLikeJobLink(candidate string, base *url.URL) bool {
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	if !sameSite(parsed.Host, base.Host) {
		return false
	}
	if parsed.Path == base.Path && parsed.RawQuery == base.RawQuery {
		return false
	}

	haystack := strings.ToLower(parsed.Path + "?" + parsed.RawQuery)
	for _, hint := range jobPathHints {
		if strings.Contains(haystack, hint) {
			return true
		}
	}
	return false
}

func sameSite(a, b string) bool {
	trim := func(h string) string {
		h = strings.ToLower(h)
		if i := strings.Index(h, ":"); i >= 0 {
			h = h[:i]
		}
		return strings.TrimPrefix(h, "www.")
	}
	return trim(a) == trim(b)
}

func isJSONContent(contentType string, body []byte) bool {
	if strings.Contains(contentType, "application/json") {
		return true
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return json.Valid([]byte(trimmed))
}
