// Package orchestrator drives the scraper API from the operator's side:
// typed client calls, per-entity pollers, and controllers that track
// extraction tasks and import queues without trusting local state over the
// server's.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/job-scraper/internal/httpclient"
	"github.com/jonesrussell/job-scraper/internal/models"
)

const defaultClientTimeout = 30 * time.Second

// Client is a typed client for the scraper API. Every response is decoded
// from the {"success": ...} envelope; transport errors and non-2xx statuses
// come back as errors, never panics.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(&httpclient.Config{Timeout: defaultClientTimeout}),
	}
}

// envelope is the common response wrapper. Endpoint-specific fields are
// decoded separately from the raw body.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		// Some acks (204) carry no body; a decode failure on an error
		// status should not mask the status itself.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if env.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, env.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if len(raw) > 0 && !env.Success {
		if env.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, env.Error)
		}
		return fmt.Errorf("%s %s: request not successful", method, path)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ExtractAuto runs the synchronous auto-detect extraction. An empty link list
// is not an error at this layer.
func (c *Client) ExtractAuto(ctx context.Context, pageURL string) ([]models.ExtractedJobLink, error) {
	var resp struct {
		Links []models.ExtractedJobLink `json:"links"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/extract/auto", map[string]string{"url": pageURL}, &resp); err != nil {
		return nil, err
	}
	return resp.Links, nil
}

// StartExtraction creates a background extraction task.
func (c *Client) StartExtraction(ctx context.Context, pageURL string) (*models.ExtractionTask, error) {
	var resp struct {
		Task *models.ExtractionTask `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/extract/tasks", map[string]string{"url": pageURL}, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// GetExtractionTask is an idempotent status read.
func (c *Client) GetExtractionTask(ctx context.Context, id string) (*models.ExtractionTask, error) {
	var resp struct {
		Task *models.ExtractionTask `json:"task"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/extract/tasks/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// ListExtractionTasks returns every known task, used to resume in-flight
// work after a restart.
func (c *Client) ListExtractionTasks(ctx context.Context) ([]models.ExtractionTask, error) {
	var resp struct {
		Tasks []models.ExtractionTask `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/extract/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// ExtractFromAPI materializes job links from a platform API endpoint
// discovered by analysis.
func (c *Client) ExtractFromAPI(ctx context.Context, endpointPattern, baseURL, linkPattern string) ([]models.ExtractedJobLink, error) {
	var resp struct {
		Links []models.ExtractedJobLink `json:"links"`
	}
	req := map[string]string{
		"api_endpoint_pattern": endpointPattern,
		"base_url":             baseURL,
		"job_link_pattern":     linkPattern,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/extract/api", req, &resp); err != nil {
		return nil, err
	}
	return resp.Links, nil
}

// AnalyzeCareerPage runs the one-shot career page analysis.
func (c *Client) AnalyzeCareerPage(ctx context.Context, pageURL string) (*models.URLAnalysisResult, error) {
	var resp struct {
		Analysis *models.URLAnalysisResult `json:"analysis"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyze", map[string]string{"url": pageURL}, &resp); err != nil {
		return nil, err
	}
	return resp.Analysis, nil
}

type createQueueRequest struct {
	SourceURL string   `json:"source_url"`
	URLs      []string `json:"urls"`
	Titles    []string `json:"titles"`
}

// CreateImportQueue submits a batch of URLs as one trackable queue. Titles is
// parallel to URLs and may contain empty strings.
func (c *Client) CreateImportQueue(ctx context.Context, sourceURL string, urls, titles []string) (*models.ImportQueue, error) {
	var resp struct {
		Queue *models.ImportQueue `json:"queue"`
	}
	req := createQueueRequest{SourceURL: sourceURL, URLs: urls, Titles: titles}
	if err := c.do(ctx, http.MethodPost, "/api/v1/queues", req, &resp); err != nil {
		return nil, err
	}
	return resp.Queue, nil
}

// GetAllQueues returns the full queue snapshot.
func (c *Client) GetAllQueues(ctx context.Context) ([]models.ImportQueue, error) {
	var resp struct {
		Queues []models.ImportQueue `json:"queues"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/queues", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Queues, nil
}

func (c *Client) CancelQueue(ctx context.Context, queueID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/queues/"+queueID+"/cancel", nil, nil)
}

func (c *Client) CancelJob(ctx context.Context, queueID, jobID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/queues/"+queueID+"/jobs/"+jobID+"/cancel", nil, nil)
}

func (c *Client) DeleteQueue(ctx context.Context, queueID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/queues/"+queueID, nil, nil)
}

func (c *Client) RetryJob(ctx context.Context, queueID, jobID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/queues/"+queueID+"/jobs/"+jobID+"/retry", nil, nil)
}

// RetryFailedJobs re-arms every failed job in the queue, returning how many
// were re-armed.
func (c *Client) RetryFailedJobs(ctx context.Context, queueID string) (int, error) {
	var resp struct {
		Retried int `json:"retried"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/queues/"+queueID+"/retry-failed", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Retried, nil
}

// PreviewJob scrapes a single posting page for review.
func (c *Client) PreviewJob(ctx context.Context, jobURL string) (*models.ScrapedJob, []string, error) {
	var resp struct {
		ScrapedJob *models.ScrapedJob `json:"scraped_job"`
		Warnings   []string           `json:"warnings"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/scrape/preview", map[string]string{"url": jobURL}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.ScrapedJob, resp.Warnings, nil
}

// CreateJob persists a previewed job, with optional operator edits.
func (c *Client) CreateJob(ctx context.Context, scraped models.ScrapedJob, edits *models.ScrapedJob) (*models.JobPosting, error) {
	var resp struct {
		Job *models.JobPosting `json:"job"`
	}
	req := map[string]any{"scraped_data": scraped}
	if edits != nil {
		req["edits"] = edits
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/scrape/create", req, &resp); err != nil {
		return nil, err
	}
	return resp.Job, nil
}
