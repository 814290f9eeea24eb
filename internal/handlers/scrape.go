package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

// PageScraper previews a single job posting page.
type PageScraper interface {
	Scrape(ctx context.Context, jobURL string) (*models.ScrapedJob, error)
}

// PostingWriter persists confirmed job postings.
type PostingWriter interface {
	Create(ctx context.Context, posting *models.JobPosting) error
	ExistsByURL(ctx context.Context, url string) (bool, error)
}

type ScrapeHandler struct {
	scraper  PageScraper
	postings PostingWriter
	logger   logger.Logger
}

func NewScrapeHandler(scraper PageScraper, postings PostingWriter, log logger.Logger) *ScrapeHandler {
	return &ScrapeHandler{
		scraper:  scraper,
		postings: postings,
		logger:   log,
	}
}

// Preview scrapes a single job page and returns the fields for review.
// Nothing is persisted; Create commits the reviewed data.
func (h *ScrapeHandler) Preview(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validTargetURL(req.URL) {
		fail(c, http.StatusBadRequest, "URL must be absolute http or https")
		return
	}

	job, err := h.scraper.Scrape(c.Request.Context(), req.URL)
	if err != nil {
		h.logger.Warn("Job preview scrape failed",
			logger.String("url", req.URL),
			logger.Error(err),
		)
		fail(c, http.StatusBadGateway, "Scrape failed: "+err.Error())
		return
	}

	warnings := make([]string, 0)
	if job.Company == "" {
		warnings = append(warnings, "no company found")
	}
	if job.Location == "" {
		warnings = append(warnings, "no location found")
	}
	if job.Description == "" {
		warnings = append(warnings, "no description found")
	}

	ok(c, gin.H{"scraped_job": job, "warnings": warnings})
}

type createJobRequest struct {
	ScrapedData models.ScrapedJob  `json:"scraped_data" binding:"required"`
	Edits       *models.ScrapedJob `json:"edits"`
}

// Create persists a job posting from previewed scrape data, applying any
// operator edits field by field.
func (h *ScrapeHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	data := req.ScrapedData
	if req.Edits != nil {
		applyEdits(&data, req.Edits)
	}

	if strings.TrimSpace(data.Title) == "" || !validTargetURL(data.URL) {
		fail(c, http.StatusBadRequest, "Job title and a valid URL are required")
		return
	}

	exists, err := h.postings.ExistsByURL(c.Request.Context(), data.URL)
	if err != nil {
		h.logger.Error("Failed to check existing posting",
			logger.String("url", data.URL),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to create job")
		return
	}
	if exists {
		fail(c, http.StatusConflict, "A job with this URL already exists")
		return
	}

	posting := &models.JobPosting{
		URL:         data.URL,
		Title:       data.Title,
		Company:     data.Company,
		Location:    data.Location,
		Description: data.Description,
	}
	if err := h.postings.Create(c.Request.Context(), posting); err != nil {
		h.logger.Error("Failed to create job posting",
			logger.String("url", data.URL),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to create job")
		return
	}

	h.logger.Info("Job posting created",
		logger.String("posting_id", posting.ID),
		logger.String("url", posting.URL),
	)
	created(c, gin.H{"job": posting})
}

func applyEdits(data, edits *models.ScrapedJob) {
	if edits.Title != "" {
		data.Title = edits.Title
	}
	if edits.Company != "" {
		data.Company = edits.Company
	}
	if edits.Location != "" {
		data.Location = edits.Location
	}
	if edits.Description != "" {
		data.Description = edits.Description
	}
}
