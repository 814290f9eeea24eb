package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
	"github.com/jonesrussell/job-scraper/internal/repository"
)

// TaskStore is the extraction-task persistence surface handlers need.
type TaskStore interface {
	Create(ctx context.Context, task *models.ExtractionTask) error
	GetByID(ctx context.Context, id string) (*models.ExtractionTask, error)
	List(ctx context.Context) ([]models.ExtractionTask, error)
}

// LinkExtractor runs synchronous link extraction.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, pageURL string) ([]models.ExtractedJobLink, error)
	FromAPI(ctx context.Context, endpoint, baseURL, linkPattern string) ([]models.ExtractedJobLink, error)
}

type ExtractionHandler struct {
	tasks     TaskStore
	extractor LinkExtractor
	logger    logger.Logger
}

func NewExtractionHandler(tasks TaskStore, ext LinkExtractor, log logger.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		tasks:     tasks,
		extractor: ext,
		logger:    log,
	}
}

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

// validTargetURL accepts only absolute http(s) URLs with a host.
func validTargetURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// ExtractAuto runs a synchronous auto-detect extraction against the listing
// page. Zero links is a successful response; the caller decides whether to
// fall back to a background task.
func (h *ExtractionHandler) ExtractAuto(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validTargetURL(req.URL) {
		fail(c, http.StatusBadRequest, "URL must be absolute http or https")
		return
	}

	links, err := h.extractor.ExtractLinks(c.Request.Context(), req.URL)
	if err != nil {
		h.logger.Error("Auto-detect extraction failed",
			logger.String("url", req.URL),
			logger.Error(err),
		)
		fail(c, http.StatusBadGateway, "Extraction failed: "+err.Error())
		return
	}

	body := gin.H{"links": links, "total": len(links)}
	if len(links) == 0 {
		body["message"] = "No job links found on this page"
	}
	ok(c, body)
}

// StartTask creates a pending extraction task for the background worker.
func (h *ExtractionHandler) StartTask(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validTargetURL(req.URL) {
		fail(c, http.StatusBadRequest, "URL must be absolute http or https")
		return
	}

	task := &models.ExtractionTask{SourceURL: req.URL}
	if err := h.tasks.Create(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to create extraction task",
			logger.String("url", req.URL),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to create extraction task")
		return
	}

	h.logger.Info("Extraction task created",
		logger.String("task_id", task.ID),
		logger.String("url", req.URL),
	)
	created(c, gin.H{"task": task})
}

func (h *ExtractionHandler) GetTask(c *gin.Context) {
	id := c.Param("id")

	task, err := h.tasks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fail(c, http.StatusNotFound, "Extraction task not found")
			return
		}
		h.logger.Error("Failed to load extraction task",
			logger.String("task_id", id),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to load extraction task")
		return
	}

	ok(c, gin.H{"task": task})
}

func (h *ExtractionHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list extraction tasks", logger.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to list extraction tasks")
		return
	}

	ok(c, gin.H{"tasks": tasks, "count": len(tasks)})
}

type apiExtractRequest struct {
	APIEndpointPattern string `json:"api_endpoint_pattern" binding:"required"`
	BaseURL            string `json:"base_url" binding:"required"`
	JobLinkPattern     string `json:"job_link_pattern"`
}

// ExtractAPI materializes job links from a platform jobs API endpoint,
// typically discovered by the career-page analyzer.
func (h *ExtractionHandler) ExtractAPI(c *gin.Context) {
	var req apiExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validTargetURL(req.BaseURL) {
		fail(c, http.StatusBadRequest, "base_url must be absolute http or https")
		return
	}

	links, err := h.extractor.FromAPI(c.Request.Context(), req.APIEndpointPattern, req.BaseURL, req.JobLinkPattern)
	if err != nil {
		h.logger.Error("API extraction failed",
			logger.String("endpoint", req.APIEndpointPattern),
			logger.Error(err),
		)
		fail(c, http.StatusBadGateway, "Extraction failed: "+err.Error())
		return
	}

	body := gin.H{"links": links, "total": len(links)}
	if len(links) == 0 {
		body["message"] = "No job links found on this page"
	}
	ok(c, body)
}
