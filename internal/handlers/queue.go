package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
	"github.com/jonesrussell/job-scraper/internal/repository"
)

// QueueStore is the import-queue persistence surface handlers need.
type QueueStore interface {
	CreateWithJobs(ctx context.Context, sourceURL string, urls, titles []string) (*models.ImportQueue, error)
	GetByID(ctx context.Context, id string) (*models.ImportQueue, error)
	ListAll(ctx context.Context) ([]models.ImportQueue, error)
	CancelQueue(ctx context.Context, id string) error
	CancelJob(ctx context.Context, queueID, jobID string) error
	DeleteQueue(ctx context.Context, id string) error
	RetryJob(ctx context.Context, queueID, jobID string) error
	RetryFailedJobs(ctx context.Context, queueID string) (int, error)
}

type QueueHandler struct {
	queues QueueStore
	logger logger.Logger
}

func NewQueueHandler(queues QueueStore, log logger.Logger) *QueueHandler {
	return &QueueHandler{
		queues: queues,
		logger: log,
	}
}

type createQueueRequest struct {
	SourceURL string   `json:"source_url"`
	URLs      []string `json:"urls" binding:"required"`
	Titles    []string `json:"titles"`
}

// Create submits a batch of URLs as one trackable import queue. Titles is
// parallel to URLs; a nil titles array means no titles are known.
func (h *QueueHandler) Create(c *gin.Context) {
	var req createQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		fail(c, http.StatusBadRequest, "urls must be non-empty")
		return
	}
	if req.Titles == nil {
		req.Titles = make([]string, len(req.URLs))
	}
	if len(req.Titles) != len(req.URLs) {
		fail(c, http.StatusBadRequest, "titles must be parallel to urls")
		return
	}
	for _, u := range req.URLs {
		if !validTargetURL(u) {
			fail(c, http.StatusBadRequest, "every URL must be absolute http or https")
			return
		}
	}

	queue, err := h.queues.CreateWithJobs(c.Request.Context(), req.SourceURL, req.URLs, req.Titles)
	if err != nil {
		h.logger.Error("Failed to create import queue",
			logger.String("source_url", req.SourceURL),
			logger.Int("url_count", len(req.URLs)),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to create import queue")
		return
	}

	h.logger.Info("Import queue created",
		logger.String("queue_id", queue.ID),
		logger.Int("total_jobs", queue.TotalJobs),
	)
	created(c, gin.H{"queue": queue})
}

func (h *QueueHandler) List(c *gin.Context) {
	queues, err := h.queues.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list import queues", logger.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to list import queues")
		return
	}

	ok(c, gin.H{"queues": queues, "count": len(queues)})
}

func (h *QueueHandler) Get(c *gin.Context) {
	id := c.Param("id")

	queue, err := h.queues.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fail(c, http.StatusNotFound, "Import queue not found")
			return
		}
		h.logger.Error("Failed to load import queue",
			logger.String("queue_id", id),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to load import queue")
		return
	}

	ok(c, gin.H{"queue": queue})
}

// Cancel cancels a queue and all of its non-terminal jobs. Rejected once the
// queue is already terminal.
func (h *QueueHandler) Cancel(c *gin.Context) {
	id := c.Param("id")

	if err := h.queues.CancelQueue(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			fail(c, http.StatusNotFound, "Import queue not found")
		case errors.Is(err, repository.ErrQueueTerminal):
			fail(c, http.StatusConflict, "Queue has already finished")
		default:
			h.logger.Error("Failed to cancel queue",
				logger.String("queue_id", id),
				logger.Error(err),
			)
			fail(c, http.StatusInternalServerError, "Failed to cancel queue")
		}
		return
	}

	h.logger.Info("Import queue cancelled", logger.String("queue_id", id))
	ok(c, gin.H{})
}

// CancelJob cancels one pending job.
func (h *QueueHandler) CancelJob(c *gin.Context) {
	queueID := c.Param("id")
	jobID := c.Param("jobId")

	if err := h.queues.CancelJob(c.Request.Context(), queueID, jobID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			fail(c, http.StatusNotFound, "Import job not found")
		case errors.Is(err, repository.ErrJobNotPending):
			fail(c, http.StatusConflict, "Only pending jobs can be cancelled")
		default:
			h.logger.Error("Failed to cancel import job",
				logger.String("queue_id", queueID),
				logger.String("job_id", jobID),
				logger.Error(err),
			)
			fail(c, http.StatusInternalServerError, "Failed to cancel job")
		}
		return
	}

	ok(c, gin.H{})
}

// Delete removes a terminal queue from future snapshots.
func (h *QueueHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.queues.DeleteQueue(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			fail(c, http.StatusNotFound, "Import queue not found")
		case errors.Is(err, repository.ErrQueueNotTerminal):
			fail(c, http.StatusConflict, "Queue is still active")
		default:
			h.logger.Error("Failed to delete queue",
				logger.String("queue_id", id),
				logger.Error(err),
			)
			fail(c, http.StatusInternalServerError, "Failed to delete queue")
		}
		return
	}

	h.logger.Info("Import queue deleted", logger.String("queue_id", id))
	c.JSON(http.StatusNoContent, nil)
}

// RetryJob re-arms a single failed job regardless of the queue's own status.
func (h *QueueHandler) RetryJob(c *gin.Context) {
	queueID := c.Param("id")
	jobID := c.Param("jobId")

	if err := h.queues.RetryJob(c.Request.Context(), queueID, jobID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			fail(c, http.StatusNotFound, "Import job not found")
		case errors.Is(err, repository.ErrJobNotFailed):
			fail(c, http.StatusConflict, "Only failed jobs can be retried")
		default:
			h.logger.Error("Failed to retry import job",
				logger.String("queue_id", queueID),
				logger.String("job_id", jobID),
				logger.Error(err),
			)
			fail(c, http.StatusInternalServerError, "Failed to retry job")
		}
		return
	}

	ok(c, gin.H{})
}

// RetryFailed re-arms every failed job in the queue. Rejected while the queue
// is processing so the retry cannot race the active worker.
func (h *QueueHandler) RetryFailed(c *gin.Context) {
	id := c.Param("id")

	queue, err := h.queues.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fail(c, http.StatusNotFound, "Import queue not found")
			return
		}
		h.logger.Error("Failed to load import queue",
			logger.String("queue_id", id),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to retry failed jobs")
		return
	}
	if queue.Status == models.StatusProcessing {
		fail(c, http.StatusConflict, "Queue is still processing")
		return
	}

	retried, err := h.queues.RetryFailedJobs(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to retry failed jobs",
			logger.String("queue_id", id),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to retry failed jobs")
		return
	}

	h.logger.Info("Retried failed jobs",
		logger.String("queue_id", id),
		logger.Int("retried", retried),
	)
	ok(c, gin.H{"retried": retried})
}
