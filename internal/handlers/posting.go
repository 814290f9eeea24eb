package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

// PostingReader lists created postings.
type PostingReader interface {
	List(ctx context.Context) ([]models.JobPosting, error)
}

type PostingHandler struct {
	postings PostingReader
	logger   logger.Logger
}

func NewPostingHandler(postings PostingReader, log logger.Logger) *PostingHandler {
	return &PostingHandler{
		postings: postings,
		logger:   log,
	}
}

func (h *PostingHandler) List(c *gin.Context) {
	postings, err := h.postings.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list job postings", logger.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to list job postings")
		return
	}

	ok(c, gin.H{"postings": postings, "count": len(postings)})
}
