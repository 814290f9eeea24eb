package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

// PageAnalyzer characterizes a career page in one shot.
type PageAnalyzer interface {
	Analyze(ctx context.Context, pageURL string) (*models.URLAnalysisResult, error)
}

type AnalysisHandler struct {
	analyzer PageAnalyzer
	logger   logger.Logger
}

func NewAnalysisHandler(analyzer PageAnalyzer, log logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		logger:   log,
	}
}

// Analyze runs a single request/response career-page analysis. Analysis
// failure is reported in the envelope rather than as a 5xx so callers keep
// the manual hand-off path.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validTargetURL(req.URL) {
		fail(c, http.StatusBadRequest, "URL must be absolute http or https")
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		h.logger.Warn("Career page analysis failed",
			logger.String("url", req.URL),
			logger.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Analysis failed: " + err.Error()})
		return
	}

	ok(c, gin.H{"analysis": analysis})
}
