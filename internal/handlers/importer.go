package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/importer"
	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

const maxUploadBytes = 10 << 20

type ImportHandler struct {
	queues QueueStore
	logger logger.Logger
}

func NewImportHandler(queues QueueStore, log logger.Logger) *ImportHandler {
	return &ImportHandler{
		queues: queues,
		logger: log,
	}
}

// ImportExcel parses an uploaded workbook of job URLs and creates an import
// queue from the valid rows. Row-level validation errors are returned
// alongside the queue; only a workbook with zero valid rows is rejected.
func (h *ImportHandler) ImportExcel(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "Missing file upload")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "Failed to read upload")
		return
	}
	defer file.Close()

	rows, importErrs, err := importer.ParseWorkbook(file)
	if err != nil {
		h.logger.Warn("Failed to parse workbook",
			logger.String("filename", fileHeader.Filename),
			logger.Error(err),
		)
		fail(c, http.StatusBadRequest, "Not a valid Excel workbook")
		return
	}
	if len(rows) == 0 {
		fail(c, http.StatusBadRequest, "No valid job URLs in workbook")
		return
	}

	urls := make([]string, len(rows))
	titles := make([]string, len(rows))
	for i, row := range rows {
		urls[i] = row.URL
		titles[i] = row.Title
	}

	queue, err := h.queues.CreateWithJobs(c.Request.Context(), models.SourceExcelImport, urls, titles)
	if err != nil {
		h.logger.Error("Failed to create queue from workbook",
			logger.String("filename", fileHeader.Filename),
			logger.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Failed to create import queue")
		return
	}

	h.logger.Info("Workbook imported",
		logger.String("filename", fileHeader.Filename),
		logger.String("queue_id", queue.ID),
		logger.Int("rows", len(rows)),
		logger.Int("row_errors", len(importErrs)),
	)

	body := gin.H{"queue": queue}
	if len(importErrs) > 0 {
		body["row_errors"] = importErrs
	}
	created(c, body)
}
