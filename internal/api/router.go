package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/handlers"
	"github.com/jonesrussell/job-scraper/internal/logger"
)

const (
	corsMaxAgeHours = 12
)

// Handlers bundles the route handlers the router wires up.
type Handlers struct {
	Scrape     *handlers.ScrapeHandler
	Extraction *handlers.ExtractionHandler
	Analysis   *handlers.AnalysisHandler
	Queue      *handlers.QueueHandler
	Import     *handlers.ImportHandler
	Posting    *handlers.PostingHandler
}

func NewRouter(h Handlers, allowOrigins []string, log logger.Logger) *gin.Engine {
	router := gin.New()

	// CORS middleware - must be first
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"X-CSRF-Token", "Authorization", "accept", "origin",
			"Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	// Middleware
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1
	v1 := router.Group("/api/v1")

	// Single-job scraping
	scrape := v1.Group("/scrape")
	scrape.POST("/preview", h.Scrape.Preview)
	scrape.POST("/create", h.Scrape.Create)

	// Link extraction
	extract := v1.Group("/extract")
	extract.POST("/auto", h.Extraction.ExtractAuto)
	extract.POST("/api", h.Extraction.ExtractAPI)
	extract.POST("/tasks", h.Extraction.StartTask)
	extract.GET("/tasks", h.Extraction.ListTasks)
	extract.GET("/tasks/:id", h.Extraction.GetTask)

	// Career page analysis
	v1.POST("/analyze", h.Analysis.Analyze)

	// Import queues
	queues := v1.Group("/queues")
	queues.POST("", h.Queue.Create)
	queues.GET("", h.Queue.List)
	queues.GET("/:id", h.Queue.Get)
	queues.POST("/:id/cancel", h.Queue.Cancel)
	queues.DELETE("/:id", h.Queue.Delete)
	queues.POST("/:id/retry-failed", h.Queue.RetryFailed)
	queues.POST("/:id/jobs/:jobId/cancel", h.Queue.CancelJob)
	queues.POST("/:id/jobs/:jobId/retry", h.Queue.RetryJob)

	// Bulk spreadsheet import
	v1.POST("/import/excel", h.Import.ImportExcel)

	// Created postings
	v1.GET("/postings", h.Posting.List)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
