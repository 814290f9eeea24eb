package bootstrap

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/job-scraper/internal/analyzer"
	"github.com/jonesrussell/job-scraper/internal/api"
	"github.com/jonesrussell/job-scraper/internal/config"
	"github.com/jonesrussell/job-scraper/internal/database"
	"github.com/jonesrussell/job-scraper/internal/extractor"
	"github.com/jonesrussell/job-scraper/internal/handlers"
	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/repository"
	"github.com/jonesrussell/job-scraper/internal/scrape"
)

// SetupRouter wires repositories, scrapers and handlers into the HTTP router.
func SetupRouter(cfg *config.Config, db *database.DB, log logger.Logger) *gin.Engine {
	taskRepo := repository.NewTaskRepository(db.DB(), log)
	queueRepo := repository.NewQueueRepository(db.DB(), log)
	postingRepo := repository.NewPostingRepository(db.DB(), log)

	ext := extractor.New(log, cfg.Scraper.FetchTimeout, cfg.Scraper.UserAgent)
	pageAnalyzer := analyzer.New(log, ext, cfg.Scraper.FetchTimeout, cfg.Scraper.UserAgent, cfg.Scraper.SampleLinkLimit)
	pageScraper := scrape.New(log, cfg.Scraper.FetchTimeout, cfg.Scraper.UserAgent)

	h := api.Handlers{
		Scrape:     handlers.NewScrapeHandler(pageScraper, postingRepo, log),
		Extraction: handlers.NewExtractionHandler(taskRepo, ext, log),
		Analysis:   handlers.NewAnalysisHandler(pageAnalyzer, log),
		Queue:      handlers.NewQueueHandler(queueRepo, log),
		Import:     handlers.NewImportHandler(queueRepo, log),
		Posting:    handlers.NewPostingHandler(postingRepo, log),
	}
	return api.NewRouter(h, cfg.Server.CORSOrigins, log)
}
