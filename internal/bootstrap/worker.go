package bootstrap

import (
	"github.com/jonesrussell/job-scraper/internal/config"
	"github.com/jonesrussell/job-scraper/internal/database"
	"github.com/jonesrussell/job-scraper/internal/events"
	"github.com/jonesrussell/job-scraper/internal/extractor"
	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/repository"
	"github.com/jonesrussell/job-scraper/internal/scrape"
	"github.com/jonesrussell/job-scraper/internal/worker"
)

// SetupWorker builds the background worker that drains extraction tasks and
// import jobs.
func SetupWorker(cfg *config.Config, db *database.DB, publisher *events.Publisher, log logger.Logger) *worker.Worker {
	taskRepo := repository.NewTaskRepository(db.DB(), log)
	queueRepo := repository.NewQueueRepository(db.DB(), log)
	postingRepo := repository.NewPostingRepository(db.DB(), log)

	ext := extractor.New(log, cfg.Scraper.FetchTimeout, cfg.Scraper.UserAgent)
	pageScraper := scrape.New(log, cfg.Scraper.FetchTimeout, cfg.Scraper.UserAgent)

	return worker.New(
		log.With(logger.String("component", "worker")),
		taskRepo,
		queueRepo,
		postingRepo,
		ext,
		pageScraper,
		publisher,
		cfg.Scraper.WorkerTick,
	)
}
