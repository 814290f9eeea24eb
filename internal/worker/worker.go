// Package worker runs the background loops that drain extraction tasks and
// import jobs. Claims go through the repositories' SKIP LOCKED queries, so
// multiple replicas can run the same loops safely.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/job-scraper/internal/events"
	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
	"github.com/jonesrussell/job-scraper/internal/repository"
)

// TaskStore is the extraction-task surface the worker needs.
type TaskStore interface {
	ClaimNext(ctx context.Context) (*models.ExtractionTask, error)
	Complete(ctx context.Context, id string, links []models.ExtractedJobLink) error
	Fail(ctx context.Context, id, msg string) error
}

// QueueStore is the import-queue surface the worker needs.
type QueueStore interface {
	ClaimNextJob(ctx context.Context) (*models.ImportJob, error)
	CompleteJob(ctx context.Context, queueID, jobID string) error
	FailJob(ctx context.Context, queueID, jobID, msg string) error
	GetByID(ctx context.Context, id string) (*models.ImportQueue, error)
}

// PostingStore is the job-posting surface the worker needs.
type PostingStore interface {
	Create(ctx context.Context, posting *models.JobPosting) error
	ExistsByURL(ctx context.Context, url string) (bool, error)
}

// LinkExtractor extracts job links from a listing page.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, pageURL string) ([]models.ExtractedJobLink, error)
}

// JobScraper scrapes a single job posting page.
type JobScraper interface {
	Scrape(ctx context.Context, jobURL string) (*models.ScrapedJob, error)
}

// Worker drains extraction tasks and import jobs on a fixed tick.
type Worker struct {
	logger    logger.Logger
	tasks     TaskStore
	queues    QueueStore
	postings  PostingStore
	extractor LinkExtractor
	scraper   JobScraper
	publisher *events.Publisher
	tick      time.Duration
}

func New(
	log logger.Logger,
	tasks TaskStore,
	queues QueueStore,
	postings PostingStore,
	ext LinkExtractor,
	scraper JobScraper,
	publisher *events.Publisher,
	tick time.Duration,
) *Worker {
	return &Worker{
		logger:    log,
		tasks:     tasks,
		queues:    queues,
		postings:  postings,
		extractor: ext,
		scraper:   scraper,
		publisher: publisher,
		tick:      tick,
	}
}

// Run blocks until ctx is cancelled, draining both work types every tick.
// Each tick drains everything claimable so a burst clears in one pass.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Worker started",
		logger.Duration("tick", w.tick),
	)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopped")
			return
		case <-ticker.C:
			w.drainTasks(ctx)
			w.drainImportJobs(ctx)
		}
	}
}

func (w *Worker) drainTasks(ctx context.Context) {
	for {
		task, err := w.tasks.ClaimNext(ctx)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				w.logger.Error("Failed to claim extraction task", logger.Error(err))
			}
			return
		}
		w.runTask(ctx, task)
	}
}

// runTask executes one claimed extraction task. An empty link list is a
// successful completion; consumers decide what "no links" means to them.
func (w *Worker) runTask(ctx context.Context, task *models.ExtractionTask) {
	w.logger.Info("Running extraction task",
		logger.String("task_id", task.ID),
		logger.String("source_url", task.SourceURL),
	)

	links, err := w.extractor.ExtractLinks(ctx, task.SourceURL)
	if err != nil {
		if failErr := w.tasks.Fail(ctx, task.ID, err.Error()); failErr != nil {
			w.logger.Error("Failed to mark task failed",
				logger.String("task_id", task.ID),
				logger.Error(failErr),
			)
			return
		}
		w.publisher.PublishAsync(events.ScraperEvent{
			EventType: events.EventTaskFailed,
			SubjectID: task.ID,
			Payload:   map[string]any{"error": err.Error()},
		})
		return
	}

	if err := w.tasks.Complete(ctx, task.ID, links); err != nil {
		w.logger.Error("Failed to mark task completed",
			logger.String("task_id", task.ID),
			logger.Error(err),
		)
		return
	}

	w.publisher.PublishAsync(events.ScraperEvent{
		EventType: events.EventTaskCompleted,
		SubjectID: task.ID,
		Payload:   map[string]any{"link_count": len(links)},
	})
}

func (w *Worker) drainImportJobs(ctx context.Context) {
	for {
		job, err := w.queues.ClaimNextJob(ctx)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				w.logger.Error("Failed to claim import job", logger.Error(err))
			}
			return
		}
		w.runImportJob(ctx, job)
	}
}

// runImportJob imports one URL. Failed jobs stay failed until the operator
// retries them; there is no automatic retry.
func (w *Worker) runImportJob(ctx context.Context, job *models.ImportJob) {
	w.logger.Info("Running import job",
		logger.String("job_id", job.ID),
		logger.String("queue_id", job.QueueID),
		logger.String("url", job.URL),
	)

	exists, err := w.postings.ExistsByURL(ctx, job.URL)
	if err != nil {
		w.failImportJob(ctx, job, "check existing posting: "+err.Error())
		return
	}
	if exists {
		// Duplicate of an already-imported posting. Completing without a
		// second posting keeps retried batches idempotent.
		w.logger.Info("Skipping already-imported URL",
			logger.String("job_id", job.ID),
			logger.String("url", job.URL),
		)
		w.completeImportJob(ctx, job)
		return
	}

	scraped, err := w.scraper.Scrape(ctx, job.URL)
	if err != nil {
		if job.Title == "" {
			w.failImportJob(ctx, job, err.Error())
			return
		}
		// The batch carried a title for this URL; create a minimal posting.
		scraped = &models.ScrapedJob{URL: job.URL, Title: job.Title}
	}

	posting := &models.JobPosting{
		URL:           scraped.URL,
		Title:         scraped.Title,
		Company:       scraped.Company,
		Location:      scraped.Location,
		Description:   scraped.Description,
		SourceQueueID: &job.QueueID,
	}
	if err := w.postings.Create(ctx, posting); err != nil {
		w.failImportJob(ctx, job, "create posting: "+err.Error())
		return
	}

	w.publisher.PublishAsync(events.ScraperEvent{
		EventType: events.EventJobCreated,
		SubjectID: posting.ID,
		Payload:   map[string]any{"queue_id": job.QueueID, "url": posting.URL},
	})
	w.completeImportJob(ctx, job)
}

func (w *Worker) completeImportJob(ctx context.Context, job *models.ImportJob) {
	if err := w.queues.CompleteJob(ctx, job.QueueID, job.ID); err != nil {
		w.logger.Error("Failed to mark import job completed",
			logger.String("job_id", job.ID),
			logger.Error(err),
		)
		return
	}
	w.signalQueueIfDone(ctx, job.QueueID)
}

func (w *Worker) failImportJob(ctx context.Context, job *models.ImportJob, msg string) {
	w.logger.Warn("Import job failed",
		logger.String("job_id", job.ID),
		logger.String("queue_id", job.QueueID),
		logger.String("error", msg),
	)
	if err := w.queues.FailJob(ctx, job.QueueID, job.ID, msg); err != nil {
		w.logger.Error("Failed to mark import job failed",
			logger.String("job_id", job.ID),
			logger.Error(err),
		)
		return
	}
	w.signalQueueIfDone(ctx, job.QueueID)
}

func (w *Worker) signalQueueIfDone(ctx context.Context, queueID string) {
	queue, err := w.queues.GetByID(ctx, queueID)
	if err != nil {
		w.logger.Error("Failed to load queue after job transition",
			logger.String("queue_id", queueID),
			logger.Error(err),
		)
		return
	}
	if !queue.Status.Terminal() {
		return
	}

	w.publisher.PublishAsync(events.ScraperEvent{
		EventType: events.EventQueueCompleted,
		SubjectID: queue.ID,
		Payload: map[string]any{
			"status":    string(queue.Status),
			"completed": queue.Completed,
			"failed":    queue.Failed,
			"cancelled": queue.Cancelled,
		},
	})
}
