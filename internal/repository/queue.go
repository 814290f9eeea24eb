package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

var (
	// ErrQueueNotTerminal is returned when deleting a queue that is still active.
	ErrQueueNotTerminal = errors.New("queue is not in a terminal state")
	// ErrJobNotPending is returned when cancelling a job that has already started.
	ErrJobNotPending = errors.New("job is not pending")
	// ErrJobNotFailed is returned when retrying a job that has not failed.
	ErrJobNotFailed = errors.New("job is not failed")
	// ErrQueueTerminal is returned when cancelling a queue that already finished.
	ErrQueueTerminal = errors.New("queue is already terminal")
)

type QueueRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewQueueRepository(db *sql.DB, log logger.Logger) *QueueRepository {
	return &QueueRepository{
		db:     db,
		logger: log,
	}
}

// CreateWithJobs inserts a queue and all of its jobs in one transaction.
// Titles is parallel to URLs and may contain empty strings.
func (r *QueueRepository) CreateWithJobs(ctx context.Context, sourceURL string, urls, titles []string) (queue *models.ImportQueue, err error) {
	if len(urls) == 0 {
		return nil, errors.New("urls must be non-empty")
	}
	if len(titles) != len(urls) {
		return nil, errors.New("titles must be parallel to urls")
	}

	now := time.Now()
	queue = &models.ImportQueue{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Status:    models.StatusPending,
		TotalJobs: len(urls),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	queueQuery := `
		INSERT INTO import_queues (id, source_url, status, total_jobs, completed, failed, cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, $5, $6)
	`
	if _, err = tx.ExecContext(ctx, queueQuery,
		queue.ID, queue.SourceURL, queue.Status, queue.TotalJobs, queue.CreatedAt, queue.UpdatedAt,
	); err != nil {
		err = fmt.Errorf("insert import queue: %w", err)
		return nil, err
	}

	jobQuery := `
		INSERT INTO import_jobs (id, queue_id, url, title, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', $6, $7)
	`
	for i, u := range urls {
		job := models.ImportJob{
			ID:        uuid.New().String(),
			QueueID:   queue.ID,
			URL:       u,
			Title:     titles[i],
			Status:    models.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err = tx.ExecContext(ctx, jobQuery,
			job.ID, job.QueueID, job.URL, job.Title, job.Status, job.CreatedAt, job.UpdatedAt,
		); err != nil {
			err = fmt.Errorf("insert import job %q: %w", u, err)
			return nil, err
		}
		queue.Jobs = append(queue.Jobs, job)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return nil, err
	}

	return queue, nil
}

func (r *QueueRepository) GetByID(ctx context.Context, id string) (*models.ImportQueue, error) {
	query := `
		SELECT id, source_url, status, total_jobs, completed, failed, cancelled, created_at, updated_at
		FROM import_queues
		WHERE id = $1
	`

	queue, err := scanQueue(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import queue %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query import queue: %w", err)
	}

	jobs, err := r.listJobs(ctx, id)
	if err != nil {
		return nil, err
	}
	queue.Jobs = jobs

	return queue, nil
}

// ListAll returns every queue with its jobs, newest queue first.
func (r *QueueRepository) ListAll(ctx context.Context) ([]models.ImportQueue, error) {
	query := `
		SELECT id, source_url, status, total_jobs, completed, failed, cancelled, created_at, updated_at
		FROM import_queues
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query import queues: %w", err)
	}
	defer rows.Close()

	queues := make([]models.ImportQueue, 0)
	for rows.Next() {
		queue, scanErr := scanQueue(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan import queue: %w", scanErr)
		}
		queues = append(queues, *queue)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate import queues: %w", rowsErr)
	}

	for i := range queues {
		jobs, jobsErr := r.listJobs(ctx, queues[i].ID)
		if jobsErr != nil {
			return nil, jobsErr
		}
		queues[i].Jobs = jobs
	}

	return queues, nil
}

func (r *QueueRepository) listJobs(ctx context.Context, queueID string) ([]models.ImportJob, error) {
	query := `
		SELECT id, queue_id, url, title, status, error, created_at, updated_at
		FROM import_jobs
		WHERE queue_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, queueID)
	if err != nil {
		return nil, fmt.Errorf("query import jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.ImportJob, 0)
	for rows.Next() {
		var job models.ImportJob
		if scanErr := rows.Scan(
			&job.ID, &job.QueueID, &job.URL, &job.Title, &job.Status, &job.Error, &job.CreatedAt, &job.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan import job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate import jobs: %w", rowsErr)
	}

	return jobs, nil
}

// ClaimNextJob moves the oldest pending job of any non-cancelled queue to
// processing and returns it. The parent queue is bumped to processing in the
// same transaction. Returns ErrNotFound when nothing is pending.
func (r *QueueRepository) ClaimNextJob(ctx context.Context) (job *models.ImportJob, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	now := time.Now()
	claimQuery := `
		UPDATE import_jobs
		SET status = 'processing', updated_at = $1
		WHERE id = (
			SELECT j.id FROM import_jobs j
			JOIN import_queues q ON q.id = j.queue_id
			WHERE j.status = 'pending' AND q.status IN ('pending', 'processing')
			ORDER BY j.created_at, j.id
			FOR UPDATE OF j SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, queue_id, url, title, status, error, created_at, updated_at
	`

	job = &models.ImportJob{}
	err = tx.QueryRowContext(ctx, claimQuery, now).Scan(
		&job.ID, &job.QueueID, &job.URL, &job.Title, &job.Status, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		err = fmt.Errorf("claim import job: %w", err)
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE import_queues SET status = 'processing', updated_at = $2 WHERE id = $1 AND status = 'pending'`,
		job.QueueID, now,
	); err != nil {
		err = fmt.Errorf("mark queue processing: %w", err)
		return nil, err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return nil, err
	}

	return job, nil
}

// CompleteJob marks a job completed and recomputes the parent aggregate.
func (r *QueueRepository) CompleteJob(ctx context.Context, queueID, jobID string) error {
	return r.finishJob(ctx, queueID, jobID, models.StatusCompleted, "")
}

// FailJob marks a job failed with an error message and recomputes the parent
// aggregate.
func (r *QueueRepository) FailJob(ctx context.Context, queueID, jobID, msg string) error {
	return r.finishJob(ctx, queueID, jobID, models.StatusFailed, msg)
}

func (r *QueueRepository) finishJob(ctx context.Context, queueID, jobID string, status models.Status, errMsg string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE import_jobs SET status = $3, error = $4, updated_at = $5 WHERE id = $1 AND queue_id = $2`,
		jobID, queueID, status, errMsg, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		err = fmt.Errorf("import job %s: %w", jobID, ErrNotFound)
		return err
	}

	if err = r.recomputeAggregate(ctx, tx, queueID); err != nil {
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return err
	}
	return nil
}

// CancelQueue cancels every non-terminal job in an active queue and
// recomputes the aggregate, which lands the queue in a terminal state
// immediately since no job remains in flight server-side after the update.
func (r *QueueRepository) CancelQueue(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	var status models.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM import_queues WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("import queue %s: %w", id, ErrNotFound)
		return err
	}
	if err != nil {
		return fmt.Errorf("query import queue: %w", err)
	}
	if status.Terminal() {
		err = ErrQueueTerminal
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE import_jobs SET status = 'cancelled', updated_at = $2 WHERE queue_id = $1 AND status IN ('pending', 'processing')`,
		id, time.Now(),
	); err != nil {
		return fmt.Errorf("cancel import jobs: %w", err)
	}

	if err = r.recomputeAggregate(ctx, tx, id); err != nil {
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return err
	}
	return nil
}

// CancelJob cancels a single job, valid only while that job is pending.
func (r *QueueRepository) CancelJob(ctx context.Context, queueID, jobID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE import_jobs SET status = 'cancelled', updated_at = $3 WHERE id = $1 AND queue_id = $2 AND status = 'pending'`,
		jobID, queueID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("cancel import job: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		err = ErrJobNotPending
		return err
	}

	if err = r.recomputeAggregate(ctx, tx, queueID); err != nil {
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return err
	}
	return nil
}

// DeleteQueue removes a terminal queue and its jobs from future snapshots.
func (r *QueueRepository) DeleteQueue(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM import_queues WHERE id = $1 AND status IN ('completed', 'failed', 'cancelled')`,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete import queue: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish missing from non-terminal for the handler.
		var status models.Status
		scanErr := r.db.QueryRowContext(ctx, `SELECT status FROM import_queues WHERE id = $1`, id).Scan(&status)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return fmt.Errorf("import queue %s: %w", id, ErrNotFound)
		}
		if scanErr != nil {
			return fmt.Errorf("query import queue: %w", scanErr)
		}
		return ErrQueueNotTerminal
	}

	return nil
}

// RetryJob re-arms one failed job back to pending and re-opens the parent
// queue.
func (r *QueueRepository) RetryJob(ctx context.Context, queueID, jobID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE import_jobs SET status = 'pending', error = '', updated_at = $3 WHERE id = $1 AND queue_id = $2 AND status = 'failed'`,
		jobID, queueID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("retry import job: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		err = ErrJobNotFailed
		return err
	}

	if err = r.recomputeAggregate(ctx, tx, queueID); err != nil {
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return err
	}
	return nil
}

// RetryFailedJobs re-arms every failed job in the queue. Returns the number
// of jobs re-armed, which may be zero.
func (r *QueueRepository) RetryFailedJobs(ctx context.Context, queueID string) (retried int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					logger.Error(rbErr),
				)
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE import_jobs SET status = 'pending', error = '', updated_at = $2 WHERE queue_id = $1 AND status = 'failed'`,
		queueID, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	if err = r.recomputeAggregate(ctx, tx, queueID); err != nil {
		return 0, err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return 0, err
	}
	return int(rowsAffected), nil
}

// recomputeAggregate recalculates the queue counts and status from its jobs
// inside the caller's transaction. Keeping this next to every job transition
// is what guarantees the queue never stays processing once all children are
// terminal.
func (r *QueueRepository) recomputeAggregate(ctx context.Context, tx *sql.Tx, queueID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT status FROM import_jobs WHERE queue_id = $1`, queueID)
	if err != nil {
		return fmt.Errorf("query job statuses: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.ImportJob, 0)
	var completed, failed, cancelled int
	for rows.Next() {
		var status models.Status
		if scanErr := rows.Scan(&status); scanErr != nil {
			return fmt.Errorf("scan job status: %w", scanErr)
		}
		switch status {
		case models.StatusCompleted:
			completed++
		case models.StatusFailed:
			failed++
		case models.StatusCancelled:
			cancelled++
		}
		jobs = append(jobs, models.ImportJob{Status: status})
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return fmt.Errorf("iterate job statuses: %w", rowsErr)
	}

	status := models.AggregateStatus(jobs)

	if _, err = tx.ExecContext(ctx,
		`UPDATE import_queues SET status = $2, completed = $3, failed = $4, cancelled = $5, updated_at = $6 WHERE id = $1`,
		queueID, status, completed, failed, cancelled, time.Now(),
	); err != nil {
		return fmt.Errorf("update queue aggregate: %w", err)
	}

	return nil
}

func scanQueue(row rowScanner) (*models.ImportQueue, error) {
	var queue models.ImportQueue
	if err := row.Scan(
		&queue.ID,
		&queue.SourceURL,
		&queue.Status,
		&queue.TotalJobs,
		&queue.Completed,
		&queue.Failed,
		&queue.Cancelled,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &queue, nil
}
