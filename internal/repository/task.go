// Package repository provides PostgreSQL persistence for extraction tasks,
// import queues and created job postings.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

type TaskRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewTaskRepository(db *sql.DB, log logger.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: log,
	}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.ExtractionTask) error {
	task.ID = uuid.New().String()
	task.Status = models.StatusPending
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	query := `
		INSERT INTO extraction_tasks (id, source_url, status, links, error, created_at, updated_at)
		VALUES ($1, $2, $3, '[]'::jsonb, '', $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.SourceURL,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert extraction task: %w", err)
	}

	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.ExtractionTask, error) {
	query := `
		SELECT id, source_url, status, links, error, created_at, updated_at
		FROM extraction_tasks
		WHERE id = $1
	`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extraction task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query extraction task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]models.ExtractionTask, error) {
	query := `
		SELECT id, source_url, status, links, error, created_at, updated_at
		FROM extraction_tasks
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query extraction tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.ExtractionTask, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan extraction task: %w", scanErr)
		}
		tasks = append(tasks, *task)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate extraction tasks: %w", rowsErr)
	}

	return tasks, nil
}

// ClaimNext moves the oldest pending task to processing and returns it.
// Returns ErrNotFound when no pending task exists. SKIP LOCKED keeps
// concurrent workers from claiming the same task.
func (r *TaskRepository) ClaimNext(ctx context.Context) (*models.ExtractionTask, error) {
	query := `
		UPDATE extraction_tasks
		SET status = 'processing', updated_at = $1
		WHERE id = (
			SELECT id FROM extraction_tasks
			WHERE status = 'pending'
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, source_url, status, links, error, created_at, updated_at
	`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, time.Now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim extraction task: %w", err)
	}
	return task, nil
}

// Complete marks a task completed with the extracted links. An empty link set
// is still a completion; classifying it as "no links found" is the client's
// concern.
func (r *TaskRepository) Complete(ctx context.Context, id string, links []models.ExtractedJobLink) error {
	if links == nil {
		links = []models.ExtractedJobLink{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("marshal links: %w", err)
	}

	return r.finish(ctx, id, models.StatusCompleted, linksJSON, "")
}

// Fail marks a task failed with the given error message.
func (r *TaskRepository) Fail(ctx context.Context, id, msg string) error {
	return r.finish(ctx, id, models.StatusFailed, []byte("[]"), msg)
}

func (r *TaskRepository) finish(ctx context.Context, id string, status models.Status, linksJSON []byte, errMsg string) error {
	query := `
		UPDATE extraction_tasks
		SET status = $2, links = $3, error = $4, updated_at = $5
		WHERE id = $1 AND status IN ('pending', 'processing')
	`

	result, err := r.db.ExecContext(ctx, query, id, status, linksJSON, errMsg, time.Now())
	if err != nil {
		return fmt.Errorf("finish extraction task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("extraction task %s not active: %w", id, ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.ExtractionTask, error) {
	var task models.ExtractionTask
	var linksJSON []byte

	if err := row.Scan(
		&task.ID,
		&task.SourceURL,
		&task.Status,
		&linksJSON,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(linksJSON) > 0 {
		if err := json.Unmarshal(linksJSON, &task.Links); err != nil {
			return nil, fmt.Errorf("unmarshal links: %w", err)
		}
	}
	if len(task.Links) == 0 {
		task.Links = nil
	}

	return &task, nil
}
