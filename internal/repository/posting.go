package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

type PostingRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostingRepository(db *sql.DB, log logger.Logger) *PostingRepository {
	return &PostingRepository{
		db:     db,
		logger: log,
	}
}

func (r *PostingRepository) Create(ctx context.Context, posting *models.JobPosting) error {
	posting.ID = uuid.New().String()
	posting.CreatedAt = time.Now()

	query := `
		INSERT INTO job_postings (id, url, title, company, location, description, source_queue_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		posting.ID,
		posting.URL,
		posting.Title,
		posting.Company,
		posting.Location,
		posting.Description,
		posting.SourceQueueID,
		posting.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job posting: %w", err)
	}

	return nil
}

// ExistsByURL reports whether a posting with the given URL was already
// created. Used to dedupe batch imports.
func (r *PostingRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM job_postings WHERE url = $1)`, url,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query posting by url: %w", err)
	}
	return exists, nil
}

func (r *PostingRepository) List(ctx context.Context) ([]models.JobPosting, error) {
	query := `
		SELECT id, url, title, company, location, description, source_queue_id, created_at
		FROM job_postings
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query job postings: %w", err)
	}
	defer rows.Close()

	postings := make([]models.JobPosting, 0)
	for rows.Next() {
		var p models.JobPosting
		if scanErr := rows.Scan(
			&p.ID, &p.URL, &p.Title, &p.Company, &p.Location, &p.Description, &p.SourceQueueID, &p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan job posting: %w", scanErr)
		}
		postings = append(postings, p)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate job postings: %w", rowsErr)
	}

	return postings, nil
}
