package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/job-scraper/internal/models"
	"github.com/jonesrussell/job-scraper/internal/testhelpers"
)

// setupTestDB connects to a local test database for integration tests.
// These are skipped in short mode and whenever no database is reachable.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	connStr := "host=localhost port=5432 user=postgres password=postgres dbname=jobscraper_test sslmode=disable"
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Skipf("Skipping test: could not connect to test database: %v", err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping test: could not ping test database: %v", err)
	}

	logger := testhelpers.NewTestLogger()
	if err := testhelpers.RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		t.Skipf("Skipping test: could not run migrations: %v", err)
	}

	cleanup := func() {
		ctx := context.Background()
		_, _ = db.ExecContext(ctx, "TRUNCATE TABLE job_postings, import_jobs, import_queues, extraction_tasks CASCADE")
		db.Close()
	}

	return db, cleanup
}

func TestQueueLifecycle_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := testhelpers.NewTestLogger()
	repo := NewQueueRepository(db, logger)
	ctx := context.Background()

	queue, err := repo.CreateWithJobs(ctx, "https://example.com/careers",
		[]string{"https://example.com/jobs/1", "https://example.com/jobs/2"},
		[]string{"Engineer", ""},
	)
	require.NoError(t, err)
	require.Len(t, queue.Jobs, 2)
	assert.Equal(t, models.StatusPending, queue.Status)

	// Claim and finish both jobs, one completed and one failed.
	first, err := repo.ClaimNextJob(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CompleteJob(ctx, first.QueueID, first.ID))

	second, err := repo.ClaimNextJob(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.FailJob(ctx, second.QueueID, second.ID, "fetch failed"))

	got, err := repo.GetByID(ctx, queue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status, "partial failure must not fail the queue")
	assert.Equal(t, 1, got.Completed)
	assert.Equal(t, 1, got.Failed)
	assert.True(t, got.CountsConsistent())
	for _, job := range got.Jobs {
		assert.True(t, job.Status.Terminal(), "no child survives a terminal parent")
	}

	// Retry the failed job and confirm the queue re-opens.
	require.NoError(t, repo.RetryJob(ctx, queue.ID, second.ID))
	got, err = repo.GetByID(ctx, queue.ID)
	require.NoError(t, err)
	assert.False(t, got.Status.Terminal())
	assert.Equal(t, 0, got.Failed)

	// Finish it again, then delete the terminal queue.
	third, err := repo.ClaimNextJob(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CompleteJob(ctx, third.QueueID, third.ID))

	require.NoError(t, repo.DeleteQueue(ctx, queue.ID))
	_, err = repo.GetByID(ctx, queue.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskLifecycle_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := testhelpers.NewTestLogger()
	repo := NewTaskRepository(db, logger)
	ctx := context.Background()

	task := &models.ExtractionTask{SourceURL: "https://example.com/careers"}
	require.NoError(t, repo.Create(ctx, task))
	assert.NotEmpty(t, task.ID)

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.ID, claimed.ID)
	assert.Equal(t, models.StatusProcessing, claimed.Status)

	links := []models.ExtractedJobLink{{URL: "https://example.com/jobs/1", Title: "Engineer"}}
	require.NoError(t, repo.Complete(ctx, task.ID, links))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.Len(t, got.Links, 1)
	assert.Equal(t, "Engineer", got.Links[0].Title)

	// A terminal task cannot be claimed again.
	_, err = repo.ClaimNext(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
