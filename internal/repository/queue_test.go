package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
	"github.com/jonesrussell/job-scraper/internal/repository"
)

func newQueueRepo(t *testing.T) (*repository.QueueRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create sqlmock")

	repo := repository.NewQueueRepository(db, logger.NewNop())
	return repo, mock, func() { db.Close() }
}

func queueColumns() []string {
	return []string{"id", "source_url", "status", "total_jobs", "completed", "failed", "cancelled", "created_at", "updated_at"}
}

func jobColumns() []string {
	return []string{"id", "queue_id", "url", "title", "status", "error", "created_at", "updated_at"}
}

func TestQueueRepository_CreateWithJobs(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO import_queues").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	queue, err := repo.CreateWithJobs(context.Background(),
		"https://example.com/careers",
		[]string{"https://example.com/careers/1", "https://example.com/careers/2"},
		[]string{"Engineer", ""},
	)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, queue.Status)
	assert.Equal(t, 2, queue.TotalJobs)
	require.Len(t, queue.Jobs, 2)
	assert.Equal(t, "Engineer", queue.Jobs[0].Title)
	assert.Equal(t, models.StatusPending, queue.Jobs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_CreateWithJobs_Validation(t *testing.T) {
	repo, _, cleanup := newQueueRepo(t)
	defer cleanup()

	_, err := repo.CreateWithJobs(context.Background(), "src", nil, nil)
	assert.Error(t, err, "empty urls must be rejected")

	_, err = repo.CreateWithJobs(context.Background(), "src",
		[]string{"https://a.com/x"}, []string{"a", "b"})
	assert.Error(t, err, "titles must be parallel to urls")
}

func TestQueueRepository_CompleteJob_RecomputesAggregate(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT status FROM import_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow("completed").
			AddRow("failed").
			AddRow("completed"))
	mock.ExpectExec("UPDATE import_queues").
		WithArgs("q1", string(models.StatusCompleted), 2, 1, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CompleteJob(context.Background(), "q1", "j1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_FailJob_AllFailedQueueFails(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT status FROM import_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow("failed").
			AddRow("failed"))
	mock.ExpectExec("UPDATE import_queues").
		WithArgs("q1", string(models.StatusFailed), 0, 2, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.FailJob(context.Background(), "q1", "j2", "fetch timeout")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_FinishJob_NotFound(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CompleteJob(context.Background(), "q1", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_CancelQueue(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM import_queues").
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("processing"))
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT status FROM import_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow("completed").
			AddRow("cancelled").
			AddRow("cancelled"))
	mock.ExpectExec("UPDATE import_queues").
		WithArgs("q1", string(models.StatusCompleted), 1, 0, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CancelQueue(context.Background(), "q1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_CancelQueue_Terminal(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM import_queues").
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectRollback()

	err := repo.CancelQueue(context.Background(), "q1")
	assert.ErrorIs(t, err, repository.ErrQueueTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_CancelJob_NotPending(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CancelJob(context.Background(), "q1", "j1")
	assert.ErrorIs(t, err, repository.ErrJobNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_DeleteQueue(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM import_queues").
		WithArgs("q1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteQueue(context.Background(), "q1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_DeleteQueue_NotTerminal(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM import_queues").
		WithArgs("q1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM import_queues").
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("processing"))

	err := repo.DeleteQueue(context.Background(), "q1")
	assert.ErrorIs(t, err, repository.ErrQueueNotTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_RetryJob(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT status FROM import_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow("completed").
			AddRow("pending").
			AddRow("completed"))
	mock.ExpectExec("UPDATE import_queues").
		WithArgs("q1", string(models.StatusProcessing), 2, 0, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RetryJob(context.Background(), "q1", "j2")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_RetryJob_NotFailed(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RetryJob(context.Background(), "q1", "j1")
	assert.ErrorIs(t, err, repository.ErrJobNotFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_RetryFailedJobs(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_jobs").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT status FROM import_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow("completed").
			AddRow("pending").
			AddRow("pending"))
	mock.ExpectExec("UPDATE import_queues").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	retried, err := repo.RetryFailedJobs(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, 2, retried)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_ListAll(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM import_queues").
		WillReturnRows(sqlmock.NewRows(queueColumns()).
			AddRow("q1", "https://example.com/careers", "processing", 2, 1, 0, 0, now, now))
	mock.ExpectQuery("SELECT (.+) FROM import_jobs").
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows(jobColumns()).
			AddRow("j1", "q1", "https://example.com/careers/1", "Engineer", "completed", "", now, now).
			AddRow("j2", "q1", "https://example.com/careers/2", "", "pending", "", now, now))

	queues, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, models.StatusProcessing, queues[0].Status)
	require.Len(t, queues[0].Jobs, 2)
	assert.Equal(t, models.StatusCompleted, queues[0].Jobs[0].Status)
	assert.True(t, queues[0].CountsConsistent())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_ClaimNextJob_Empty(t *testing.T) {
	repo, mock, cleanup := newQueueRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE import_jobs").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ClaimNextJob(context.Background())
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
