package models

import "time"

// SourceManualPaste marks queues created from pasted URLs rather than a
// listing page.
const SourceManualPaste = "manual-paste"

// SourceExcelImport marks queues created from an uploaded spreadsheet.
const SourceExcelImport = "excel-import"

// ImportJob is one URL's create-job-from-URL attempt within an ImportQueue.
// Error is populated only when the job failed.
type ImportJob struct {
	ID        string    `json:"id" db:"id"`
	QueueID   string    `json:"queue_id" db:"queue_id"`
	URL       string    `json:"url" db:"url"`
	Title     string    `json:"title,omitempty" db:"title"`
	Status    Status    `json:"status" db:"status"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ImportQueue is a server-tracked batch of per-URL import jobs.
type ImportQueue struct {
	ID        string      `json:"id" db:"id"`
	SourceURL string      `json:"source_url" db:"source_url"`
	Status    Status      `json:"status" db:"status"`
	TotalJobs int         `json:"total_jobs" db:"total_jobs"`
	Completed int         `json:"completed" db:"completed"`
	Failed    int         `json:"failed" db:"failed"`
	Cancelled int         `json:"cancelled" db:"cancelled"`
	Jobs      []ImportJob `json:"jobs"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Progress returns the number of jobs in a terminal state and the total.
func (q *ImportQueue) Progress() (done, total int) {
	return q.Completed + q.Failed + q.Cancelled, q.TotalJobs
}

// CountsConsistent checks the invariant completed+failed+cancelled <= total,
// with equality required once the queue status is terminal.
func (q *ImportQueue) CountsConsistent() bool {
	done, total := q.Progress()
	if done > total {
		return false
	}
	if q.Status.Terminal() && done != total {
		return false
	}
	return true
}

// AggregateStatus derives the queue status from its jobs.
//
// While any job is pending or processing the queue is processing (pending
// until the first job has been picked up). Once every job is terminal:
// cancelled if all jobs were cancelled, failed only if every non-cancelled
// job failed, otherwise completed. A completed queue may carry a non-zero
// failed count; partial failure is a per-job condition, not a queue error.
func AggregateStatus(jobs []ImportJob) Status {
	if len(jobs) == 0 {
		return StatusCompleted
	}

	var completed, failed, cancelled, processing int
	for i := range jobs {
		switch jobs[i].Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		case StatusCancelled:
			cancelled++
		case StatusProcessing:
			processing++
		}
	}

	terminal := completed + failed + cancelled
	if terminal < len(jobs) {
		if processing > 0 || terminal > 0 {
			return StatusProcessing
		}
		return StatusPending
	}

	switch {
	case cancelled == len(jobs):
		return StatusCancelled
	case completed == 0 && failed > 0:
		return StatusFailed
	default:
		return StatusCompleted
	}
}
