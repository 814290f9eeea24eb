// Package models provides domain models for extraction tasks, import queues
// and created job postings.
package models

// Status represents the lifecycle state of a task, queue or import job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further automatic transition occurs from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether s still requires polling.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusProcessing
}
