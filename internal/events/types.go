package events

import (
	"time"

	"github.com/google/uuid"
)

// StreamName is the Redis stream all scraper lifecycle events go to.
const StreamName = "scraper-events"

// EventType identifies a scraper lifecycle event.
type EventType string

const (
	EventTaskCompleted  EventType = "TASK_COMPLETED"
	EventTaskFailed     EventType = "TASK_FAILED"
	EventJobCreated     EventType = "JOB_CREATED"
	EventQueueCompleted EventType = "QUEUE_COMPLETED"
)

// ScraperEvent is the envelope published to the stream. SubjectID is the task,
// job or queue the event is about.
type ScraperEvent struct {
	EventID   uuid.UUID      `json:"event_id"`
	EventType EventType      `json:"event_type"`
	SubjectID string         `json:"subject_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
