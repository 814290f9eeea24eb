package models

import "time"

// ScrapedJob holds the fields scraped from a single job posting page before
// the operator confirms creation.
type ScrapedJob struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// JobPosting is a created job record. SourceQueueID links back to the import
// queue that produced it, when the posting came from a batch import.
type JobPosting struct {
	ID            string    `json:"id" db:"id"`
	URL           string    `json:"url" db:"url"`
	Title         string    `json:"title" db:"title"`
	Company       string    `json:"company,omitempty" db:"company"`
	Location      string    `json:"location,omitempty" db:"location"`
	Description   string    `json:"description,omitempty" db:"description"`
	SourceQueueID *string   `json:"source_queue_id,omitempty" db:"source_queue_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
