package models

import "time"

// ExtractedJobLink is a candidate job link found on a listing page. Links are
// ephemeral: they live in selection state until promoted into an import queue.
type ExtractedJobLink struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ExtractionTask is a server-tracked background scan of one listing page.
// Links are populated only on completion; Error only on failure. Tasks never
// reach cancelled: they are cheap enough to run to a terminal state.
type ExtractionTask struct {
	ID        string             `json:"id" db:"id"`
	SourceURL string             `json:"source_url" db:"source_url"`
	Status    Status             `json:"status" db:"status"`
	Links     []ExtractedJobLink `json:"links,omitempty" db:"links"`
	Error     string             `json:"error,omitempty" db:"error"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}
