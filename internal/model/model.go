package model

import "time"

// CalendarEvent is one dated entry extracted from a source document,
// e.g. a single collection day on a municipal waste schedule.
type CalendarEvent struct {
	// Date is an ISO 8601 calendar date ("2026-04-01"). Always non-empty
	// once an event has passed the extraction boundary.
	Date string `json:"date"`

	// Title is the extracted category label, original text, trimmed only.
	// Always non-empty once an event has passed the extraction boundary.
	Title string `json:"title"`

	// Description is optional free-text detail. Empty means "not provided";
	// the extraction boundary never emits a meaningful empty description.
	Description string `json:"description,omitempty"`
}

// ParseResult is the output of one oracle extraction over a document.
type ParseResult struct {
	// Title is the document-level title, if the oracle produced one.
	Title string `json:"title,omitempty"`

	Events []CalendarEvent `json:"events"`
}

// JobStatus is the lifecycle state of an ingestion run.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// Terminal reports whether the status will never change again.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

// JobResult summarizes a completed synchronization run.
type JobResult struct {
	Inserted int `json:"inserted_count"`
	Skipped  int `json:"skipped_count"`
}

// Job is one ingestion run: one uploaded document driven through
// extraction and calendar synchronization exactly once.
type Job struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// ObjectKey references the source document in the storage collaborator.
	ObjectKey string `json:"object_key"`

	// Language / Mode select the extraction configuration and are part
	// of the parse cache key.
	Language string `json:"language"`
	Mode     string `json:"mode"`

	Status JobStatus `json:"status"`

	// DocumentHash is the sha256 of the source bytes, set once known.
	DocumentHash string `json:"document_hash,omitempty"`

	// Result is set on completed jobs, ErrorMessage on failed ones.
	Result       *JobResult `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
