package models

import (
	"fmt"
	"time"
)

// JobStatus represents the state of a parse job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// statusRank defines the monotonic ordering of job states. A transition to a
// lower or equal rank is rejected, so pollers never observe status regress.
var statusRank = map[JobStatus]int{
	JobStatusPending:    0,
	JobStatusUploaded:   1,
	JobStatusProcessing: 2,
	JobStatusCompleted:  3,
	JobStatusFailed:     3,
}

// IsTerminal returns true if the status is COMPLETED or FAILED
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next preserves monotonicity
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// ParseMode selects a parse cost tier
type ParseMode string

const (
	ParseModeCheap    ParseMode = "cheap"
	ParseModeStandard ParseMode = "standard"
	ParseModePremium  ParseMode = "premium"
)

// Valid reports whether the parse mode is a known tier
func (m ParseMode) Valid() bool {
	switch m {
	case ParseModeCheap, ParseModeStandard, ParseModePremium:
		return true
	}
	return false
}

// ParseJob is an asynchronous, credit-metered request to convert a raw file
// into indexed text via the background worker.
//
// Lifecycle: PENDING -> UPLOADED -> PROCESSING -> {COMPLETED | FAILED}.
// Transitions are monotonic; terminal jobs accept no further mutation.
type ParseJob struct {
	ID              string `json:"id"`
	AccountID       string `json:"account_id" badgerholdIndex:"AccountID"`
	KnowledgeBaseID string `json:"knowledge_base_id"`

	FileName        string    `json:"file_name"`
	FileSizeBytes   int64     `json:"file_size_bytes"`
	Mode            ParseMode `json:"mode"`
	PageCount       int       `json:"page_count"`
	CreditsReserved int64     `json:"credits_reserved"`

	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`

	// Markdown holds the parsed output once the worker completes, so the
	// poll endpoint can return it without a second storage round trip.
	Markdown string `json:"markdown,omitempty"`

	// SourceDocumentID links to the document created from the parsed output
	SourceDocumentID string `json:"source_document_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProcessingTime returns the wall time from creation to completion, or zero
// if the job has not reached a terminal state.
func (j *ParseJob) ProcessingTime() time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(j.CreatedAt)
}

// Validate checks the fields required before a job may be persisted
func (j *ParseJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.AccountID == "" {
		return fmt.Errorf("account ID is required")
	}
	if j.KnowledgeBaseID == "" {
		return fmt.Errorf("knowledge base ID is required")
	}
	if !j.Mode.Valid() {
		return fmt.Errorf("invalid parse mode: %s", j.Mode)
	}
	return nil
}
