// -----------------------------------------------------------------------
// Generation Job - durable record driving one keyword through the pipeline
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are possible without a retry.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobTimeoutMessage is recorded on jobs reclaimed by the recovery sweep.
const JobTimeoutMessage = "Job timed out. Click Retry to try again."

// JobInput is the payload captured at enqueue time. Retry rebuilds a new job from it.
type JobInput struct {
	KeywordID     string        `json:"keyword_id" validate:"required"`
	Keyword       string        `json:"keyword" validate:"required,max=200"`
	WebsiteID     string        `json:"website_id" validate:"required"`
	ContentLength ContentLength `json:"content_length" validate:"omitempty,oneof=SHORT MEDIUM LONG PILLAR"`
	AutoPublish   bool          `json:"auto_publish"`
	GenerateImage bool          `json:"generate_image"`
	Model         string        `json:"model,omitempty"` // Per-job model override
}

// Job is the persisted generation job.
type Job struct {
	ID          string     `json:"id" badgerhold:"key"`
	Status      JobStatus  `json:"status" badgerhold:"index"`
	CurrentStep string     `json:"current_step"`
	Progress    int        `json:"progress"` // 0-100
	Input       JobInput   `json:"input"`
	KeywordID   string     `json:"keyword_id" badgerhold:"index"` // Denormalised from Input for queries
	WebsiteID   string     `json:"website_id" badgerhold:"index"` // Denormalised from Input for queries
	Error       string     `json:"error,omitempty"`
	OutputID    string     `json:"output_id,omitempty"` // BlogPost ID on completion
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewJob creates a QUEUED job for the given input.
func NewJob(input JobInput) *Job {
	now := time.Now()
	if input.ContentLength == "" {
		input.ContentLength = ContentLengthMedium
	}
	return &Job{
		ID:          uuid.New().String(),
		Status:      JobStatusQueued,
		CurrentStep: "queued",
		Input:       input,
		KeywordID:   input.KeywordID,
		WebsiteID:   input.WebsiteID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// JobListOptions filters job listings.
type JobListOptions struct {
	Status    JobStatus
	WebsiteID string
	Limit     int
	Offset    int
	Oldest    bool // Sort ascending by CreatedAt (worker polling order)
}
