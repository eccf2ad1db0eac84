package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// JobStorage persists generation jobs.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *models.JobListOptions) ([]*models.Job, error)
	CountJobs(ctx context.Context, status models.JobStatus) (int, error)
	DeleteJob(ctx context.Context, id string) error

	// ClaimJob atomically moves a QUEUED job to PROCESSING.
	// Returns false without error when the job is not QUEUED or another caller won the race.
	ClaimJob(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// UpdateJobProgress records the current step and progress of a PROCESSING job.
	// lease is the StartedAt stamped by the claim; a mismatch yields ErrInvalidTransition.
	UpdateJobProgress(ctx context.Context, id string, lease time.Time, step string, progress int) error

	// CompleteJob marks a PROCESSING job COMPLETED with its output reference,
	// provided the caller still holds the lease.
	CompleteJob(ctx context.Context, id string, lease time.Time, outputID string) error

	// FailClaimedJob marks a PROCESSING job FAILED, provided the caller still holds the lease.
	FailClaimedJob(ctx context.Context, id string, lease time.Time, message string) error

	// FailJob marks a non-terminal job FAILED with a message.
	FailJob(ctx context.Context, id, message string) error

	// GetStaleJobs returns PROCESSING jobs started before the cutoff.
	GetStaleJobs(ctx context.Context, startedBefore time.Time) ([]*models.Job, error)
}

// KeywordStorage persists keywords and guards their single-active-job status.
type KeywordStorage interface {
	SaveKeyword(ctx context.Context, keyword *models.Keyword) error
	GetKeyword(ctx context.Context, id string) (*models.Keyword, error)
	ListKeywords(ctx context.Context, websiteID string) ([]*models.Keyword, error)

	// ReserveKeyword atomically moves an enqueueable keyword to RESEARCHING.
	ReserveKeyword(ctx context.Context, id string) error

	UpdateKeywordStatus(ctx context.Context, id string, status models.KeywordStatus) error

	// TransitionKeyword moves the keyword from one status to another, failing with
	// ErrInvalidTransition when it is no longer in from.
	TransitionKeyword(ctx context.Context, id string, from, to models.KeywordStatus) error

	// ReleaseForRetry returns a PENDING or FAILED keyword to PENDING. A busy keyword
	// yields ErrKeywordBusy; COMPLETED and SKIPPED yield ErrInvalidTransition.
	ReleaseForRetry(ctx context.Context, id string) error

	// MarkKeywordFailed sets FAILED and increments the retry counter.
	MarkKeywordFailed(ctx context.Context, id string) error

	// CompleteKeyword sets COMPLETED and links the generated post.
	CompleteKeyword(ctx context.Context, id, postID string) error
}

// PostStorage persists blog posts.
type PostStorage interface {
	SavePost(ctx context.Context, post *models.BlogPost) error
	GetPost(ctx context.Context, id string) (*models.BlogPost, error)
	ListPosts(ctx context.Context, websiteID string) ([]*models.BlogPost, error)
	SlugExists(ctx context.Context, websiteID, slug string) (bool, error)
	DeletePost(ctx context.Context, id string) error

	// ListRecentPublished returns published posts newest first, excluding excludeID.
	ListRecentPublished(ctx context.Context, websiteID, excludeID string, limit int) ([]*models.BlogPost, error)

	UpdatePostContent(ctx context.Context, id, content string) error
	MarkPublished(ctx context.Context, id string, at time.Time) (*models.BlogPost, error)
}

// WebsiteStorage persists websites and their monthly usage counters.
type WebsiteStorage interface {
	SaveWebsite(ctx context.Context, website *models.Website) error
	GetWebsite(ctx context.Context, id string) (*models.Website, error)
	ListWebsites(ctx context.Context) ([]*models.Website, error)

	// IncrementUsage adds one generated article to the website's counter for period (YYYY-MM).
	IncrementUsage(ctx context.Context, websiteID, period string) (int, error)
	GetUsage(ctx context.Context, websiteID, period string) (int, error)
}

// StorageManager aggregates the entity storages over one database.
type StorageManager interface {
	JobStorage() JobStorage
	KeywordStorage() KeywordStorage
	PostStorage() PostStorage
	WebsiteStorage() WebsiteStorage
	Close() error
}
