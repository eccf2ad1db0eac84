package models

import (
	"time"

	"github.com/google/uuid"
)

// KeywordStatus tracks a keyword through generation. The status doubles as the
// single-active-job guard: a keyword that is RESEARCHING or GENERATING owns a live job.
type KeywordStatus string

const (
	KeywordStatusPending     KeywordStatus = "PENDING"
	KeywordStatusResearching KeywordStatus = "RESEARCHING"
	KeywordStatusGenerating  KeywordStatus = "GENERATING"
	KeywordStatusCompleted   KeywordStatus = "COMPLETED"
	KeywordStatusFailed      KeywordStatus = "FAILED"
	KeywordStatusSkipped     KeywordStatus = "SKIPPED"
)

// IsBusy reports whether a job currently owns the keyword.
func (s KeywordStatus) IsBusy() bool {
	return s == KeywordStatusResearching || s == KeywordStatusGenerating
}

// CanEnqueue reports whether a new job may be created for the keyword.
func (s KeywordStatus) CanEnqueue() bool {
	return s == KeywordStatusPending || s == KeywordStatusFailed
}

// Keyword is a target search phrase belonging to a website.
type Keyword struct {
	ID            string        `json:"id" badgerhold:"key"`
	WebsiteID     string        `json:"website_id" badgerhold:"index"`
	Text          string        `json:"text"`
	Status        KeywordStatus `json:"status" badgerhold:"index"`
	ContentLength ContentLength `json:"content_length,omitempty"`
	RetryCount    int           `json:"retry_count"`
	BlogPostID    string        `json:"blog_post_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewKeyword creates a PENDING keyword.
func NewKeyword(websiteID, text string) *Keyword {
	now := time.Now()
	return &Keyword{
		ID:        uuid.New().String(),
		WebsiteID: websiteID,
		Text:      text,
		Status:    KeywordStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
