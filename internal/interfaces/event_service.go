package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobQueued        EventType = "job_queued"
	EventJobProgress      EventType = "job_progress"
	EventJobCompleted     EventType = "job_completed"
	EventJobFailed        EventType = "job_failed"
	EventArticlePublished EventType = "article_published"

	// EventAll subscribes a handler to every event type
	EventAll EventType = "*"
)

// Event represents a system event
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// JobEventPayload is carried by job lifecycle events.
type JobEventPayload struct {
	JobID     string `json:"job_id"`
	KeywordID string `json:"keyword_id"`
	Status    string `json:"status"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	OutputID  string `json:"output_id,omitempty"`
}

// ArticleEventPayload is carried by EventArticlePublished.
type ArticleEventPayload struct {
	PostID    string `json:"post_id"`
	WebsiteID string `json:"website_id"`
	Slug      string `json:"slug"`
	URL       string `json:"url"`
	Title     string `json:"title"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the in-process pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
