package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// CompletionOptions tune a single text-generation call.
type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
	Model       string // Empty uses the configured default
}

// TextService generates text from prompts.
type TextService interface {
	// Complete returns the generated text with finish metadata.
	// Truncated is set when the model exhausted its token budget.
	Complete(ctx context.Context, prompt, system string, opts CompletionOptions) (*models.StageResult, error)

	// CompleteJSON generates JSON and decodes it into out. Optional code fences are stripped;
	// decode failures wrap models.ErrMalformedJSON.
	CompleteJSON(ctx context.Context, prompt, system string, opts CompletionOptions, out interface{}) error
}

// ResearchService produces competitive research for a keyword. It never fails;
// upstream errors degrade to a generic result.
type ResearchService interface {
	Research(ctx context.Context, keyword string, rc models.ResearchContext) *models.ResearchResult
}

// CrawlService fetches site context. It never fails; an empty result means no context.
type CrawlService interface {
	Crawl(ctx context.Context, url string) *models.CrawlResult
}

// ImageService produces featured images and returns their public URL.
type ImageService interface {
	GenerateFeatured(ctx context.Context, req models.ImageRequest) (string, error)
}

// Publisher marks posts published and announces them.
type Publisher interface {
	Publish(ctx context.Context, postID string) (*models.BlogPost, error)
}

// InternalLinker inserts links to a newly published post into related posts.
type InternalLinker interface {
	LinkNewPost(ctx context.Context, post *models.BlogPost) (*models.LinkReport, error)
}

// EventSink forwards published-article notifications outside the process.
type EventSink interface {
	Send(ctx context.Context, payload ArticleEventPayload) error
	Close() error
}
