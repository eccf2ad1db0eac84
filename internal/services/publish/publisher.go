package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// linkRunTimeout bounds one background internal-linking run
const linkRunTimeout = 15 * time.Minute

// Publisher marks posts published, announces them and triggers internal linking
type Publisher struct {
	posts    interfaces.PostStorage
	websites interfaces.WebsiteStorage
	events   interfaces.EventService
	sink     interfaces.EventSink
	linker   interfaces.InternalLinker
	logger   arbor.ILogger
}

var _ interfaces.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher. linker may be nil to disable internal linking.
func NewPublisher(
	posts interfaces.PostStorage,
	websites interfaces.WebsiteStorage,
	events interfaces.EventService,
	sink interfaces.EventSink,
	linker interfaces.InternalLinker,
	logger arbor.ILogger,
) *Publisher {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Publisher{
		posts:    posts,
		websites: websites,
		events:   events,
		sink:     sink,
		linker:   linker,
		logger:   logger,
	}
}

// Publish marks the post published and fans out the article event.
// Sink failures are logged; the post stays published.
func (p *Publisher) Publish(ctx context.Context, postID string) (*models.BlogPost, error) {
	post, err := p.posts.MarkPublished(ctx, postID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark post published: %w", err)
	}

	payload := interfaces.ArticleEventPayload{
		PostID:    post.ID,
		WebsiteID: post.WebsiteID,
		Slug:      post.Slug,
		Title:     post.Article.Title,
	}
	if website, err := p.websites.GetWebsite(ctx, post.WebsiteID); err == nil {
		payload.URL = website.PostURL(post.Slug)
	} else {
		p.logger.Warn().Err(err).Str("website_id", post.WebsiteID).Msg("Website lookup failed, publishing without URL")
	}

	if p.events != nil {
		_ = p.events.Publish(ctx, interfaces.Event{Type: interfaces.EventArticlePublished, Payload: payload})
	}

	if err := p.sink.Send(ctx, payload); err != nil {
		p.logger.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to forward article event")
	}

	p.logger.Info().
		Str("post_id", post.ID).
		Str("slug", post.Slug).
		Str("url", payload.URL).
		Msg("Post published")

	if p.linker != nil {
		published := *post
		common.SafeGo(p.logger, "internal-linker", func() {
			linkCtx, cancel := context.WithTimeout(context.Background(), linkRunTimeout)
			defer cancel()

			report, err := p.linker.LinkNewPost(linkCtx, &published)
			if err != nil {
				p.logger.Warn().Err(err).Str("post_id", published.ID).Msg("Internal linking failed")
				return
			}
			p.logger.Info().
				Str("post_id", published.ID).
				Int("considered", report.Considered).
				Int("linked", report.Linked).
				Int("rejected", report.Rejected).
				Msg("Internal linking finished")
		})
	}

	return post, nil
}
