// -----------------------------------------------------------------------
// Internal Linker - adds links to a newly published post from related posts
// -----------------------------------------------------------------------

package linker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/content"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/llm"
)

const (
	defaultWindow         = 30
	defaultMinTargets     = 3
	defaultMaxTargets     = 5
	defaultMinLengthRatio = 0.85
	rewriteTimeout        = 3 * time.Minute
)

const systemPrompt = `You are an editor maintaining internal links across a blog. You make minimal, precise edits and never change facts, headings or structure.`

// Service inserts one contextual link to a new post into each of a few related posts.
// Every target is updated independently; a failed rewrite leaves that post untouched.
type Service struct {
	text     interfaces.TextService
	posts    interfaces.PostStorage
	websites interfaces.WebsiteStorage
	config   common.LinkerConfig
	timeout  time.Duration
	logger   arbor.ILogger
}

// NewService creates an internal linker
func NewService(
	text interfaces.TextService,
	posts interfaces.PostStorage,
	websites interfaces.WebsiteStorage,
	config common.LinkerConfig,
	logger arbor.ILogger,
) *Service {
	if config.Window <= 0 {
		config.Window = defaultWindow
	}
	if config.MinTargets <= 0 {
		config.MinTargets = defaultMinTargets
	}
	if config.MaxTargets < config.MinTargets {
		config.MaxTargets = defaultMaxTargets
	}
	if config.MinLengthRatio <= 0 {
		config.MinLengthRatio = defaultMinLengthRatio
	}
	return &Service{
		text:     text,
		posts:    posts,
		websites: websites,
		config:   config,
		timeout:  common.ParseDuration(config.SelectionTimeout, 60*time.Second),
		logger:   logger,
	}
}

type selection struct {
	IDs []string `json:"ids"`
}

// LinkNewPost selects related published posts and rewrites each to link to post.
// Selection failures skip the run and are not returned as errors.
func (s *Service) LinkNewPost(ctx context.Context, post *models.BlogPost) (*models.LinkReport, error) {
	report := &models.LinkReport{PostID: post.ID}
	if !s.config.Enabled {
		report.Skipped = true
		return report, nil
	}

	website, err := s.websites.GetWebsite(ctx, post.WebsiteID)
	if err != nil {
		return report, err
	}
	newURL := website.PostURL(post.Slug)

	candidates, err := s.posts.ListRecentPublished(ctx, post.WebsiteID, post.ID, s.config.Window)
	if err != nil {
		return report, err
	}
	if len(candidates) == 0 {
		s.logger.Debug().Str("post_id", post.ID).Msg("No published posts to link from")
		return report, nil
	}

	targets, err := s.selectTargets(ctx, post, candidates)
	if err != nil {
		metrics.InternalLinksTotal.WithLabelValues("skipped").Inc()
		s.logger.Warn().Err(err).Str("post_id", post.ID).Msg("Link target selection failed, skipping internal linking")
		report.Skipped = true
		return report, nil
	}

	for _, target := range targets {
		report.Considered++
		if strings.Contains(target.Article.Content, newURL) {
			s.logger.Debug().Str("target_id", target.ID).Msg("Target already links to new post")
			continue
		}

		updated, err := s.rewrite(ctx, post, target, newURL)
		if err != nil {
			report.Rejected++
			metrics.InternalLinksTotal.WithLabelValues("rejected").Inc()
			s.logger.Warn().Err(err).Str("target_id", target.ID).Msg("Link rewrite rejected")
			continue
		}

		if err := s.posts.UpdatePostContent(ctx, target.ID, updated); err != nil {
			report.Rejected++
			s.logger.Warn().Err(err).Str("target_id", target.ID).Msg("Failed to save linked post")
			continue
		}
		report.Linked++
		metrics.InternalLinksTotal.WithLabelValues("linked").Inc()
	}

	s.logger.Info().
		Str("post_id", post.ID).
		Int("considered", report.Considered).
		Int("linked", report.Linked).
		Int("rejected", report.Rejected).
		Msg("Internal linking finished")
	return report, nil
}

// selectTargets asks the model for the most related posts under the selection timeout.
// Unknown and repeated ids are dropped; the result is capped at MaxTargets.
func (s *Service) selectTargets(ctx context.Context, post *models.BlogPost, candidates []*models.BlogPost) ([]*models.BlogPost, error) {
	selCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sel selection
	if err := s.text.CompleteJSON(selCtx, selectionPrompt(post, candidates, s.config), systemPrompt, interfaces.CompletionOptions{
		Temperature: 0.2,
		MaxTokens:   1024,
	}, &sel); err != nil {
		return nil, err
	}

	byID := make(map[string]*models.BlogPost, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	var targets []*models.BlogPost
	seen := map[string]bool{}
	for _, id := range sel.IDs {
		id = strings.TrimSpace(id)
		target, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		targets = append(targets, target)
		if len(targets) == s.config.MaxTargets {
			break
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid targets among %d selected ids", len(sel.IDs))
	}
	return targets, nil
}

// rewrite returns the target body with one sentence linking to newURL. Output shorter
// than MinLengthRatio of the original, truncated, or missing the link is rejected.
func (s *Service) rewrite(ctx context.Context, post, target *models.BlogPost, newURL string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	original := target.Article.Content
	words := content.WordCount(original)

	result, err := s.text.Complete(callCtx, rewritePrompt(post, target, newURL), systemPrompt, interfaces.CompletionOptions{
		Temperature: 0.2,
		MaxTokens:   words*2 + 1024,
	})
	if err != nil {
		return "", err
	}
	if result.Truncated {
		return "", fmt.Errorf("rewrite truncated")
	}

	updated := llm.StripCodeFences(result.Text)
	if !strings.Contains(updated, newURL) {
		return "", fmt.Errorf("rewrite does not contain %s", newURL)
	}
	if float64(len([]rune(updated))) < s.config.MinLengthRatio*float64(len([]rune(original))) {
		return "", fmt.Errorf("rewrite shrank to %d of %d characters", len([]rune(updated)), len([]rune(original)))
	}
	return updated, nil
}

func selectionPrompt(post *models.BlogPost, candidates []*models.BlogPost, config common.LinkerConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new article was published: %q (focus keyword: %q).\n\n", post.Article.Title, post.Article.FocusKeyword)
	fmt.Fprintf(&b, "Choose between %d and %d existing articles whose readers would benefit most from a link to it. ", config.MinTargets, config.MaxTargets)
	b.WriteString("Rank by topical relevance.\n\nExisting articles (id | title | focus keyword):\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "%s | %s | %s\n", c.ID, c.Article.Title, c.Article.FocusKeyword)
	}
	b.WriteString("\nReturn JSON only: {\"ids\": [\"<id>\", ...]}")
	return b.String()
}

func rewritePrompt(post, target *models.BlogPost, newURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Add exactly one contextual link to the article %q at %s.\n", post.Article.Title, newURL)
	b.WriteString("Modify exactly one existing sentence so it naturally includes a markdown link to that URL. ")
	b.WriteString("Return the complete article with every other character unchanged. Do not add commentary or code fences.\n\n")
	b.WriteString("Article:\n")
	b.WriteString(target.Article.Content)
	return b.String()
}
