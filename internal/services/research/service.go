package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	// maxListItems caps each research list handed to later prompts
	maxListItems = 10
	// maxSiteContextRunes bounds crawled text carried in the result
	maxSiteContextRunes = 3000
)

const systemPrompt = `You are a senior SEO content strategist. You analyse what currently ranks for a search
keyword and identify what an article must cover to outrank it. Answer with JSON only.`

// Service performs competitive research through the text service.
// Research never fails; upstream errors yield a degraded generic result.
type Service struct {
	text    interfaces.TextService
	crawler interfaces.CrawlService
	logger  arbor.ILogger
}

var _ interfaces.ResearchService = (*Service)(nil)

// NewService creates a research service. crawler may be nil.
func NewService(text interfaces.TextService, crawler interfaces.CrawlService, logger arbor.ILogger) *Service {
	return &Service{text: text, crawler: crawler, logger: logger}
}

// Research gathers site context (when enabled) and asks the model for findings
func (s *Service) Research(ctx context.Context, keyword string, rc models.ResearchContext) *models.ResearchResult {
	siteContext := s.siteContext(ctx, rc)

	var raw models.ResearchResult
	err := s.text.CompleteJSON(ctx, buildPrompt(keyword, rc, siteContext), systemPrompt, interfaces.CompletionOptions{
		Temperature: 0.3,
		MaxTokens:   4096,
		Model:       rc.Model,
	}, &raw)
	if err != nil {
		s.logger.Warn().Err(err).Str("keyword", keyword).Msg("Research failed, using degraded result")
		result := Degraded(keyword)
		result.SiteContext = siteContext
		return result
	}

	result := normalize(&raw)
	result.SiteContext = siteContext

	s.logger.Debug().
		Str("keyword", keyword).
		Int("content_gaps", len(result.ContentGaps)).
		Int("questions", len(result.CommonQuestions)).
		Int("statistics", len(result.Statistics)).
		Msg("Research complete")

	return result
}

// Degraded returns the generic result used when research is unavailable
func Degraded(keyword string) *models.ResearchResult {
	return &models.ResearchResult{
		RawFindings:      fmt.Sprintf("No competitive research available for %q. Cover the topic comprehensively from first principles.", keyword),
		ContentGaps:      []string{},
		MissingSubtopics: []string{},
		CommonQuestions:  []string{},
		Statistics:       []string{},
		SuggestedAngle:   fmt.Sprintf("A practical, complete guide to %s", keyword),
		Degraded:         true,
	}
}

func (s *Service) siteContext(ctx context.Context, rc models.ResearchContext) string {
	if !rc.Crawl || s.crawler == nil || rc.WebsiteURL == "" {
		return ""
	}

	crawl := s.crawler.Crawl(ctx, rc.WebsiteURL)
	if crawl.IsEmpty() {
		return ""
	}

	var b strings.Builder
	if crawl.Title != "" {
		b.WriteString("Site title: " + crawl.Title + "\n")
	}
	if crawl.MetaDescription != "" {
		b.WriteString("Site description: " + crawl.MetaDescription + "\n")
	}
	if len(crawl.Pages) > 0 {
		b.WriteString("Site sections:")
		for i, p := range crawl.Pages {
			if i == maxListItems {
				break
			}
			b.WriteString(" " + p.Title + ";")
		}
		b.WriteString("\n")
	}
	if crawl.PageText != "" {
		b.WriteString("\n" + crawl.PageText)
	}

	text := []rune(strings.TrimSpace(b.String()))
	if len(text) > maxSiteContextRunes {
		text = text[:maxSiteContextRunes]
	}
	return string(text)
}

func buildPrompt(keyword string, rc models.ResearchContext, siteContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research the search keyword %q.\n\n", keyword)

	if rc.WebsiteName != "" {
		fmt.Fprintf(&b, "The article will be published by %s (%s).\n", rc.WebsiteName, rc.WebsiteURL)
	}
	if rc.Description != "" {
		fmt.Fprintf(&b, "Business: %s\n", rc.Description)
	}
	if rc.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", rc.Audience)
	}
	if siteContext != "" {
		fmt.Fprintf(&b, "\nWebsite context:\n%s\n", siteContext)
	}

	b.WriteString(`
Return a JSON object with these fields:
{
  "raw_findings": "summary of what top-ranking content covers",
  "content_gaps": ["topics competitors miss"],
  "missing_subtopics": ["subtopics a complete article needs"],
  "common_questions": ["questions searchers ask"],
  "statistics": ["relevant statistics with their source"],
  "suggested_angle": "the unique angle this article should take"
}
Use at most 10 items per list.`)
	return b.String()
}

func normalize(raw *models.ResearchResult) *models.ResearchResult {
	return &models.ResearchResult{
		RawFindings:      strings.TrimSpace(raw.RawFindings),
		ContentGaps:      cleanList(raw.ContentGaps),
		MissingSubtopics: cleanList(raw.MissingSubtopics),
		CommonQuestions:  cleanList(raw.CommonQuestions),
		Statistics:       cleanList(raw.Statistics),
		SuggestedAngle:   strings.TrimSpace(raw.SuggestedAngle),
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}
