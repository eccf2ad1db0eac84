package pipeline

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

// WriterSystemPrompt frames every prose-producing call
const WriterSystemPrompt = `You are an experienced long-form content writer for business blogs.

## Writing Rules

- Write in Markdown. Use ## for main sections and ### for subsections. Never emit a # title line.
- Short paragraphs of two to four sentences.
- Concrete, specific, practical. Prefer examples and numbers over generalities.
- Never invent statistics, quotes, or sources. Only use figures supplied in the brief.
- Never repeat a section or paragraph you have already written.
- Output the article body only, with no preamble and no closing remarks to the reader about the task.`

// EditorSystemPrompt frames the rewrite stages
const EditorSystemPrompt = `You are a meticulous editor. You improve an existing Markdown article without
shortening it. Keep every heading, fact, list, table and link unless told otherwise. Return the complete
article body only, with no commentary.`

// StrategistSystemPrompt frames the structured JSON stages
const StrategistSystemPrompt = `You are an SEO content strategist. Answer with a single JSON object only.`

// Outline is the structured plan produced by the outline stage
type Outline struct {
	Title       string           `json:"title"`
	Sections    []OutlineSection `json:"sections"`
	UniqueAngle string           `json:"unique_angle"`
}

// OutlineSection is one planned ## section
type OutlineSection struct {
	Heading string   `json:"heading"`
	Points  []string `json:"points"`
}

// Metadata is the structured output of the metadata stage
type Metadata struct {
	Title             string                 `json:"title"`
	Slug              string                 `json:"slug"`
	Excerpt           string                 `json:"excerpt"`
	MetaTitle         string                 `json:"meta_title"`
	MetaDescription   string                 `json:"meta_description"`
	SecondaryKeywords []string               `json:"secondary_keywords"`
	Tags              []string               `json:"tags"`
	Category          string                 `json:"category"`
	SocialCaptions    map[string]string      `json:"social_captions"`
	StructuredData    map[string]interface{} `json:"structured_data"`
	ImageAlt          string                 `json:"image_alt"`
}

func brandBlock(w *models.Website) string {
	if w == nil {
		return ""
	}
	var b strings.Builder
	if w.Name != "" {
		fmt.Fprintf(&b, "Publisher: %s (%s)\n", w.Name, w.BaseURL)
	}
	if w.Description != "" {
		fmt.Fprintf(&b, "Business: %s\n", w.Description)
	}
	if w.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", w.Audience)
	}
	if w.BrandVoice != "" {
		fmt.Fprintf(&b, "Brand voice: %s\n", w.BrandVoice)
	}
	return b.String()
}

func researchBlock(r *models.ResearchResult) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if r.RawFindings != "" {
		fmt.Fprintf(&b, "Findings: %s\n", r.RawFindings)
	}
	writeList(&b, "Content gaps", r.ContentGaps)
	writeList(&b, "Missing subtopics", r.MissingSubtopics)
	writeList(&b, "Common questions", r.CommonQuestions)
	writeList(&b, "Statistics (cite only these)", r.Statistics)
	if r.SuggestedAngle != "" {
		fmt.Fprintf(&b, "Suggested angle: %s\n", r.SuggestedAngle)
	}
	if r.SiteContext != "" {
		fmt.Fprintf(&b, "\nPublisher website context:\n%s\n", r.SiteContext)
	}
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func outlineBlock(o *Outline) string {
	var b strings.Builder
	for _, s := range o.Sections {
		fmt.Fprintf(&b, "## %s\n", s.Heading)
		for _, p := range s.Points {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

func outlinePrompt(keyword string, spec models.LengthSpec, w *models.Website, r *models.ResearchResult) string {
	return fmt.Sprintf(`Plan an article targeting the keyword %q.
Target length: %d-%d words.

%s
Research:
%s
Return JSON:
{
  "title": "compelling title containing the keyword",
  "sections": [{"heading": "section heading", "points": ["what the section covers"]}],
  "unique_angle": "what makes this article different"
}
Start with a "Key Takeaways" section and a "Table of Contents" section, then the content sections,
then a "Conclusion" section. Use between 4 and 10 content sections.`,
		keyword, spec.MinWords, spec.MaxWords, brandBlock(w), researchBlock(r))
}

func draftPrompt(keyword string, spec models.LengthSpec, o *Outline, w *models.Website, r *models.ResearchResult) string {
	return fmt.Sprintf(`Write the full article %q targeting the keyword %q.
Length: %d-%d words. Cover every section of the outline in order and use its headings verbatim.

Outline:
%s
Unique angle: %s

%s
Research:
%s`,
		o.Title, keyword, spec.MinWords, spec.MaxWords, outlineBlock(o), o.UniqueAngle, brandBlock(w), researchBlock(r))
}

func introPrompt(keyword string, spec models.LengthSpec, o *Outline, w *models.Website) string {
	var toc strings.Builder
	for _, s := range o.Sections {
		fmt.Fprintf(&toc, "- %s\n", s.Heading)
	}
	return fmt.Sprintf(`Write only the opening of the article %q (keyword %q), about %d words:
1. A hook paragraph that uses the keyword in its first sentence.
2. A "## Key Takeaways" section with 4-6 bullet points.
3. A "## Table of Contents" section listing these headings as Markdown anchor links:
%s
Do not write any of the sections themselves.

%s`,
		o.Title, keyword, spec.IntroWords, toc.String(), brandBlock(w))
}

func sectionPrompt(keyword string, o *Outline, section OutlineSection, words int, w *models.Website, r *models.ResearchResult) string {
	var points strings.Builder
	for _, p := range section.Points {
		fmt.Fprintf(&points, "- %s\n", p)
	}
	return fmt.Sprintf(`You are writing one section of the article %q (keyword %q).
Write only this section, about %d words, starting with the line "## %s".
Cover:
%s
%s
Research:
%s`,
		o.Title, keyword, words, section.Heading, points.String(), brandBlock(w), researchBlock(r))
}

func faqPrompt(keyword string, questions []string) string {
	var b strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	return fmt.Sprintf(`Write a "## Frequently Asked Questions" section for an article about %q.
Answer each question below under a ### heading in two to four sentences:
%s`, keyword, b.String())
}

func tonePrompt(body string, w *models.Website) string {
	voice := "clear, confident and friendly"
	if w != nil && w.BrandVoice != "" {
		voice = w.BrandVoice
	}
	return fmt.Sprintf(`Polish the article below so it reads in this voice: %s.
Keep every heading, fact, number, list and link. Do not remove sections or shorten the article.

%s

Article:
%s`, voice, brandBlock(w), body)
}

func seoPrompt(keyword string, body string, links []models.InternalLink) string {
	var b strings.Builder
	if len(links) == 0 {
		b.WriteString("Do not add any links to this website.\n")
	} else {
		b.WriteString("You may link to these pages of the same website, each at most once, using natural anchor text.\n")
		b.WriteString("Do not link to any other page of this website:\n")
		for _, l := range links {
			fmt.Fprintf(&b, "- %s: %s\n", l.Title, l.URL)
		}
	}
	return fmt.Sprintf(`Optimise the article below for the keyword %q without shortening it:
- Use the keyword in the first paragraph and in at least one ## heading.
- Keep keyword density natural (0.5%% to 2.5%%).
- Keep every heading, fact and section.

%s
Article:
%s`, keyword, b.String(), body)
}

func metadataPrompt(keyword string, title string, body string) string {
	return fmt.Sprintf(`Produce publishing metadata for the article below (focus keyword %q, working title %q).
Return JSON:
{
  "title": "final title",
  "slug": "url-slug",
  "excerpt": "one or two sentence summary",
  "meta_title": "30-60 characters, includes the keyword",
  "meta_description": "120-160 characters, includes the keyword",
  "secondary_keywords": ["..."],
  "tags": ["..."],
  "category": "single category",
  "social_captions": {"twitter": "...", "linkedin": "...", "facebook": "..."},
  "structured_data": {"@context": "https://schema.org", "@type": "Article", "headline": "..."},
  "image_alt": "alt text for a featured image"
}

Article:
%s`, keyword, title, body)
}
