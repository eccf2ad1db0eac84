package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/content"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/research"
)

// Stage names reported through ProgressFunc
const (
	StepResearch = "research"
	StepOutline  = "outline"
	StepDraft    = "draft"
	StepTone     = "tone"
	StepSEO      = "seo"
	StepMetadata = "metadata"
	StepImage    = "image"
)

// Progress percentages reported when each stage starts
var stepProgress = map[string]int{
	StepResearch: 10,
	StepOutline:  20,
	StepDraft:    35,
	StepTone:     55,
	StepSEO:      70,
	StepMetadata: 85,
	StepImage:    95,
}

// metadataBodyRunes bounds the article text sent to the metadata stage
const metadataBodyRunes = 12000

// ProgressFunc receives stage transitions. It must not block for long.
type ProgressFunc func(step string, progress int)

// Options describe one generation run
type Options struct {
	Keyword       string
	ContentLength models.ContentLength
	Website       *models.Website
	InternalLinks []models.InternalLink // Approved link targets for the SEO stage
	GenerateImage bool
	Model         string        // Threaded through every text call; empty uses the default
	Logger        arbor.ILogger // Per-run logger, e.g. carrying a correlation id
}

// Result is the generated article with a trace of stage decisions
type Result struct {
	Article     *models.GeneratedArticle
	Selection   Selection
	PostProcess content.PostProcessReport
	UsedStitch  bool // Sectioned fallback replaced the single-shot draft
}

// Controller runs the generation stages
type Controller struct {
	text       interfaces.TextService
	research   interfaces.ResearchService
	images     interfaces.ImageService
	thresholds Thresholds
	dedup      *content.Deduplicator
	sections   *content.SectionValidator
	logger     arbor.ILogger
}

// NewController creates a pipeline controller. images may be nil.
func NewController(
	text interfaces.TextService,
	researchSvc interfaces.ResearchService,
	images interfaces.ImageService,
	thresholds Thresholds,
	logger arbor.ILogger,
) *Controller {
	return &Controller{
		text:       text,
		research:   researchSvc,
		images:     images,
		thresholds: thresholds,
		dedup:      content.NewDeduplicator(thresholds.Content),
		sections:   content.NewSectionValidator(thresholds.Content),
		logger:     logger,
	}
}

// run carries per-invocation state through the stages
type run struct {
	opts     Options
	spec     models.LengthSpec
	logger   arbor.ILogger
	progress ProgressFunc
	research *models.ResearchResult
	outline  *Outline
}

// Run executes all stages. Research and image failures degrade; outline, draft,
// fallback and metadata failures are returned.
func (c *Controller) Run(ctx context.Context, opts Options, progress ProgressFunc) (*Result, error) {
	if strings.TrimSpace(opts.Keyword) == "" {
		return nil, fmt.Errorf("keyword is required")
	}
	if opts.Website == nil {
		return nil, fmt.Errorf("website is required")
	}
	if progress == nil {
		progress = func(string, int) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = c.logger
	}

	r := &run{
		opts:     opts,
		spec:     opts.ContentLength.Spec(),
		logger:   logger,
		progress: progress,
	}

	r.research = c.stageResearch(ctx, r)

	outline, err := c.stageOutline(ctx, r)
	if err != nil {
		return nil, err
	}
	r.outline = outline

	draft, stitched, err := c.stageDraft(ctx, r)
	if err != nil {
		return nil, err
	}

	chain := NewChain(draft)
	if err := c.stageTone(ctx, r, chain); err != nil {
		return nil, err
	}
	if err := c.stageSEO(ctx, r, chain); err != nil {
		return nil, err
	}

	selection := chain.Selection()
	allowed := content.DedupeAllowList(opts.InternalLinks)
	processed, report := content.NewPostProcessor(opts.Website.BaseURL, allowed, c.thresholds.Content).Process(selection.Best.Text)

	logger.Info().
		Str("chosen", selection.Best.Label).
		Strs("rejected", selection.Rejected).
		Int("links_stripped", report.LinksStripped).
		Int("placeholders_resolved", report.PlaceholdersResolved).
		Int("paragraphs_split", report.ParagraphsSplit).
		Msg("Best version selected and post-processed")

	article, err := c.stageMetadata(ctx, r, processed)
	if err != nil {
		return nil, err
	}

	c.stageImage(ctx, r, article)

	researchJSON, _ := json.Marshal(r.research)
	article.ResearchData = string(researchJSON)
	article.WordCount = content.WordCount(article.Content)
	article.ReadingTime = content.ReadingTime(article.WordCount)

	score := content.ScoreArticle(article, opts.Website.BaseURL)
	article.Score = score.Score
	article.ScoreBreakdown = score.Factors

	metrics.ArticleScore.Observe(float64(article.Score))
	metrics.ArticleWords.Observe(float64(article.WordCount))

	return &Result{
		Article:     article,
		Selection:   selection,
		PostProcess: report,
		UsedStitch:  stitched,
	}, nil
}

func (c *Controller) enter(r *run, step string) func() {
	r.progress(step, stepProgress[step])
	start := time.Now()
	r.logger.Debug().Str("step", step).Msg("Stage started")
	return func() {
		metrics.StageDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	}
}

// complete wraps a text call in the per-call timeout
func (c *Controller) complete(ctx context.Context, r *run, prompt, system string, temperature float32, maxTokens int) (*models.StageResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.thresholds.CallTimeout)
	defer cancel()
	return c.text.Complete(callCtx, prompt, system, interfaces.CompletionOptions{
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Model:       r.opts.Model,
	})
}

func (c *Controller) completeJSON(ctx context.Context, r *run, prompt string, maxTokens int, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, c.thresholds.CallTimeout)
	defer cancel()
	return c.text.CompleteJSON(callCtx, prompt, StrategistSystemPrompt, interfaces.CompletionOptions{
		Temperature: 0.4,
		MaxTokens:   maxTokens,
		Model:       r.opts.Model,
	}, out)
}

// stageResearch runs research under a hard timeout; slow or failed research degrades
func (c *Controller) stageResearch(ctx context.Context, r *run) *models.ResearchResult {
	defer c.enter(r, StepResearch)()

	w := r.opts.Website
	rc := models.ResearchContext{
		WebsiteName: w.Name,
		WebsiteURL:  w.BaseURL,
		BrandVoice:  w.BrandVoice,
		Audience:    w.Audience,
		Description: w.Description,
		Crawl:       w.AutoCrawl,
		Model:       r.opts.Model,
	}

	researchCtx, cancel := context.WithTimeout(ctx, c.thresholds.ResearchTimeout)
	defer cancel()

	done := make(chan *models.ResearchResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error().Str("panic", fmt.Sprintf("%v", rec)).Msg("Research panicked")
				done <- nil
			}
		}()
		done <- c.research.Research(researchCtx, r.opts.Keyword, rc)
	}()

	select {
	case result := <-done:
		if result != nil {
			return result
		}
	case <-researchCtx.Done():
		r.logger.Warn().Dur("timeout", c.thresholds.ResearchTimeout).Msg("Research timed out, using degraded result")
	}
	metrics.StageFallbacks.WithLabelValues(StepResearch, "degraded").Inc()
	return research.Degraded(r.opts.Keyword)
}

func (c *Controller) stageOutline(ctx context.Context, r *run) (*Outline, error) {
	defer c.enter(r, StepOutline)()

	var outline Outline
	if err := c.completeJSON(ctx, r, outlinePrompt(r.opts.Keyword, r.spec, r.opts.Website, r.research), 4096, &outline); err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	sections := outline.Sections[:0]
	for _, s := range outline.Sections {
		s.Heading = strings.TrimSpace(strings.TrimLeft(s.Heading, "# "))
		if s.Heading != "" {
			sections = append(sections, s)
		}
	}
	outline.Sections = sections
	if strings.TrimSpace(outline.Title) == "" {
		outline.Title = r.opts.Keyword
	}
	if len(contentSections(&outline)) == 0 {
		return nil, fmt.Errorf("outline generation failed: %w: no content sections", models.ErrMalformedJSON)
	}

	r.logger.Debug().
		Str("title", outline.Title).
		Int("sections", len(outline.Sections)).
		Msg("Outline ready")
	return &outline, nil
}

// contentSections drops the structural sections (key takeaways, TOC, FAQ)
func contentSections(o *Outline) []OutlineSection {
	var out []OutlineSection
	for _, s := range o.Sections {
		if !content.IsStructuralHeading(s.Heading) {
			out = append(out, s)
		}
	}
	return out
}

func headings(sections []OutlineSection) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Heading
	}
	return out
}

// stageDraft writes the single-shot draft and falls back to sectioned drafting
// when the draft is short, truncated or missing sections
func (c *Controller) stageDraft(ctx context.Context, r *run) (Candidate, bool, error) {
	defer c.enter(r, StepDraft)()

	result, err := c.complete(ctx, r, draftPrompt(r.opts.Keyword, r.spec, r.outline, r.opts.Website, r.research), WriterSystemPrompt, 0.7, r.spec.MaxTokens)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("draft generation failed: %w", err)
	}

	text := c.dedup.Apply(strings.TrimSpace(result.Text))
	draft := Candidate{Label: "draft", Text: text, Truncated: result.Truncated, Words: content.WordCount(text)}

	required := headings(contentSections(r.outline))
	missing := c.sections.Missing(draft.Text, required)

	reasons := draftGateReasons(draft, len(missing), r.spec, c.thresholds.SectionMissingLimit)
	if len(reasons) == 0 {
		return draft, false, nil
	}

	r.logger.Warn().
		Int("words", draft.Words).
		Int("min_words", r.spec.MinAccepted).
		Strs("missing_sections", missing).
		Bool("truncated", draft.Truncated).
		Strs("reasons", reasons).
		Msg("Draft failed quality gate, drafting section by section")
	for _, reason := range reasons {
		metrics.StageFallbacks.WithLabelValues(StepDraft, reason).Inc()
	}

	stitched, err := c.stitchDraft(ctx, r)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("sectioned draft failed: %w", err)
	}

	if preferStitched(draft, stitched) {
		r.logger.Info().Int("single_shot_words", draft.Words).Int("stitched_words", stitched.Words).Msg("Using sectioned draft")
		return stitched, true, nil
	}

	r.logger.Info().
		Int("single_shot_words", draft.Words).
		Int("stitched_words", stitched.Words).
		Bool("stitched_truncated", stitched.Truncated).
		Msg("Keeping single-shot draft")
	return draft, false, nil
}

// preferStitched picks the untruncated version when only one is truncated, else the longer
func preferStitched(draft, stitched Candidate) bool {
	if draft.Truncated != stitched.Truncated {
		return draft.Truncated
	}
	return stitched.Words > draft.Words
}

func draftGateReasons(draft Candidate, missing int, spec models.LengthSpec, missingLimit int) []string {
	var reasons []string
	if draft.Words < spec.MinAccepted {
		reasons = append(reasons, "too_short")
	}
	if missing >= missingLimit {
		reasons = append(reasons, "missing_sections")
	}
	if draft.Truncated {
		reasons = append(reasons, "truncated")
	}
	return reasons
}

// stitchDraft generates intro, each content section and an optional FAQ independently
func (c *Controller) stitchDraft(ctx context.Context, r *run) (Candidate, error) {
	sections := contentSections(r.outline)
	budget := sectionBudget(r.spec, len(sections))

	var parts []string
	var truncated []string

	intro, err := c.complete(ctx, r, introPrompt(r.opts.Keyword, r.spec, r.outline, r.opts.Website), WriterSystemPrompt, 0.7, tokensFor(r.spec.IntroWords*2))
	if err != nil {
		return Candidate{}, fmt.Errorf("intro: %w", err)
	}
	if intro.Truncated {
		truncated = append(truncated, "intro")
	}
	parts = append(parts, strings.TrimSpace(intro.Text))

	for _, section := range sections {
		res, err := c.complete(ctx, r, sectionPrompt(r.opts.Keyword, r.outline, section, budget, r.opts.Website, r.research), WriterSystemPrompt, 0.7, tokensFor(budget))
		if err != nil {
			return Candidate{}, fmt.Errorf("section %q: %w", section.Heading, err)
		}
		if res.Truncated {
			truncated = append(truncated, section.Heading)
		}
		parts = append(parts, ensureHeading(res.Text, section.Heading))
	}

	if len(r.research.CommonQuestions) > 0 {
		faq, err := c.complete(ctx, r, faqPrompt(r.opts.Keyword, r.research.CommonQuestions), WriterSystemPrompt, 0.6, tokensFor(len(r.research.CommonQuestions)*80))
		if err != nil {
			return Candidate{}, fmt.Errorf("faq: %w", err)
		}
		if faq.Truncated {
			truncated = append(truncated, "faq")
		}
		parts = append(parts, ensureHeading(faq.Text, "Frequently Asked Questions"))
	}

	if len(truncated) > 0 {
		r.logger.Warn().Strs("truncated_parts", truncated).Msg("Sectioned draft hit the token budget")
	}

	text := c.dedup.Apply(strings.Join(nonEmpty(parts), "\n\n"))
	return Candidate{Label: "stitched", Text: text, Truncated: len(truncated) > 0, Words: content.WordCount(text)}, nil
}

// sectionBudget spreads the target midpoint over the content sections
func sectionBudget(spec models.LengthSpec, sections int) int {
	if sections <= 0 {
		return spec.SectionFloor
	}
	target := (spec.MinWords+spec.MaxWords)/2 - spec.IntroWords
	per := target / sections
	if per < spec.SectionFloor {
		per = spec.SectionFloor
	}
	return per
}

// tokensFor converts a word budget into an output token budget with headroom
func tokensFor(words int) int {
	tokens := words*2 + 512
	if tokens < 1024 {
		tokens = 1024
	}
	return tokens
}

func ensureHeading(text, heading string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "## ") {
		return text
	}
	return "## " + heading + "\n\n" + text
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Controller) stageTone(ctx context.Context, r *run, chain *Chain) error {
	defer c.enter(r, StepTone)()

	base := chain.Best()
	result, err := c.complete(ctx, r, tonePrompt(base.Text, r.opts.Website), EditorSystemPrompt, 0.5, tokensFor(base.Words))
	if err != nil {
		return fmt.Errorf("tone polish failed: %w", err)
	}

	c.offer(r, chain, StepTone, result, c.thresholds.ToneTolerance)
	return nil
}

func (c *Controller) stageSEO(ctx context.Context, r *run, chain *Chain) error {
	defer c.enter(r, StepSEO)()

	base := chain.Best()
	links := content.DedupeAllowList(r.opts.InternalLinks)
	result, err := c.complete(ctx, r, seoPrompt(r.opts.Keyword, base.Text, links), EditorSystemPrompt, 0.4, tokensFor(base.Words))
	if err != nil {
		return fmt.Errorf("seo optimization failed: %w", err)
	}

	c.offer(r, chain, StepSEO, result, c.thresholds.SEOTolerance)
	return nil
}

func (c *Controller) offer(r *run, chain *Chain, label string, result *models.StageResult, tolerance float64) {
	prev := chain.Best()
	text := c.dedup.Apply(strings.TrimSpace(result.Text))
	candidate := Candidate{Label: label, Text: text, Truncated: result.Truncated, Words: content.WordCount(text)}

	if chain.Offer(candidate, tolerance) {
		r.logger.Debug().Str("stage", label).Int("words", candidate.Words).Msg("Stage output accepted")
		return
	}

	reason := "shrank"
	if candidate.Truncated {
		reason = "truncated"
	}
	metrics.StageFallbacks.WithLabelValues(label, reason).Inc()
	r.logger.Warn().
		Str("stage", label).
		Str("reason", reason).
		Int("words", candidate.Words).
		Int("previous_words", prev.Words).
		Str("kept", prev.Label).
		Msg("Stage output rejected, keeping previous version")
}

func (c *Controller) stageMetadata(ctx context.Context, r *run, body string) (*models.GeneratedArticle, error) {
	defer c.enter(r, StepMetadata)()

	excerpt := []rune(body)
	if len(excerpt) > metadataBodyRunes {
		excerpt = excerpt[:metadataBodyRunes]
	}

	var meta Metadata
	if err := c.completeJSON(ctx, r, metadataPrompt(r.opts.Keyword, r.outline.Title, string(excerpt)), 2048, &meta); err != nil {
		return nil, fmt.Errorf("metadata generation failed: %w", err)
	}

	title := firstNonEmpty(meta.Title, r.outline.Title, r.opts.Keyword)
	slug := content.Slugify(firstNonEmpty(meta.Slug, title))
	if slug == "" {
		slug = content.Slugify(r.opts.Keyword)
	}

	return &models.GeneratedArticle{
		Title:             title,
		Slug:              slug,
		Content:           body,
		Excerpt:           strings.TrimSpace(meta.Excerpt),
		MetaTitle:         firstNonEmpty(meta.MetaTitle, title),
		MetaDescription:   strings.TrimSpace(meta.MetaDescription),
		FocusKeyword:      r.opts.Keyword,
		SecondaryKeywords: meta.SecondaryKeywords,
		Tags:              meta.Tags,
		Category:          strings.TrimSpace(meta.Category),
		StructuredData:    meta.StructuredData,
		SocialCaptions:    meta.SocialCaptions,
		FeaturedImageAlt:  firstNonEmpty(meta.ImageAlt, title),
	}, nil
}

// stageImage attaches a featured image; failures are logged and the image omitted
func (c *Controller) stageImage(ctx context.Context, r *run, article *models.GeneratedArticle) {
	if !r.opts.GenerateImage || c.images == nil {
		article.FeaturedImageAlt = ""
		return
	}
	defer c.enter(r, StepImage)()

	url, err := c.images.GenerateFeatured(ctx, models.ImageRequest{
		Prompt:    article.Title + ". " + r.opts.Keyword,
		Slug:      article.Slug,
		WebsiteID: r.opts.Website.ID,
		AltText:   article.FeaturedImageAlt,
	})
	if err != nil {
		metrics.StageFallbacks.WithLabelValues(StepImage, "error").Inc()
		r.logger.Warn().Err(err).Msg("Featured image generation failed, continuing without image")
		article.FeaturedImageAlt = ""
		return
	}
	article.FeaturedImageURL = url
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
