package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/content"
	"github.com/ternarybob/scribe/internal/models"
)

func runOptions() Options {
	return Options{
		Keyword:       "best invoicing software",
		ContentLength: models.ContentLengthMedium,
		Website:       testWebsite(),
		Model:         "claude-sonnet-4-5",
	}
}

// shortDraft is ~900 words covering only three of the five content sections
func shortDraft() string {
	return strings.Join([]string{
		section(contentHeadings[0], "d0-", 300),
		section(contentHeadings[1], "d1-", 300),
		section(contentHeadings[2], "d2-", 300),
	}, "\n\n")
}

func TestRun_ShortDraftUsesLongerStitchedVersion(t *testing.T) {
	text := baseScript()
	text.draft = fixed(shortDraft())
	text.intro = fixed("Invoicing eats hours every month.\n\n## Key Takeaways\n\n- Automate reminders.")
	text.section = func(heading string) *models.StageResult {
		return &models.StageResult{Text: section(heading, strings.ReplaceAll(heading, " ", ""), 300)}
	}
	text.faq = fixed("## Frequently Asked Questions\n\n### Is it free?\n\nSome plans are.")

	researchSvc := &stubResearch{result: &models.ResearchResult{CommonQuestions: []string{"Is it free?"}}}
	ctrl := newTestController(text, researchSvc, nil)

	result, err := ctrl.Run(context.Background(), runOptions(), nil)
	require.NoError(t, err)

	draftWords := content.WordCount(shortDraft())
	assert.Less(t, draftWords, models.ContentLengthMedium.Spec().MinAccepted)

	assert.True(t, result.UsedStitch)
	assert.Equal(t, "stitched", result.Selection.Accepted[0])
	assert.Greater(t, result.Article.WordCount, draftWords)
	assert.Equal(t, len(contentHeadings), text.count(callSection))
	assert.Equal(t, 1, text.count(callIntro))
	assert.Equal(t, 1, text.count(callFAQ))

	for _, h := range contentHeadings {
		assert.Contains(t, result.Article.Content, "## "+h)
	}
	assert.Contains(t, result.Article.Content, "## Frequently Asked Questions")
}

func TestRun_ShortDraftKeptWhenStitchedIsShorter(t *testing.T) {
	text := baseScript()
	text.draft = fixed(shortDraft())
	text.intro = fixed("Short hook.")
	text.section = func(heading string) *models.StageResult {
		return &models.StageResult{Text: prose(strings.ReplaceAll(heading, " ", ""), 60)}
	}

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)
	result, err := ctrl.Run(context.Background(), runOptions(), nil)
	require.NoError(t, err)

	assert.False(t, result.UsedStitch)
	assert.Equal(t, "draft", result.Selection.Accepted[0])
	assert.Equal(t, shortDraft(), result.Article.Content)
	assert.Zero(t, text.count(callFAQ))
}

func TestRun_ShortDraftKeptOverLongerTruncatedStitch(t *testing.T) {
	text := baseScript()
	text.draft = fixed(shortDraft())
	text.intro = fixed("Invoicing eats hours every month.")
	text.section = func(heading string) *models.StageResult {
		res := &models.StageResult{Text: section(heading, strings.ReplaceAll(heading, " ", ""), 300)}
		if heading == contentHeadings[len(contentHeadings)-1] {
			res.Truncated = true
			res.FinishReason = "MAX_TOKENS"
		}
		return res
	}

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)
	result, err := ctrl.Run(context.Background(), runOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, len(contentHeadings), text.count(callSection))
	assert.False(t, result.UsedStitch)
	assert.Equal(t, "draft", result.Selection.Accepted[0])
}

func TestPreferStitched(t *testing.T) {
	short := Candidate{Words: 900}
	long := Candidate{Words: 1500}
	assert.True(t, preferStitched(short, long))
	assert.False(t, preferStitched(long, short))
	assert.False(t, preferStitched(short, Candidate{Words: 1500, Truncated: true}))
	assert.True(t, preferStitched(Candidate{Words: 1500, Truncated: true}, short))
}

func TestRun_TruncatedDraftTriggersFallback(t *testing.T) {
	text := baseScript()
	text.draft = func(string) *models.StageResult {
		return &models.StageResult{Text: fullArticle("d", 300), Truncated: true, FinishReason: "MAX_TOKENS"}
	}
	text.intro = fixed("Hook.")
	text.section = func(heading string) *models.StageResult {
		return &models.StageResult{Text: section(heading, strings.ReplaceAll(heading, " ", ""), 350)}
	}

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)
	result, err := ctrl.Run(context.Background(), runOptions(), nil)
	require.NoError(t, err)
	assert.True(t, result.UsedStitch)
}

func TestRun_TruncatedSEOKeepsToneVersion(t *testing.T) {
	toneText := fullArticle("t", 270)

	text := baseScript()
	text.draft = fixed(fullArticle("d", 280))
	text.tone = fixed(toneText)
	text.seo = func(body string) *models.StageResult {
		runes := []rune(body)
		return &models.StageResult{Text: string(runes[:len(runes)*40/100]), Truncated: true, FinishReason: "MAX_TOKENS"}
	}

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)
	result, err := ctrl.Run(context.Background(), runOptions(), nil)
	require.NoError(t, err)

	assert.False(t, result.UsedStitch)
	assert.Equal(t, "tone", result.Selection.Best.Label)
	assert.Equal(t, []string{"seo"}, result.Selection.Rejected)
	assert.Equal(t, toneText, result.Article.Content)
	assert.GreaterOrEqual(t, result.Article.WordCount, content.WordCount(toneText))
}

func TestRun_ShrunkenToneRejected(t *testing.T) {
	draft := fullArticle("d", 280)

	text := baseScript()
	text.draft = fixed(draft)
	text.tone = fixed(fullArticle("t", 150))

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)
	result, err := ctrl.Run(context.Background(), runOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"tone"}, result.Selection.Rejected)
	assert.Equal(t, "seo", result.Selection.Best.Label)
	assert.Equal(t, draft, result.Article.Content)

	// SEO starts from the draft, not from the rejected tone output
	for _, c := range text.calls {
		if c.kind == callSEO {
			assert.Equal(t, draft, articleBody(c.prompt))
		}
	}
}

func TestRun_BuildsArticleMetadataAndScore(t *testing.T) {
	text := baseScript()
	text.draft = fixed(fullArticle("d", 300))

	var mu sync.Mutex
	var steps []string
	var progress []int
	images := &stubImages{url: "/images/site/best-invoicing-software.png"}

	opts := runOptions()
	opts.GenerateImage = true

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{Statistics: []string{"stat"}}}, images)
	result, err := ctrl.Run(context.Background(), opts, func(step string, p int) {
		mu.Lock()
		defer mu.Unlock()
		steps = append(steps, step)
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{StepResearch, StepOutline, StepDraft, StepTone, StepSEO, StepMetadata, StepImage}, steps)
	assert.Equal(t, []int{10, 20, 35, 55, 70, 85, 95}, progress)

	a := result.Article
	assert.Equal(t, "Best Invoicing Software for Small Teams", a.Title)
	assert.Equal(t, "best-invoicing-software", a.Slug)
	assert.Equal(t, "best invoicing software", a.FocusKeyword)
	assert.Equal(t, "Finance", a.Category)
	assert.Equal(t, "/images/site/best-invoicing-software.png", a.FeaturedImageURL)
	assert.Equal(t, "Invoices on a desk", a.FeaturedImageAlt)
	assert.Equal(t, opts.Website.ID, images.req.WebsiteID)
	assert.Equal(t, content.WordCount(a.Content), a.WordCount)
	assert.Equal(t, content.ReadingTime(a.WordCount), a.ReadingTime)
	assert.Contains(t, a.ResearchData, `"statistics":["stat"]`)
	assert.NotEmpty(t, a.ScoreBreakdown)
	assert.Equal(t, content.ScoreArticle(a, opts.Website.BaseURL).Score, a.Score)

	for _, c := range text.calls {
		assert.Equal(t, "claude-sonnet-4-5", c.opts.Model, "model override must reach %s", c.kind)
	}
}

func TestRun_ImageFailureIsNotFatal(t *testing.T) {
	text := baseScript()
	text.draft = fixed(fullArticle("d", 300))

	opts := runOptions()
	opts.GenerateImage = true

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, &stubImages{err: errors.New("quota")})
	result, err := ctrl.Run(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Article.FeaturedImageURL)
	assert.Empty(t, result.Article.FeaturedImageAlt)
}

func TestRun_ResearchTimeoutDegrades(t *testing.T) {
	text := baseScript()
	text.draft = fixed(fullArticle("d", 300))

	ctrl := newTestController(text, &stubResearch{block: true}, nil)

	start := time.Now()
	result, err := ctrl.Run(context.Background(), runOptions(), nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Contains(t, result.Article.ResearchData, `"degraded":true`)
}

func TestRun_StructuredStageErrorsPropagate(t *testing.T) {
	t.Run("outline", func(t *testing.T) {
		text := baseScript()
		text.jsonErr[callOutline] = models.ErrMalformedJSON
		ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)

		_, err := ctrl.Run(context.Background(), runOptions(), nil)
		assert.ErrorIs(t, err, models.ErrMalformedJSON)
		assert.Zero(t, text.count(callDraft))
	})

	t.Run("outline without content sections", func(t *testing.T) {
		text := baseScript()
		text.outline = `{"title":"x","sections":[{"heading":"FAQ"}]}`
		ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)

		_, err := ctrl.Run(context.Background(), runOptions(), nil)
		assert.ErrorIs(t, err, models.ErrMalformedJSON)
	})

	t.Run("metadata", func(t *testing.T) {
		text := baseScript()
		text.draft = fixed(fullArticle("d", 300))
		text.jsonErr[callMetadata] = models.ErrMalformedJSON
		ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)

		_, err := ctrl.Run(context.Background(), runOptions(), nil)
		assert.ErrorIs(t, err, models.ErrMalformedJSON)
	})
}

func TestRun_RequiresKeywordAndWebsite(t *testing.T) {
	ctrl := newTestController(baseScript(), &stubResearch{}, nil)

	_, err := ctrl.Run(context.Background(), Options{Website: testWebsite()}, nil)
	assert.Error(t, err)

	_, err = ctrl.Run(context.Background(), Options{Keyword: "k"}, nil)
	assert.Error(t, err)
}

func TestRun_SEOPromptCarriesDedupedAllowList(t *testing.T) {
	text := baseScript()
	text.draft = fixed(fullArticle("d", 300))

	opts := runOptions()
	opts.InternalLinks = []models.InternalLink{
		{URL: "https://acme.test/blog/late-payments", Title: "Late payments"},
		{URL: "https://acme.test/blog/late-payments/", Title: "Late payments again"},
		{URL: "https://acme.test/blog/cash-flow", Title: "Cash flow"},
	}

	ctrl := newTestController(text, &stubResearch{result: &models.ResearchResult{}}, nil)
	_, err := ctrl.Run(context.Background(), opts, nil)
	require.NoError(t, err)

	for _, c := range text.calls {
		if c.kind == callSEO {
			assert.Equal(t, 1, strings.Count(c.prompt, "late-payments"))
			assert.Contains(t, c.prompt, "https://acme.test/blog/cash-flow")
		}
	}
}

func TestSectionBudget(t *testing.T) {
	spec := models.ContentLengthMedium.Spec()
	assert.Equal(t, (1750-200)/5, sectionBudget(spec, 5))
	assert.Equal(t, spec.SectionFloor, sectionBudget(spec, 40))
	assert.Equal(t, spec.SectionFloor, sectionBudget(spec, 0))
}
