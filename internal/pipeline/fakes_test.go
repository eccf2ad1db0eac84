package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	callOutline  = "outline"
	callMetadata = "metadata"
	callDraft    = "draft"
	callIntro    = "intro"
	callSection  = "section"
	callFAQ      = "faq"
	callTone     = "tone"
	callSEO      = "seo"
)

type textCall struct {
	kind   string
	prompt string
	opts   interfaces.CompletionOptions
}

// scriptedText routes each call by prompt shape to a scripted response
type scriptedText struct {
	mu    sync.Mutex
	calls []textCall

	outline  string
	metadata string
	jsonErr  map[string]error

	draft   func(prompt string) *models.StageResult
	intro   func(prompt string) *models.StageResult
	section func(heading string) *models.StageResult
	faq     func(prompt string) *models.StageResult
	tone    func(body string) *models.StageResult
	seo     func(body string) *models.StageResult
}

func classify(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "Plan an article"):
		return callOutline
	case strings.HasPrefix(prompt, "Produce publishing metadata"):
		return callMetadata
	case strings.HasPrefix(prompt, "Write the full article"):
		return callDraft
	case strings.HasPrefix(prompt, "Write only the opening"):
		return callIntro
	case strings.HasPrefix(prompt, "You are writing one section"):
		return callSection
	case strings.HasPrefix(prompt, `Write a "## Frequently`):
		return callFAQ
	case strings.HasPrefix(prompt, "Polish the article"):
		return callTone
	case strings.HasPrefix(prompt, "Optimise the article"):
		return callSEO
	}
	return "unknown"
}

func articleBody(prompt string) string {
	idx := strings.LastIndex(prompt, "Article:\n")
	if idx < 0 {
		return ""
	}
	return prompt[idx+len("Article:\n"):]
}

func sectionHeading(prompt string) string {
	const marker = `starting with the line "## `
	idx := strings.Index(prompt, marker)
	if idx < 0 {
		return ""
	}
	rest := prompt[idx+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}

func (s *scriptedText) record(kind, prompt string, opts interfaces.CompletionOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, textCall{kind: kind, prompt: prompt, opts: opts})
}

func (s *scriptedText) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func (s *scriptedText) Complete(ctx context.Context, prompt, system string, opts interfaces.CompletionOptions) (*models.StageResult, error) {
	kind := classify(prompt)
	s.record(kind, prompt, opts)

	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("text call without deadline")
	}

	var fn func(string) *models.StageResult
	arg := prompt
	switch kind {
	case callDraft:
		fn = s.draft
	case callIntro:
		fn = s.intro
	case callSection:
		fn = s.section
		arg = sectionHeading(prompt)
	case callFAQ:
		fn = s.faq
	case callTone:
		fn = s.tone
		arg = articleBody(prompt)
	case callSEO:
		fn = s.seo
		arg = articleBody(prompt)
	}
	if fn == nil {
		return nil, fmt.Errorf("unscripted call %q", kind)
	}
	return fn(arg), nil
}

func (s *scriptedText) CompleteJSON(ctx context.Context, prompt, system string, opts interfaces.CompletionOptions, out interface{}) error {
	kind := classify(prompt)
	s.record(kind, prompt, opts)

	if err := s.jsonErr[kind]; err != nil {
		return err
	}

	body := s.outline
	if kind == callMetadata {
		body = s.metadata
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedJSON, err)
	}
	return nil
}

func echo(body string) *models.StageResult {
	return &models.StageResult{Text: body, FinishReason: "STOP"}
}

func fixed(text string) func(string) *models.StageResult {
	return func(string) *models.StageResult { return &models.StageResult{Text: text, FinishReason: "STOP"} }
}

// prose builds n distinct words in 50-word paragraphs
func prose(prefix string, n int) string {
	var paragraphs []string
	var words []string
	for i := 0; i < n; i++ {
		words = append(words, fmt.Sprintf("%s%d", prefix, i))
		if len(words) == 50 || i == n-1 {
			paragraphs = append(paragraphs, strings.Join(words, " ")+".")
			words = nil
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func section(heading, prefix string, n int) string {
	return "## " + heading + "\n\n" + prose(prefix, n)
}

var contentHeadings = []string{
	"What Is Invoicing Software",
	"Top Features To Compare",
	"Pricing Compared",
	"How To Choose",
	"Conclusion",
}

const outlineJSON = `{
  "title": "Best Invoicing Software for Small Teams",
  "unique_angle": "Compare by team size",
  "sections": [
    {"heading": "Key Takeaways", "points": ["summary"]},
    {"heading": "Table of Contents", "points": []},
    {"heading": "What Is Invoicing Software", "points": ["definition"]},
    {"heading": "## Top Features To Compare", "points": ["features"]},
    {"heading": "Pricing Compared", "points": ["pricing"]},
    {"heading": "How To Choose", "points": ["checklist"]},
    {"heading": "Conclusion", "points": ["wrap up"]}
  ]
}`

const metadataJSON = `{
  "title": "Best Invoicing Software for Small Teams",
  "slug": "Best Invoicing Software!",
  "excerpt": "A practical comparison.",
  "meta_title": "Best Invoicing Software for Small Teams in 2026",
  "meta_description": "Compare the best invoicing software for small teams by features, pricing and ease of use, with a checklist to help you choose the right tool today.",
  "tags": ["invoicing", "software"],
  "category": "Finance",
  "social_captions": {"twitter": "New guide"},
  "structured_data": {"@type": "Article"},
  "image_alt": "Invoices on a desk"
}`

// fullArticle covers every content heading with perSection words each
func fullArticle(prefix string, perSection int) string {
	var parts []string
	for i, h := range contentHeadings {
		parts = append(parts, section(h, fmt.Sprintf("%s%d-", prefix, i), perSection))
	}
	return strings.Join(parts, "\n\n")
}

type stubResearch struct {
	result *models.ResearchResult
	block  bool
}

func (s *stubResearch) Research(ctx context.Context, keyword string, rc models.ResearchContext) *models.ResearchResult {
	if s.block {
		<-ctx.Done()
		// Returns after the pipeline has already moved on
		time.Sleep(100 * time.Millisecond)
		return &models.ResearchResult{RawFindings: "late"}
	}
	return s.result
}

type stubImages struct {
	url string
	err error
	req models.ImageRequest
}

func (s *stubImages) GenerateFeatured(ctx context.Context, req models.ImageRequest) (string, error) {
	s.req = req
	return s.url, s.err
}

func testWebsite() *models.Website {
	w := models.NewWebsite("Acme", "https://acme.test")
	w.BrandVoice = "warm and direct"
	return w
}

func newTestController(text interfaces.TextService, research interfaces.ResearchService, images interfaces.ImageService) *Controller {
	thresholds := DefaultThresholds()
	thresholds.CallTimeout = 5 * time.Second
	thresholds.ResearchTimeout = 200 * time.Millisecond
	return NewController(text, research, images, thresholds, arbor.NewLogger())
}

func baseScript() *scriptedText {
	return &scriptedText{
		outline:  outlineJSON,
		metadata: metadataJSON,
		jsonErr:  map[string]error{},
		tone:     echo,
		seo:      echo,
	}
}
