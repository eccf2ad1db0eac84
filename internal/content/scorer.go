package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ScoreInput is the article and metadata to score.
type ScoreInput struct {
	Content          string
	Title            string
	MetaTitle        string
	MetaDescription  string
	FocusKeyword     string
	FeaturedImageURL string
	FeaturedImageAlt string
	SiteURL          string
}

// ScoreResult is a 0-100 score with its per-factor breakdown.
type ScoreResult struct {
	Score   int                  `json:"score"`
	Factors []models.ScoreFactor `json:"factors"`
}

// ScoreArticle scores a generated article against its own metadata.
func ScoreArticle(article *models.GeneratedArticle, siteURL string) ScoreResult {
	return Score(ScoreInput{
		Content:          article.Content,
		Title:            article.Title,
		MetaTitle:        article.MetaTitle,
		MetaDescription:  article.MetaDescription,
		FocusKeyword:     article.FocusKeyword,
		FeaturedImageURL: article.FeaturedImageURL,
		FeaturedImageAlt: article.FeaturedImageAlt,
		SiteURL:          siteURL,
	})
}

// Score is a pure function of its input. It reports quality and never gates publishing.
func Score(in ScoreInput) ScoreResult {
	stats := parseMarkdown(in.Content)
	keyword := strings.ToLower(strings.TrimSpace(in.FocusKeyword))
	words := WordCount(in.Content)

	var factors []models.ScoreFactor
	add := func(name string, earned, possible int, detail string) {
		factors = append(factors, models.ScoreFactor{
			Factor:         name,
			PointsEarned:   earned,
			PointsPossible: possible,
			Detail:         detail,
		})
	}

	// Keyword in title
	switch {
	case keyword == "":
		add("keyword_in_title", 0, 10, "no focus keyword")
	case strings.Contains(strings.ToLower(in.Title), keyword):
		add("keyword_in_title", 10, 10, "exact match")
	case containsAllWords(in.Title, keyword):
		add("keyword_in_title", 5, 10, "all keyword terms present")
	default:
		add("keyword_in_title", 0, 10, "missing")
	}

	// Keyword in first paragraph
	if keyword != "" && strings.Contains(strings.ToLower(stats.firstParagraph()), keyword) {
		add("keyword_in_intro", 10, 10, "")
	} else {
		add("keyword_in_intro", 0, 10, "missing from first paragraph")
	}

	// Keyword in headings
	inHeading := false
	for _, h := range stats.headings {
		if keyword != "" && (h.level == 2 || h.level == 3) && strings.Contains(strings.ToLower(h.text), keyword) {
			inHeading = true
			break
		}
	}
	if inHeading {
		add("keyword_in_headings", 5, 5, "")
	} else {
		add("keyword_in_headings", 0, 5, "no H2/H3 contains the keyword")
	}

	// Keyword density
	density := 0.0
	if keyword != "" && words > 0 {
		occurrences := strings.Count(strings.ToLower(in.Content), keyword)
		density = float64(occurrences*len(strings.Fields(keyword))) / float64(words) * 100
	}
	detail := fmt.Sprintf("%.2f%%", density)
	switch {
	case density >= 0.5 && density <= 2.5:
		add("keyword_density", 10, 10, detail)
	case density > 0:
		add("keyword_density", 3, 10, detail)
	default:
		add("keyword_density", 0, 10, detail)
	}

	// Meta title length
	add("meta_title_length", rangePoints(len([]rune(in.MetaTitle)), 30, 60, 10, 4), 10,
		fmt.Sprintf("%d chars", len([]rune(in.MetaTitle))))

	// Meta description length
	add("meta_description_length", rangePoints(len([]rune(in.MetaDescription)), 120, 160, 10, 4), 10,
		fmt.Sprintf("%d chars", len([]rune(in.MetaDescription))))

	add("word_count", WordCountPoints(words), 15, fmt.Sprintf("%d words", words))

	// Heading structure
	h2 := 0
	for _, h := range stats.headings {
		if h.level == 2 {
			h2++
		}
	}
	add("heading_structure", tierPoints(h2, 3, 10, 1, 5), 10, fmt.Sprintf("%d H2 headings", h2))

	// Internal links
	internal := 0
	for _, dest := range stats.links {
		if isInternalLink(dest, in.SiteURL) {
			internal++
		}
	}
	add("internal_links", tierPoints(internal, 3, 10, 1, 5), 10, fmt.Sprintf("%d internal links", internal))

	// Featured image
	if (in.FeaturedImageURL != "" && strings.TrimSpace(in.FeaturedImageAlt) != "") || stats.hasImageWithAlt() {
		add("featured_image", 5, 5, "")
	} else {
		add("featured_image", 0, 5, "no image with alt text")
	}

	// Paragraph length
	avg := stats.averageParagraphWords()
	if len(stats.paragraphs) > 0 && avg <= 120 {
		add("paragraph_length", 5, 5, fmt.Sprintf("avg %.0f words", avg))
	} else {
		add("paragraph_length", 0, 5, fmt.Sprintf("avg %.0f words", avg))
	}

	total := 0
	for _, f := range factors {
		total += f.PointsEarned
	}
	return ScoreResult{Score: total, Factors: factors}
}

// WordCountPoints maps a word count to its band. Non-decreasing in words.
func WordCountPoints(words int) int {
	switch {
	case words >= 1500:
		return 15
	case words >= 1000:
		return 10
	case words >= 600:
		return 5
	default:
		return 0
	}
}

func rangePoints(n, lo, hi, full, partial int) int {
	switch {
	case n >= lo && n <= hi:
		return full
	case n > 0:
		return partial
	default:
		return 0
	}
}

func tierPoints(n, highAt, high, lowAt, low int) int {
	switch {
	case n >= highAt:
		return high
	case n >= lowAt:
		return low
	default:
		return 0
	}
}

func containsAllWords(s, keyword string) bool {
	lower := strings.ToLower(s)
	for _, w := range strings.Fields(keyword) {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	return keyword != ""
}

func isInternalLink(dest, siteURL string) bool {
	if isFragmentOrScheme(dest) {
		return false
	}
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return u.Scheme == ""
	}
	site, err := url.Parse(siteURL)
	return err == nil && site.Host != "" && bareHost(site.Host) == bareHost(u.Host)
}

type mdHeading struct {
	level int
	text  string
}

type mdImage struct {
	dest string
	alt  string
}

type markdownStats struct {
	headings   []mdHeading
	paragraphs []string
	links      []string
	images     []mdImage
}

func (s *markdownStats) firstParagraph() string {
	if len(s.paragraphs) == 0 {
		return ""
	}
	return s.paragraphs[0]
}

func (s *markdownStats) averageParagraphWords() float64 {
	if len(s.paragraphs) == 0 {
		return 0
	}
	total := 0
	for _, p := range s.paragraphs {
		total += WordCount(p)
	}
	return float64(total) / float64(len(s.paragraphs))
}

func (s *markdownStats) hasImageWithAlt() bool {
	for _, img := range s.images {
		if strings.TrimSpace(img.alt) != "" {
			return true
		}
	}
	return false
}

// parseMarkdown walks the goldmark AST collecting headings, prose paragraphs
// (top level, image-only paragraphs excluded), links and images
func parseMarkdown(markdown string) *markdownStats {
	src := []byte(markdown)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))
	stats := &markdownStats{}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			stats.headings = append(stats.headings, mdHeading{level: node.Level, text: nodeText(node, src)})
		case *ast.Paragraph:
			if node.Parent() != nil && node.Parent().Kind() == ast.KindDocument && !imageOnly(node) {
				stats.paragraphs = append(stats.paragraphs, nodeText(node, src))
			}
		case *ast.Link:
			stats.links = append(stats.links, string(node.Destination))
		case *ast.Image:
			stats.images = append(stats.images, mdImage{dest: string(node.Destination), alt: nodeText(node, src)})
		}
		return ast.WalkContinue, nil
	})

	return stats
}

func imageOnly(p *ast.Paragraph) bool {
	return p.ChildCount() == 1 && p.FirstChild().Kind() == ast.KindImage
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
