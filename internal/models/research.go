package models

// ResearchContext is the brand context handed to the research collaborator.
type ResearchContext struct {
	WebsiteName string
	WebsiteURL  string
	BrandVoice  string
	Audience    string
	Description string
	Crawl       bool
	Model       string
}

// ResearchResult is competitive research for one keyword. Empty lists are valid.
type ResearchResult struct {
	RawFindings      string   `json:"raw_findings"`
	ContentGaps      []string `json:"content_gaps"`
	MissingSubtopics []string `json:"missing_subtopics"`
	CommonQuestions  []string `json:"common_questions"`
	Statistics       []string `json:"statistics"`
	SuggestedAngle   string   `json:"suggested_angle"`
	SiteContext      string   `json:"site_context,omitempty"` // Crawled brand text, if any
	Degraded         bool     `json:"degraded"`
}

// CrawledPage is a same-site page discovered while crawling.
type CrawledPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// CrawlResult is the outcome of crawling one URL. An empty result means no site context.
type CrawlResult struct {
	URL             string        `json:"url"`
	Title           string        `json:"title"`
	PageText        string        `json:"page_text"` // Markdown
	MetaDescription string        `json:"meta_description"`
	Pages           []CrawledPage `json:"pages"`
}

// IsEmpty reports whether the crawl produced no usable context.
func (r *CrawlResult) IsEmpty() bool {
	return r == nil || (r.PageText == "" && r.MetaDescription == "" && len(r.Pages) == 0)
}

// ImageRequest describes a featured image to generate.
type ImageRequest struct {
	Prompt    string
	Slug      string
	WebsiteID string
	AltText   string
}
