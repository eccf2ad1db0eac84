// -----------------------------------------------------------------------
// Articles - pipeline output and its persisted blog post form
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// ScoreFactor is one line of the content score breakdown.
type ScoreFactor struct {
	Factor         string `json:"factor"`
	PointsEarned   int    `json:"points_earned"`
	PointsPossible int    `json:"points_possible"`
	Detail         string `json:"detail,omitempty"`
}

// GeneratedArticle is the finished output of the generation pipeline.
type GeneratedArticle struct {
	Title             string                 `json:"title"`
	Slug              string                 `json:"slug"`
	Content           string                 `json:"content"` // Markdown body
	Excerpt           string                 `json:"excerpt"`
	MetaTitle         string                 `json:"meta_title"`
	MetaDescription   string                 `json:"meta_description"`
	FocusKeyword      string                 `json:"focus_keyword"`
	SecondaryKeywords []string               `json:"secondary_keywords"`
	Tags              []string               `json:"tags"`
	Category          string                 `json:"category"`
	StructuredData    map[string]interface{} `json:"structured_data,omitempty"` // schema.org object
	SocialCaptions    map[string]string      `json:"social_captions,omitempty"` // platform -> caption
	FeaturedImageURL  string                 `json:"featured_image_url,omitempty"`
	FeaturedImageAlt  string                 `json:"featured_image_alt,omitempty"`
	WordCount         int                    `json:"word_count"`
	ReadingTime       int                    `json:"reading_time"` // Minutes
	ResearchData      string                 `json:"research_data,omitempty"` // Raw research payload (JSON)
	Score             int                    `json:"score"`
	ScoreBreakdown    []ScoreFactor          `json:"score_breakdown,omitempty"`
}

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// BlogPost is a persisted article owned by a website.
type BlogPost struct {
	ID          string           `json:"id" badgerhold:"key"`
	WebsiteID   string           `json:"website_id" badgerhold:"index"`
	KeywordID   string           `json:"keyword_id"`
	Slug        string           `json:"slug" badgerhold:"index"` // Unique per website
	Status      PostStatus       `json:"status" badgerhold:"index"`
	Article     GeneratedArticle `json:"article"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewBlogPost wraps an article as a draft post with the resolved slug.
func NewBlogPost(websiteID, keywordID, slug string, article GeneratedArticle) *BlogPost {
	now := time.Now()
	article.Slug = slug
	return &BlogPost{
		ID:        uuid.New().String(),
		WebsiteID: websiteID,
		KeywordID: keywordID,
		Slug:      slug,
		Status:    PostStatusDraft,
		Article:   article,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InternalLink is an approved link target offered to the SEO stage.
type InternalLink struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	FocusKeyword string `json:"focus_keyword,omitempty"`
	Slug         string `json:"slug,omitempty"`
}

// StageResult is the outcome of one text-generation call.
type StageResult struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	PromptTokens int    `json:"prompt_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Truncated    bool   `json:"truncated"` // Token budget exhausted
}

// LinkReport summarises one internal-linking run.
type LinkReport struct {
	PostID     string `json:"post_id"`
	Considered int    `json:"considered"` // Targets selected and checked
	Linked     int    `json:"linked"`     // Targets rewritten and saved
	Rejected   int    `json:"rejected"`   // Rewrites that failed the sanity check
	Skipped    bool   `json:"skipped"`    // Selection unavailable, nothing attempted
}
