package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Website is the publishing target and brand context for generated articles.
type Website struct {
	ID          string    `json:"id" badgerhold:"key"`
	Name        string    `json:"name" validate:"required"`
	BaseURL     string    `json:"base_url" validate:"required,url"`
	BrandVoice  string    `json:"brand_voice,omitempty"`
	Audience    string    `json:"audience,omitempty"`
	Description string    `json:"description,omitempty"`
	AutoCrawl   bool      `json:"auto_crawl"` // Crawl BaseURL for brand context during research
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewWebsite creates a website record.
func NewWebsite(name, baseURL string) *Website {
	now := time.Now()
	return &Website{
		ID:        uuid.New().String(),
		Name:      name,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PostURL returns the public URL of a post on this website.
func (w *Website) PostURL(slug string) string {
	return fmt.Sprintf("%s/blog/%s", strings.TrimRight(w.BaseURL, "/"), slug)
}

// UsageRecord counts generated articles per website per calendar month.
type UsageRecord struct {
	ID                string    `json:"id" badgerhold:"key"` // websiteID + "|" + period
	WebsiteID         string    `json:"website_id" badgerhold:"index"`
	Period            string    `json:"period"` // YYYY-MM
	ArticlesGenerated int       `json:"articles_generated"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UsagePeriod formats t as the monthly usage bucket.
func UsagePeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UsageKey builds the record key for a website and period.
func UsageKey(websiteID, period string) string {
	return websiteID + "|" + period
}
