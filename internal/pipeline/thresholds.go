// Package pipeline drives the staged keyword-to-article generation run:
// research, outline, draft, tone, SEO, metadata and image, with the draft
// fallback and best-version selection between stages.
package pipeline

import (
	"time"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/content"
)

// Thresholds tune stage acceptance and timeouts
type Thresholds struct {
	ToneTolerance       float64 // Tone output must keep this share of its input words
	SEOTolerance        float64 // SEO output must keep this share of its input words
	SectionMissingLimit int     // Missing content sections that force the draft fallback
	CallTimeout         time.Duration
	ResearchTimeout     time.Duration
	Content             content.Thresholds
}

// DefaultThresholds returns the production values
func DefaultThresholds() Thresholds {
	return Thresholds{
		ToneTolerance:       0.70,
		SEOTolerance:        0.70,
		SectionMissingLimit: 2,
		CallTimeout:         3 * time.Minute,
		ResearchTimeout:     90 * time.Second,
		Content:             content.DefaultThresholds(),
	}
}

// ThresholdsFromConfig maps the [pipeline] config section onto Thresholds
func ThresholdsFromConfig(cfg common.PipelineConfig) Thresholds {
	t := DefaultThresholds()
	if cfg.ToneTolerance > 0 {
		t.ToneTolerance = cfg.ToneTolerance
	}
	if cfg.SEOTolerance > 0 {
		t.SEOTolerance = cfg.SEOTolerance
	}
	if cfg.SectionMissingLimit > 0 {
		t.SectionMissingLimit = cfg.SectionMissingLimit
	}
	t.CallTimeout = common.ParseDuration(cfg.CallTimeout, t.CallTimeout)
	t.ResearchTimeout = common.ParseDuration(cfg.ResearchTimeout, t.ResearchTimeout)

	if cfg.ParagraphWordCeiling > 0 {
		t.Content.ParagraphWordCeiling = cfg.ParagraphWordCeiling
	}
	if cfg.DedupWindowRatio > 0 {
		t.Content.DedupWindowRatio = cfg.DedupWindowRatio
	}
	if cfg.DedupCutoffRatio > 0 {
		t.Content.DedupCutoffRatio = cfg.DedupCutoffRatio
	}
	if cfg.DedupMinWindow > 0 {
		t.Content.DedupMinWindow = cfg.DedupMinWindow
	}
	return t
}
