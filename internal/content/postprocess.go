package content

import (
	"github.com/ternarybob/scribe/internal/models"
)

// PostProcessReport counts the edits made by a post-processing pass.
type PostProcessReport struct {
	PlaceholdersResolved int `json:"placeholders_resolved"`
	LinksStripped        int `json:"links_stripped"`
	DuplicatesCollapsed  int `json:"duplicates_collapsed"`
	TOCEntriesFixed      int `json:"toc_entries_fixed"`
	ParagraphsSplit      int `json:"paragraphs_split"`
}

// PostProcessor normalises generated markdown before metadata extraction.
type PostProcessor struct {
	policy     *LinkPolicy
	thresholds Thresholds
}

// NewPostProcessor creates a PostProcessor for one article. allowed is the approved
// internal-link list; siteURL identifies same-site links.
func NewPostProcessor(siteURL string, allowed []models.InternalLink, thresholds Thresholds) *PostProcessor {
	return &PostProcessor{
		policy:     NewLinkPolicy(siteURL, allowed),
		thresholds: thresholds.withDefaults(),
	}
}

// Process resolves link placeholders, strips unapproved same-site links, collapses
// duplicate links, reconciles the table of contents and splits long paragraphs.
func (p *PostProcessor) Process(markdown string) (string, PostProcessReport) {
	var report PostProcessReport

	markdown, report.PlaceholdersResolved = p.policy.ResolvePlaceholders(markdown)
	markdown, report.LinksStripped = p.policy.StripUnapproved(markdown)
	markdown, report.DuplicatesCollapsed = p.policy.CollapseDuplicates(markdown)
	markdown, report.TOCEntriesFixed = ReconcileTOC(markdown)
	markdown, report.ParagraphsSplit = SplitLongParagraphs(markdown, p.thresholds.ParagraphWordCeiling)

	return markdown, report
}
