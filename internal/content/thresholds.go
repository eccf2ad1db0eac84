// Package content holds the deterministic text heuristics applied to generated
// markdown: loop deduplication, section coverage, link hygiene, TOC and paragraph
// normalisation, and scoring.
package content

// Thresholds tune the heuristics. Zero values fall back to DefaultThresholds.
type Thresholds struct {
	DedupWindowRatio     float64 // Initial probe window as a fraction of text length
	DedupStep            int     // Characters removed from the window per attempt
	DedupMinWindow       int     // Smallest probe window
	DedupCutoffRatio     float64 // Repeats must start within this fraction of the text
	FuzzyMinLength       int     // Both headings must be at least this long to fuzzy match
	FuzzyPrefixRatio     float64 // Share of the shorter heading the longer must contain
	ParagraphWordCeiling int
}

// DefaultThresholds returns the production heuristic constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DedupWindowRatio:     0.30,
		DedupStep:            100,
		DedupMinWindow:       200,
		DedupCutoffRatio:     0.70,
		FuzzyMinLength:       5,
		FuzzyPrefixRatio:     0.70,
		ParagraphWordCeiling: 150,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.DedupWindowRatio <= 0 {
		t.DedupWindowRatio = d.DedupWindowRatio
	}
	if t.DedupStep <= 0 {
		t.DedupStep = d.DedupStep
	}
	if t.DedupMinWindow <= 0 {
		t.DedupMinWindow = d.DedupMinWindow
	}
	if t.DedupCutoffRatio <= 0 {
		t.DedupCutoffRatio = d.DedupCutoffRatio
	}
	if t.FuzzyMinLength <= 0 {
		t.FuzzyMinLength = d.FuzzyMinLength
	}
	if t.FuzzyPrefixRatio <= 0 {
		t.FuzzyPrefixRatio = d.FuzzyPrefixRatio
	}
	if t.ParagraphWordCeiling <= 0 {
		t.ParagraphWordCeiling = d.ParagraphWordCeiling
	}
	return t
}
