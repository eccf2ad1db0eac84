package content

import (
	"strings"
)

// structuralHeadings are scaffolding sections the pipeline adds itself; they are not
// content sections for coverage checks or sectioned drafting.
var structuralHeadings = []string{
	"key takeaways",
	"table of contents",
	"faq",
	"frequently asked questions",
}

// IsStructuralHeading reports whether heading is scaffolding rather than content.
func IsStructuralHeading(heading string) bool {
	h := NormalizeHeading(heading)
	for _, s := range structuralHeadings {
		if h == s || strings.HasPrefix(h, s) {
			return true
		}
	}
	return false
}

// NormalizeHeading lowercases a heading and strips markdown markers and emphasis.
func NormalizeHeading(heading string) string {
	h := strings.TrimSpace(heading)
	h = strings.TrimLeft(h, "#")
	h = strings.NewReplacer("**", "", "__", "", "`", "").Replace(h)
	h = strings.Trim(h, " \t*_")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// H2Headings returns the normalized text of every level-2 heading line.
func H2Headings(markdown string) []string {
	var headings []string
	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(trimmed, "## ") {
			headings = append(headings, NormalizeHeading(trimmed[3:]))
		}
	}
	return headings
}

// SectionValidator reports outline sections a draft failed to cover.
type SectionValidator struct {
	thresholds Thresholds
}

// NewSectionValidator creates a SectionValidator; zero thresholds use defaults.
func NewSectionValidator(thresholds Thresholds) *SectionValidator {
	return &SectionValidator{thresholds: thresholds.withDefaults()}
}

// MissingSections applies the default SectionValidator.
func MissingSections(markdown string, required []string) []string {
	return NewSectionValidator(Thresholds{}).Missing(markdown, required)
}

// Missing returns the required headings with no matching level-2 heading in markdown,
// in input order.
func (v *SectionValidator) Missing(markdown string, required []string) []string {
	found := H2Headings(markdown)
	var missing []string
	for _, req := range required {
		if !v.present(NormalizeHeading(req), found) {
			missing = append(missing, req)
		}
	}
	return missing
}

func (v *SectionValidator) present(required string, found []string) bool {
	if required == "" {
		return true
	}
	for _, h := range found {
		if h == "" {
			continue
		}
		if strings.Contains(h, required) || strings.Contains(required, h) || v.Similar(h, required) {
			return true
		}
	}
	return false
}

// Similar reports whether two normalized headings are fuzzy matches: both are long
// enough and the longer contains the leading share of the shorter.
func (v *SectionValidator) Similar(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < v.thresholds.FuzzyMinLength || len(rb) < v.thresholds.FuzzyMinLength {
		return false
	}

	longer, shorter := ra, rb
	if len(rb) > len(ra) {
		longer, shorter = rb, ra
	}

	n := int(float64(len(shorter))*v.thresholds.FuzzyPrefixRatio + 0.999)
	if n > len(shorter) {
		n = len(shorter)
	}
	return strings.Contains(string(longer), string(shorter[:n]))
}
