package content

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	headingLinePattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	listItemPattern    = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+(.+)$`)
	inlineLinkPattern  = regexp.MustCompile(`^\[([^\]]+)\]\(([^)]*)\)\s*$`)
)

type heading struct {
	level  int
	text   string // Display text with emphasis removed
	anchor string
	norm   string
}

// Anchor returns the GitHub-style fragment id for a heading.
func Anchor(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

func isTOCHeading(norm string) bool {
	return strings.Contains(norm, "table of contents") || norm == "contents" || norm == "in this article"
}

// ReconcileTOC rewrites table-of-contents entries so their text and anchors match
// the article's actual H2/H3 headings. Entries matching no heading are left as-is.
func ReconcileTOC(markdown string) (string, int) {
	lines := strings.Split(markdown, "\n")

	var headings []heading
	tocStart := -1
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := headingLinePattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		norm := NormalizeHeading(m[2])
		if isTOCHeading(norm) {
			if tocStart < 0 {
				tocStart = i
			}
			continue
		}
		if level := len(m[1]); level == 2 || level == 3 {
			text := displayHeading(m[2])
			headings = append(headings, heading{level: level, text: text, anchor: Anchor(text), norm: norm})
		}
	}

	if tocStart < 0 || len(headings) == 0 {
		return markdown, 0
	}

	validator := NewSectionValidator(Thresholds{})
	fixed := 0
	for i := tocStart + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "#") {
			break
		}
		m := listItemPattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		text, anchor := m[3], ""
		if link := inlineLinkPattern.FindStringSubmatch(strings.TrimSpace(m[3])); link != nil {
			text = link[1]
			anchor = strings.TrimPrefix(link[2], "#")
		}

		h, ok := matchHeading(validator, headings, text, anchor)
		if !ok {
			continue
		}
		rewritten := m[1] + m[2] + " [" + h.text + "](#" + h.anchor + ")"
		if rewritten != lines[i] {
			lines[i] = rewritten
			fixed++
		}
	}

	return strings.Join(lines, "\n"), fixed
}

func matchHeading(v *SectionValidator, headings []heading, text, anchor string) (heading, bool) {
	if anchor != "" {
		for _, h := range headings {
			if h.anchor == strings.ToLower(anchor) {
				return h, true
			}
		}
	}
	norm := NormalizeHeading(text)
	if norm == "" {
		return heading{}, false
	}
	for _, h := range headings {
		if h.norm == norm {
			return h, true
		}
	}
	for _, h := range headings {
		if strings.Contains(h.norm, norm) || strings.Contains(norm, h.norm) {
			return h, true
		}
	}
	for _, h := range headings {
		if v.Similar(h.norm, norm) {
			return h, true
		}
	}
	return heading{}, false
}

func displayHeading(text string) string {
	t := strings.NewReplacer("**", "", "__", "", "`", "").Replace(text)
	return strings.Join(strings.Fields(strings.Trim(t, " *_")), " ")
}
