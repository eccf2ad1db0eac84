package content

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

var (
	// [anchor](destination "optional title"), with an optional leading ! for images
	markdownLinkPattern = regexp.MustCompile(`(!?)\[([^\]\n]+)\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)

	// [[LINK:anchor text]]
	anchorPlaceholderPattern = regexp.MustCompile(`(?i)\[\[\s*link\s*:\s*([^\]]+?)\s*\]\]`)

	// {{link:slug}}, normally used as a link destination
	slugPlaceholderPattern = regexp.MustCompile(`(?i)\{\{\s*link\s*:\s*([^}]+?)\s*\}\}`)
)

// LinkPolicy decides which same-site links an article may carry.
type LinkPolicy struct {
	site    *url.URL
	allowed []models.InternalLink
	byKey   map[string]models.InternalLink
}

// NewLinkPolicy builds a policy for siteURL with the approved internal links.
// The allow-list is deduplicated by URL, first entry winning.
func NewLinkPolicy(siteURL string, allowed []models.InternalLink) *LinkPolicy {
	p := &LinkPolicy{byKey: make(map[string]models.InternalLink)}
	if siteURL != "" {
		if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
			p.site = u
		}
	}

	for _, link := range DedupeAllowList(allowed) {
		key := p.key(link.URL)
		if key == "" {
			continue
		}
		p.byKey[key] = link
		p.allowed = append(p.allowed, link)
	}
	return p
}

// Allowed returns the deduplicated allow-list.
func (p *LinkPolicy) Allowed() []models.InternalLink {
	return p.allowed
}

// DedupeAllowList removes entries whose URL repeats an earlier entry.
func DedupeAllowList(links []models.InternalLink) []models.InternalLink {
	seen := make(map[string]bool, len(links))
	var result []models.InternalLink
	for _, link := range links {
		key := normalizeURL(link.URL, nil)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, link)
	}
	return result
}

// ResolvePlaceholders replaces [[LINK:anchor]] and {{link:slug}} placeholders with
// approved links. Placeholders that match nothing collapse to their anchor text.
func (p *LinkPolicy) ResolvePlaceholders(markdown string) (string, int) {
	resolved := 0

	markdown = markdownLinkPattern.ReplaceAllStringFunc(markdown, func(match string) string {
		parts := markdownLinkPattern.FindStringSubmatch(match)
		if parts[1] != "" {
			return match
		}
		slugMatch := slugPlaceholderPattern.FindStringSubmatch(parts[3])
		if slugMatch == nil {
			return match
		}
		if link, ok := p.findBySlug(slugMatch[1]); ok {
			resolved++
			return "[" + parts[2] + "](" + link.URL + ")"
		}
		return parts[2]
	})

	markdown = anchorPlaceholderPattern.ReplaceAllStringFunc(markdown, func(match string) string {
		anchor := strings.TrimSpace(anchorPlaceholderPattern.FindStringSubmatch(match)[1])
		if link, ok := p.findByAnchor(anchor); ok {
			resolved++
			return "[" + anchor + "](" + link.URL + ")"
		}
		return anchor
	})

	// Bare slug placeholders outside a link have no anchor to keep
	markdown = slugPlaceholderPattern.ReplaceAllString(markdown, "")

	return markdown, resolved
}

// StripUnapproved unlinks same-site links that are not on the allow-list, keeping
// the anchor text. External links, fragments and images are untouched.
func (p *LinkPolicy) StripUnapproved(markdown string) (string, int) {
	stripped := 0
	markdown = markdownLinkPattern.ReplaceAllStringFunc(markdown, func(match string) string {
		parts := markdownLinkPattern.FindStringSubmatch(match)
		if parts[1] != "" || !p.isSameSite(parts[3]) {
			return match
		}
		if _, ok := p.byKey[p.key(parts[3])]; ok {
			return match
		}
		stripped++
		return parts[2]
	})
	return markdown, stripped
}

// CollapseDuplicates keeps the first link to each URL and unlinks later ones.
func (p *LinkPolicy) CollapseDuplicates(markdown string) (string, int) {
	seen := make(map[string]bool)
	collapsed := 0
	markdown = markdownLinkPattern.ReplaceAllStringFunc(markdown, func(match string) string {
		parts := markdownLinkPattern.FindStringSubmatch(match)
		if parts[1] != "" || isFragmentOrScheme(parts[3]) {
			return match
		}
		key := p.key(parts[3])
		if key == "" {
			return match
		}
		if seen[key] {
			collapsed++
			return parts[2]
		}
		seen[key] = true
		return match
	})
	return markdown, collapsed
}

// Links returns the destinations of all non-image links in order.
func Links(markdown string) []string {
	var dests []string
	for _, parts := range markdownLinkPattern.FindAllStringSubmatch(markdown, -1) {
		if parts[1] == "" {
			dests = append(dests, parts[3])
		}
	}
	return dests
}

func (p *LinkPolicy) findBySlug(slug string) (models.InternalLink, bool) {
	slug = strings.ToLower(strings.Trim(slug, "/ "))
	for _, link := range p.allowed {
		if strings.ToLower(link.Slug) == slug || lastPathSegment(link.URL) == slug {
			return link, true
		}
	}
	return models.InternalLink{}, false
}

// findByAnchor picks the allow-list entry whose title or focus keyword best overlaps
// the anchor text
func (p *LinkPolicy) findByAnchor(anchor string) (models.InternalLink, bool) {
	a := strings.ToLower(anchor)
	anchorWords := strings.Fields(a)

	var best models.InternalLink
	bestScore := 0.0
	for _, link := range p.allowed {
		for _, candidate := range []string{link.FocusKeyword, link.Title} {
			c := strings.ToLower(strings.TrimSpace(candidate))
			if c == "" {
				continue
			}
			score := 0.0
			if strings.Contains(c, a) || strings.Contains(a, c) {
				score = 1
			} else if len(anchorWords) > 0 {
				score = float64(sharedWords(anchorWords, strings.Fields(c))) / float64(len(anchorWords))
			}
			if score > bestScore {
				best, bestScore = link, score
			}
		}
	}
	return best, bestScore >= 0.5
}

func sharedWords(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, w := range b {
		set[w] = true
	}
	n := 0
	for _, w := range a {
		if set[w] {
			n++
		}
	}
	return n
}

func (p *LinkPolicy) isSameSite(dest string) bool {
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
	return p.site != nil && bareHost(u.Host) == bareHost(p.site.Host)
}

func (p *LinkPolicy) key(dest string) string {
	return normalizeURL(dest, p.site)
}

func isFragmentOrScheme(dest string) bool {
	lower := strings.ToLower(dest)
	return strings.HasPrefix(lower, "#") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:")
}

// normalizeURL reduces a URL to host+path for comparison, resolving relative
// references against base. Scheme, www prefix, trailing slash and fragment are ignored.
func normalizeURL(raw string, base *url.URL) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Host == "" && base != nil {
		u = base.ResolveReference(u)
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	key := bareHost(u.Host) + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return strings.ToLower(key)
}

func bareHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func lastPathSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return strings.ToLower(path)
}
