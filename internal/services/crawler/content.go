// -----------------------------------------------------------------------
// Content extraction - title, meta, page text and same-site links
// -----------------------------------------------------------------------

package crawler

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/scribe/internal/models"
)

// maxPageTextRunes bounds the page text handed to prompt builders
const maxPageTextRunes = 6000

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// extractTitle extracts the page title from various sources
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractMetaDescription prefers the standard description over Open Graph
func extractMetaDescription(doc *goquery.Document) string {
	if description, exists := doc.Find("meta[name='description']").Attr("content"); exists && strings.TrimSpace(description) != "" {
		return strings.TrimSpace(description)
	}
	if og, exists := doc.Find("meta[property='og:description']").Attr("content"); exists {
		return strings.TrimSpace(og)
	}
	return ""
}

// extractPageText converts the main content area to markdown
func extractPageText(doc *goquery.Document, pageURL string) string {
	doc.Find("script, style, noscript, nav, footer, aside, form").Remove()

	content := doc.Find("main, article, #content, #main, .content, .main-content").First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}

	converter := md.NewConverter(domainOf(pageURL), true, nil)
	markdown := converter.Convert(content)
	markdown = strings.TrimSpace(excessNewlines.ReplaceAllString(markdown, "\n\n"))

	runes := []rune(markdown)
	if len(runes) > maxPageTextRunes {
		markdown = strings.TrimSpace(string(runes[:maxPageTextRunes]))
	}
	return markdown
}

// extractPages returns unique same-site links with their anchor text, capped at limit
func extractPages(doc *goquery.Document, pageURL string, limit int) []models.CrawledPage {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.ToLower(base.Host), "www.")

	var pages []models.CrawledPage
	seen := map[string]bool{}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(pages) >= limit {
			return false
		}

		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return true
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return true
		}
		if strings.TrimPrefix(strings.ToLower(resolved.Host), "www.") != host {
			return true
		}

		resolved.Fragment = ""
		key := strings.TrimSuffix(resolved.String(), "/")
		if seen[key] || key == strings.TrimSuffix(base.String(), "/") {
			return true
		}
		seen[key] = true

		title := strings.Join(strings.Fields(s.Text()), " ")
		if title == "" {
			title, _ = s.Attr("title")
		}
		pages = append(pages, models.CrawledPage{URL: resolved.String(), Title: title})
		return true
	})

	return pages
}

func domainOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
