package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// maxBodyBytes caps how much of a page is read
const maxBodyBytes = 4 << 20

// Service fetches a website's landing page to give prompts brand context.
// It never returns errors: any failure yields an empty CrawlResult.
type Service struct {
	config     common.CrawlerConfig
	logger     arbor.ILogger
	httpClient *http.Client
	render     renderFunc
	timeout    time.Duration
}

var _ interfaces.CrawlService = (*Service)(nil)

// NewService creates a crawler. JavaScript rendering uses chromedp when enabled.
func NewService(config common.CrawlerConfig, logger arbor.ILogger) *Service {
	timeout := common.ParseDuration(config.RequestTimeout, 20*time.Second)
	s := &Service{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
	if config.EnableJavaScript {
		s.render = newChromeRenderer(config.UserAgent, common.ParseDuration(config.JavaScriptWaitTime, 2*time.Second))
	}
	return s
}

// Crawl fetches pageURL and extracts title, meta description, page text and same-site pages
func (s *Service) Crawl(ctx context.Context, pageURL string) *models.CrawlResult {
	result := &models.CrawlResult{URL: pageURL}
	if strings.TrimSpace(pageURL) == "" {
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	html, err := s.fetch(ctx, pageURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", pageURL).Msg("Site crawl failed, continuing without site context")
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse crawled HTML")
		return result
	}

	result.Title = extractTitle(doc)
	result.MetaDescription = extractMetaDescription(doc)
	result.Pages = extractPages(doc, pageURL, s.config.MaxPages)
	result.PageText = extractPageText(doc, pageURL)

	s.logger.Debug().
		Str("url", pageURL).
		Str("title", result.Title).
		Int("text_length", len(result.PageText)).
		Int("pages", len(result.Pages)).
		Msg("Site crawled")

	return result
}

func (s *Service) fetch(ctx context.Context, pageURL string) (string, error) {
	if s.render != nil {
		html, err := s.render(ctx, pageURL)
		if err == nil {
			return html, nil
		}
		s.logger.Warn().Err(err).Str("url", pageURL).Msg("JavaScript render failed, falling back to plain fetch")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}
