package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// renderFunc returns the fully rendered HTML of a page
type renderFunc func(ctx context.Context, pageURL string) (string, error)

// newChromeRenderer renders pages in a fresh headless browser per call.
// Site crawls happen once per job at most, so no browser pool is kept.
func newChromeRenderer(userAgent string, wait time.Duration) renderFunc {
	return func(ctx context.Context, pageURL string) (string, error) {
		allocatorOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)

		allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, allocatorOpts...)
		defer allocatorCancel()

		browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
		defer browserCancel()

		var html string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(wait),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
		}
		return html, nil
	}
}
