// Package browser renders JavaScript-heavy podcast platform pages with
// headless Chrome and hands back the resulting HTML.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrSelectorNotFound is returned when the page loaded but the element the
// caller was waiting for never appeared within the wait timeout.
var ErrSelectorNotFound = errors.New("selector did not appear")

// Chrome desktop user agent; some platform pages serve a stripped-down
// shell to unknown agents.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Options bounds the two slow phases of a page render.
type Options struct {
	PageLoadTimeout time.Duration // full navigation, default 90s
	WaitTimeout     time.Duration // selector appearance, default 60s
}

func (o Options) withDefaults() Options {
	if o.PageLoadTimeout <= 0 {
		o.PageLoadTimeout = 90 * time.Second
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 60 * time.Second
	}
	return o
}

// Browser owns a Chrome exec allocator shared by all page renders in a run.
// Chrome itself launches lazily on the first render, so runs that never
// need a page (all fields already populated) never start a browser.
type Browser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	opts     Options
}

// New prepares a headless Chrome allocator. The page locale mirrors the
// audience of the pages being scraped (ja-JP, Asia/Tokyo).
func New(ctx context.Context, opts Options) *Browser {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("lang", "ja-JP"),
		chromedp.UserAgent(userAgent),
		chromedp.Env("TZ=Asia/Tokyo"),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	return &Browser{
		allocCtx: allocCtx,
		cancel:   cancel,
		opts:     opts.withDefaults(),
	}
}

// RenderedHTML opens a fresh tab, navigates to pageURL, waits for
// waitSelector to become visible and returns the rendered document. The tab
// is closed before returning.
func (b *Browser) RenderedHTML(ctx context.Context, pageURL, waitSelector string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	navCtx, navCancel := context.WithTimeout(mergeDeadline(ctx, tabCtx), b.opts.PageLoadTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(pageURL)); err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	waitCtx, waitCancel := context.WithTimeout(mergeDeadline(ctx, tabCtx), b.opts.WaitTimeout)
	defer waitCancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(waitSelector, chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s on %s", ErrSelectorNotFound, waitSelector, pageURL)
		}
		return "", fmt.Errorf("wait for %s: %w", waitSelector, err)
	}

	var html string
	if err := chromedp.Run(waitCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// Close shuts down the allocator and any Chrome it launched.
func (b *Browser) Close() {
	b.cancel()
}

// mergeDeadline makes the tab context also observe the caller's
// cancellation. chromedp contexts must descend from the tab context, so the
// caller's ctx cannot be used directly.
func mergeDeadline(caller, tab context.Context) context.Context {
	if caller == nil || caller.Done() == nil {
		return tab
	}
	merged, cancel := context.WithCancel(tab)
	go func() {
		select {
		case <-caller.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}
