package sources

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"podcast-sync/pkg/browser"
	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/episode"
)

// amazonEpisodeSelector is the custom element Amazon Music renders one row
// per episode into. It only exists after the page's scripts have run.
const amazonEpisodeSelector = "music-episode-row-item"

// AmazonAdapter scrapes the newest episode from an Amazon Music podcast
// channel page. The page is fully client-rendered, so it goes through the
// headless browser rather than a plain GET.
type AmazonAdapter struct {
	channelURL string
	renderer   PageRenderer
}

// NewAmazonAdapter creates an adapter for the given channel page URL.
func NewAmazonAdapter(channelURL string, renderer PageRenderer) *AmazonAdapter {
	return &AmazonAdapter{channelURL: channelURL, renderer: renderer}
}

// Observe renders the channel page and reads the first episode row.
func (a *AmazonAdapter) Observe(ctx context.Context) (domain.Observation, error) {
	if a.channelURL == "" {
		return domain.Observation{}, NewSourceError("no_channel_url", nil)
	}

	html, err := a.renderer.RenderedHTML(ctx, a.channelURL, amazonEpisodeSelector)
	if err != nil {
		if errors.Is(err, browser.ErrSelectorNotFound) {
			return domain.Observation{}, NewSourceError("no_episode_item", err)
		}
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}

	return parseAmazonChannel(html, a.channelURL)
}

// parseAmazonChannel extracts the first episode row from a rendered channel
// page. Split out from Observe so it is testable without Chrome.
func parseAmazonChannel(html, channelURL string) (domain.Observation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}

	item := doc.Find(amazonEpisodeSelector).First()
	if item.Length() == 0 {
		return domain.Observation{}, NewSourceError("no_episode_item", nil)
	}

	href, ok := item.Attr("primary-href")
	if !ok || strings.TrimSpace(href) == "" {
		href, _ = item.Find(`a[href*="/episodes/"]`).First().Attr("href")
	}
	if strings.TrimSpace(href) == "" {
		return domain.Observation{}, NewSourceError("no_href", nil)
	}
	epURL := resolveHref(channelURL, href)

	title := amazonEpisodeTitle(item)

	return domain.Observation{
		URL:    epURL,
		Title:  title,
		Number: episode.Pick(title, epURL),
	}, nil
}

// amazonEpisodeTitle guesses the episode title from a row element, most
// reliable source first.
func amazonEpisodeTitle(item *goquery.Selection) string {
	if t, ok := item.Attr("primary-text"); ok {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(item.Find(`[slot="title"], .title, [data-testid="title"]`).First().Text()); t != "" {
		return t
	}
	return firstTextLine(item.Text())
}
