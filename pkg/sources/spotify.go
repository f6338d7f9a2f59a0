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

// spotifyEpisodeSelector matches the episode links on a show page; the
// newest episode is listed first.
const spotifyEpisodeSelector = `a[href*="/episode/"]`

// SpotifyAdapter scrapes the newest episode from a Spotify show page
// through the headless browser.
type SpotifyAdapter struct {
	showURL  string
	renderer PageRenderer
}

// NewSpotifyAdapter creates an adapter for the given show page URL.
func NewSpotifyAdapter(showURL string, renderer PageRenderer) *SpotifyAdapter {
	return &SpotifyAdapter{showURL: showURL, renderer: renderer}
}

// Observe renders the show page and reads the first episode link.
func (s *SpotifyAdapter) Observe(ctx context.Context) (domain.Observation, error) {
	if s.showURL == "" {
		return domain.Observation{}, NewSourceError("no_show_url", nil)
	}

	html, err := s.renderer.RenderedHTML(ctx, s.showURL, spotifyEpisodeSelector)
	if err != nil {
		if errors.Is(err, browser.ErrSelectorNotFound) {
			return domain.Observation{}, NewSourceError("no_episode_link", err)
		}
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}

	return parseSpotifyShow(html, s.showURL)
}

// parseSpotifyShow extracts the first episode link from a rendered show
// page. Split out from Observe so it is testable without Chrome.
func parseSpotifyShow(html, showURL string) (domain.Observation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}

	link := doc.Find(spotifyEpisodeSelector).First()
	if link.Length() == 0 {
		return domain.Observation{}, NewSourceError("no_episode_link", nil)
	}

	href, _ := link.Attr("href")
	if strings.TrimSpace(href) == "" {
		return domain.Observation{}, NewSourceError("no_episode_link", nil)
	}
	epURL := resolveHref(showURL, href)

	// The link's enclosing element carries the episode title as its first
	// text line; the link itself is sometimes empty.
	title := firstTextLine(link.Parent().Text())
	if title == "" {
		title = firstTextLine(link.Text())
	}

	return domain.Observation{
		URL:    epURL,
		Title:  title,
		Number: episode.Pick(title, epURL),
	}, nil
}
