package sources

import (
	"context"
	"net/http"

	"github.com/mmcdole/gofeed"

	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/episode"
	"podcast-sync/pkg/httpclient"
)

// YouTubeAdapter reads the newest video from a channel's Atom feed. The
// feed is fetched with browser-like headers; YouTube serves consent
// interstitials to clients it does not recognize. Entries are newest-first.
type YouTubeAdapter struct {
	feedURL string
	http    *httpclient.Client
	parser  *gofeed.Parser
}

// NewYouTubeAdapter creates an adapter for the given channel feed URL.
// hc should carry the browser header profile.
func NewYouTubeAdapter(feedURL string, hc *httpclient.Client) *YouTubeAdapter {
	return &YouTubeAdapter{
		feedURL: feedURL,
		http:    hc,
		parser:  gofeed.NewParser(),
	}
}

// Observe fetches the feed and reads its first entry.
func (y *YouTubeAdapter) Observe(ctx context.Context) (domain.Observation, error) {
	if y.feedURL == "" {
		return domain.Observation{}, NewSourceError("no_feed_url", nil)
	}

	resp, err := y.http.Get(ctx, y.feedURL)
	if err != nil {
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, httpStatusError(resp.StatusCode)
	}

	feed, err := y.parser.Parse(resp.Body)
	if err != nil {
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}

	if len(feed.Items) == 0 {
		return domain.Observation{}, NewSourceError("no_entry", nil)
	}

	item := feed.Items[0]
	if item.Link == "" {
		return domain.Observation{}, NewSourceError("no_entry", nil)
	}

	return domain.Observation{
		URL:    item.Link,
		Title:  item.Title,
		Number: episode.Pick(item.Title, item.Link),
	}, nil
}
