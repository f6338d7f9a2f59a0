package sources

import (
	"context"
	"encoding/json"
	"net/http"

	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/episode"
	"podcast-sync/pkg/httpclient"
)

// ITunesAdapter reads the newest episode from the iTunes lookup API.
type ITunesAdapter struct {
	lookupURL string
	http      *httpclient.Client
}

// NewITunesAdapter creates an adapter for the given lookup URL (a podcast
// lookup with entity=podcastEpisode).
func NewITunesAdapter(lookupURL string, hc *httpclient.Client) *ITunesAdapter {
	return &ITunesAdapter{lookupURL: lookupURL, http: hc}
}

type itunesResult struct {
	WrapperType    string `json:"wrapperType"`
	TrackViewURL   string `json:"trackViewUrl"`
	TrackName      string `json:"trackName"`
	CollectionName string `json:"collectionName"`
}

// Observe calls the lookup API and picks the newest episode result.
func (a *ITunesAdapter) Observe(ctx context.Context) (domain.Observation, error) {
	if a.lookupURL == "" {
		return domain.Observation{}, NewSourceError("no_lookup_url", nil)
	}

	resp, err := a.http.Get(ctx, a.lookupURL)
	if err != nil {
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, httpStatusError(resp.StatusCode)
	}

	var body struct {
		Results []itunesResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Observation{}, NewSourceError("fetch_failed", err)
	}

	ep := pickEpisodeResult(body.Results)
	if ep == nil || ep.TrackViewURL == "" {
		return domain.Observation{}, NewSourceError("no_episode", nil)
	}

	title := ep.TrackName
	if title == "" {
		title = ep.CollectionName
	}

	return domain.Observation{
		URL:    ep.TrackViewURL,
		Title:  title,
		Number: episode.Pick(title, ep.TrackViewURL),
	}, nil
}

// pickEpisodeResult finds the first podcastEpisode entry. The lookup
// response leads with the show itself, so when no entry is typed as an
// episode the second result is used as a fallback.
func pickEpisodeResult(results []itunesResult) *itunesResult {
	for i := range results {
		if results[i].WrapperType == "podcastEpisode" {
			return &results[i]
		}
	}
	if len(results) > 1 {
		return &results[1]
	}
	return nil
}
