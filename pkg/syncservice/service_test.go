package syncservice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/sources"
	"podcast-sync/pkg/wordpress"
)

type fakeStore struct {
	latest      *wordpress.LatestPost
	latestAfter *wordpress.LatestPost // served from the second read on
	latestErr   error
	latestCalls int
	// write outcome per field key; missing key means a failed write
	outcomes map[string]domain.WriteOutcome
	writes   map[string]string
}

func (f *fakeStore) Latest(ctx context.Context) (*wordpress.LatestPost, error) {
	f.latestCalls++
	if f.latestCalls > 1 && f.latestAfter != nil {
		return f.latestAfter, f.latestErr
	}
	return f.latest, f.latestErr
}

func (f *fakeStore) WriteFieldIfAbsent(ctx context.Context, fieldKey, value string) (domain.WriteOutcome, error) {
	if f.writes == nil {
		f.writes = map[string]string{}
	}
	f.writes[fieldKey] = value
	return f.outcomes[fieldKey], nil
}

type fakeAdapter struct {
	obs domain.Observation
	err error
}

func (f *fakeAdapter) Observe(ctx context.Context) (domain.Observation, error) {
	return f.obs, f.err
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func rawFields(kv map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(kv))
	for k, v := range kv {
		b, _ := json.Marshal(v)
		out[k] = b
	}
	return out
}

func platformList(adapters map[string]sources.Adapter) []PlatformSource {
	return []PlatformSource{
		{Platform: domain.Platform{Name: domain.PlatformAmazonMusic, MetaKey: "amazon_podcast", FieldKey: "field_amz"}, Adapter: adapters[domain.PlatformAmazonMusic]},
		{Platform: domain.Platform{Name: domain.PlatformYouTube, MetaKey: "youtube_podcast", FieldKey: "field_yt"}, Adapter: adapters[domain.PlatformYouTube]},
		{Platform: domain.Platform{Name: domain.PlatformITunes, MetaKey: "apple_podcast", FieldKey: "field_it"}, Adapter: adapters[domain.PlatformITunes]},
		{Platform: domain.Platform{Name: domain.PlatformSpotify, MetaKey: "spotify_podcast", FieldKey: "field_sp"}, Adapter: adapters[domain.PlatformSpotify]},
	}
}

// The four-platform scenario: one fresh write, one already-populated field,
// one stale platform vetoed by the coherence check, one fetch failure.
func TestRun_FullScenario(t *testing.T) {
	store := &fakeStore{
		latest: &wordpress.LatestPost{
			PostID:     77,
			Title:      "Episode 30｜新しい回",
			URL:        "https://blog.example/episode-30/",
			EpisodeNum: intPtr(30),
			Fields: rawFields(map[string]string{
				"amazon_podcast":  "",
				"youtube_podcast": "https://valid.example/B",
				"apple_podcast":   "",
				"spotify_podcast": "",
			}),
		},
		outcomes: map[string]domain.WriteOutcome{
			"field_amz": {Updated: true},
		},
	}

	service := New(store, platformList(map[string]sources.Adapter{
		domain.PlatformAmazonMusic: &fakeAdapter{obs: domain.Observation{
			URL: "https://x.example/episode-30", Title: "Episode 30｜X", Number: intPtr(30),
		}},
		domain.PlatformYouTube: &fakeAdapter{err: errors.New("must not be called")},
		domain.PlatformITunes: &fakeAdapter{obs: domain.Observation{
			URL: "https://y.example/ep29", Title: "Episode 29", Number: intPtr(29),
		}},
		domain.PlatformSpotify: &fakeAdapter{err: sources.NewSourceError("no_episode_link", nil)},
	}))

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := &domain.Report{
		MatchedPostID: 77,
		TargetTitle:   "Episode 30｜新しい回",
		TargetURL:     "https://blog.example/episode-30/",
		Platforms: []domain.PlatformResult{
			{
				Name:       domain.PlatformAmazonMusic,
				Needed:     true,
				EpisodeURL: strPtr("https://x.example/episode-30"),
				Updated:    true,
				Coherence: domain.Coherence{
					Expected: intPtr(30),
					Actual:   intPtr(30),
					Title:    strPtr("Episode 30｜X"),
					Matched:  boolPtr(true),
				},
			},
			{
				Name:          domain.PlatformYouTube,
				SkippedReason: strPtr(domain.ReasonAlreadyHasValue),
				Coherence:     domain.Coherence{Expected: intPtr(30)},
			},
			{
				Name:          domain.PlatformITunes,
				Needed:        true,
				EpisodeURL:    strPtr("https://y.example/ep29"),
				SkippedReason: strPtr(domain.ReasonCoherenceMismatch),
				Coherence: domain.Coherence{
					Expected: intPtr(30),
					Actual:   intPtr(29),
					Title:    strPtr("Episode 29"),
					Matched:  boolPtr(false),
				},
			},
			{
				Name:          domain.PlatformSpotify,
				Needed:        true,
				SkippedReason: strPtr("no_episode_link"),
				Coherence:     domain.Coherence{Expected: intPtr(30)},
			},
		},
	}

	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	if got := store.writes["field_amz"]; got != "https://x.example/episode-30" {
		t.Errorf("amazon write = %q", got)
	}
	if len(store.writes) != 1 {
		t.Errorf("writes = %v, want only field_amz", store.writes)
	}
}

func TestRun_LatestReadIsFatal(t *testing.T) {
	store := &fakeStore{latestErr: errors.New("connection refused")}
	service := New(store, platformList(map[string]sources.Adapter{}))

	if _, err := service.Run(context.Background()); err == nil {
		t.Fatal("expected error when the latest post cannot be read")
	}
}

func TestRun_ExpectedOverrideWins(t *testing.T) {
	store := &fakeStore{
		latest: &wordpress.LatestPost{
			PostID:     1,
			EpisodeNum: intPtr(30),
			Fields:     rawFields(map[string]string{"amazon_podcast": ""}),
		},
	}

	service := New(store, []PlatformSource{
		{
			Platform: domain.Platform{Name: domain.PlatformAmazonMusic, MetaKey: "amazon_podcast", FieldKey: "field_amz"},
			Adapter: &fakeAdapter{obs: domain.Observation{
				URL: "https://x.example/episode-30", Number: intPtr(30),
			}},
		},
	})
	service.SetExpectedEpisode(intPtr(31))

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	result := report.Platforms[0]
	if result.SkippedReason == nil || *result.SkippedReason != domain.ReasonCoherenceMismatch {
		t.Errorf("SkippedReason = %v, want coherence_mismatch against the override", result.SkippedReason)
	}
	if result.Coherence.Expected == nil || *result.Coherence.Expected != 31 {
		t.Errorf("Expected = %v, want the override 31", result.Coherence.Expected)
	}
}

func TestRun_AllSatisfiedReadsOnce(t *testing.T) {
	store := &fakeStore{
		latest: &wordpress.LatestPost{
			PostID: 1,
			Fields: rawFields(map[string]string{
				"amazon_podcast":  "https://a.example/1",
				"youtube_podcast": "https://b.example/1",
				"apple_podcast":   "https://c.example/1",
				"spotify_podcast": "https://d.example/1",
			}),
		},
	}

	service := New(store, platformList(map[string]sources.Adapter{}))
	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, p := range report.Platforms {
		if p.Needed || p.Updated {
			t.Errorf("%s: needed/updated = %v/%v on a fully populated post", p.Name, p.Needed, p.Updated)
		}
	}
	if store.latestCalls != 1 {
		t.Errorf("latest read %d times, want 1 (no fixup pass when nothing was attempted)", store.latestCalls)
	}
}

func TestFixup_WriteActuallyLanded(t *testing.T) {
	store := &fakeStore{
		latest: &wordpress.LatestPost{
			PostID:     1,
			EpisodeNum: intPtr(30),
			Fields:     rawFields(map[string]string{"amazon_podcast": ""}),
		},
		// The re-read sees the URL we tried to write: the write landed.
		latestAfter: &wordpress.LatestPost{
			PostID:     1,
			EpisodeNum: intPtr(30),
			Fields:     rawFields(map[string]string{"amazon_podcast": "https://x.example/episode-30"}),
		},
		// no outcome entry: the write reports neither updated nor skipped
	}

	adapter := &fakeAdapter{obs: domain.Observation{
		URL: "https://x.example/episode-30", Number: intPtr(30),
	}}
	service := New(store, []PlatformSource{
		{Platform: domain.Platform{Name: domain.PlatformAmazonMusic, MetaKey: "amazon_podcast", FieldKey: "field_amz"}, Adapter: adapter},
	})

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	result := report.Platforms[0]
	if !result.Updated {
		t.Error("fixup should have marked the landed write as updated")
	}
	if result.SkippedReason != nil {
		t.Errorf("SkippedReason = %q, want nil after fixup", *result.SkippedReason)
	}
	if store.latestCalls != 2 {
		t.Errorf("latest read %d times, want 2", store.latestCalls)
	}
}

// A platform vetoed by the coherence check never wrote, so a field filled
// externally during the run must not flip its result to updated or erase
// the veto from the report.
func TestFixup_SkipsCoherenceVetoedPlatform(t *testing.T) {
	staleURL := "https://x.example/ep29"
	store := &fakeStore{
		latest: &wordpress.LatestPost{
			PostID:     1,
			EpisodeNum: intPtr(30),
			Fields:     rawFields(map[string]string{"amazon_podcast": ""}),
		},
		// An external writer set the very URL we observed and vetoed.
		latestAfter: &wordpress.LatestPost{
			PostID:     1,
			EpisodeNum: intPtr(30),
			Fields:     rawFields(map[string]string{"amazon_podcast": staleURL}),
		},
	}

	adapter := &fakeAdapter{obs: domain.Observation{
		URL: staleURL, Title: "Episode 29", Number: intPtr(29),
	}}
	service := New(store, []PlatformSource{
		{Platform: domain.Platform{Name: domain.PlatformAmazonMusic, MetaKey: "amazon_podcast", FieldKey: "field_amz"}, Adapter: adapter},
	})

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	result := report.Platforms[0]
	if result.Updated {
		t.Error("Updated = true though the coherence veto meant no write was attempted")
	}
	if result.SkippedReason == nil || *result.SkippedReason != domain.ReasonCoherenceMismatch {
		t.Errorf("SkippedReason = %v, want coherence_mismatch preserved", result.SkippedReason)
	}
	if len(store.writes) != 0 {
		t.Errorf("writes = %v, want none", store.writes)
	}
	if store.latestCalls != 1 {
		t.Errorf("latest read %d times, want 1 (a vetoed platform is not a fixup candidate)", store.latestCalls)
	}
}

func TestFixup_ExternalWriterWon(t *testing.T) {
	store := &fakeStore{
		latest: &wordpress.LatestPost{
			PostID:     1,
			EpisodeNum: intPtr(30),
			Fields:     rawFields(map[string]string{"amazon_podcast": ""}),
		},
		// The re-read sees some other valid URL: an external writer won.
		latestAfter: &wordpress.LatestPost{
			PostID:     1,
			EpisodeNum: intPtr(30),
			Fields:     rawFields(map[string]string{"amazon_podcast": "https://elsewhere.example/episode-30"}),
		},
	}

	adapter := &fakeAdapter{obs: domain.Observation{
		URL: "https://x.example/episode-30", Number: intPtr(30),
	}}
	service := New(store, []PlatformSource{
		{Platform: domain.Platform{Name: domain.PlatformAmazonMusic, MetaKey: "amazon_podcast", FieldKey: "field_amz"}, Adapter: adapter},
	})

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	result := report.Platforms[0]
	if result.Updated {
		t.Error("Updated = true though an external writer won")
	}
	if result.SkippedReason == nil || *result.SkippedReason != domain.ReasonAlreadyHasValue {
		t.Errorf("SkippedReason = %v, want already_has_value", result.SkippedReason)
	}
}
