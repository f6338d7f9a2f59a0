package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"podcast-sync/pkg/browser"
	"podcast-sync/pkg/config"
	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/httpclient"
	"podcast-sync/pkg/reconcile"
	"podcast-sync/pkg/sources"
	"podcast-sync/pkg/syncservice"
	"podcast-sync/pkg/wordpress"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (optional; built-in defaults otherwise)")
		expected   = flag.Int("expected", -1, "Expected episode number override (-1 means use the latest post's number)")
		noFixup    = flag.Bool("no-fixup", false, "Skip the post-run field re-read that patches raced writes")
		pretty     = flag.Bool("pretty", true, "Indent the JSON report")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *expected >= 0 {
		n := *expected
		cfg.ExpectedEpisode = &n
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	apiClient := httpclient.New(httpclient.APIProfile, cfg.Timeouts.HTTP.Std())
	feedClient := httpclient.New(httpclient.BrowserProfile, cfg.Timeouts.HTTP.Std())
	store := wordpress.NewClient(cfg.LatestEndpoint, cfg.MetaEndpoint,
		wordpress.Credentials{User: cfg.User, Pass: cfg.Pass}, apiClient)

	// Chrome only actually starts if a browser-backed platform needs an
	// observation, so this is free on fully populated posts.
	b := browser.New(ctx, browser.Options{
		PageLoadTimeout: cfg.Timeouts.PageLoad.Std(),
		WaitTimeout:     cfg.Timeouts.Wait.Std(),
	})
	defer b.Close()

	platforms := []syncservice.PlatformSource{
		{
			Platform: domain.Platform{Name: domain.PlatformAmazonMusic, MetaKey: cfg.Amazon.MetaKey, FieldKey: cfg.Amazon.FieldKey},
			Adapter:  sources.NewAmazonAdapter(cfg.Amazon.ChannelURL, b),
		},
		{
			Platform: domain.Platform{Name: domain.PlatformYouTube, MetaKey: cfg.YouTube.MetaKey, FieldKey: cfg.YouTube.FieldKey},
			Adapter:  sources.NewYouTubeAdapter(cfg.YouTube.FeedURL, feedClient),
		},
		{
			Platform: domain.Platform{Name: domain.PlatformITunes, MetaKey: cfg.ITunes.MetaKey, FieldKey: cfg.ITunes.FieldKey},
			Adapter:  sources.NewITunesAdapter(cfg.ITunes.LookupURL, apiClient),
		},
		{
			Platform: domain.Platform{Name: domain.PlatformSpotify, MetaKey: cfg.Spotify.MetaKey, FieldKey: cfg.Spotify.FieldKey},
			Adapter:  sources.NewSpotifyAdapter(cfg.Spotify.ShowURL, b),
		},
	}

	service := syncservice.New(store, platforms)
	service.SetPolicy(reconcile.UnknownActualPolicy(cfg.Coherence.UnknownActual))
	service.SetExpectedEpisode(cfg.ExpectedEpisode)
	service.SetFixup(!*noFixup)

	report, err := service.Run(ctx)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}

	// The JSON report on stdout is the run's one output; the mail
	// formatter downstream parses it.
	var out []byte
	if *pretty {
		out, err = json.MarshalIndent(report, "", "  ")
	} else {
		out, err = json.Marshal(report)
	}
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(out))
}
