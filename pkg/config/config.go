// Package config builds the immutable run configuration: endpoints,
// credentials, platform bindings, timeouts and the coherence policy. It is
// constructed once in main and passed into the constructors that need it;
// business logic never reads the environment directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PlatformBinding ties one platform to its WordPress field and its source
// location. Exactly one of the source URLs is set per platform.
type PlatformBinding struct {
	MetaKey    string `yaml:"meta_key"`
	FieldKey   string `yaml:"field_key"`
	ChannelURL string `yaml:"channel_url,omitempty"` // Amazon Music channel page
	FeedURL    string `yaml:"feed_url,omitempty"`    // YouTube channel Atom feed
	LookupURL  string `yaml:"lookup_url,omitempty"`  // iTunes episode lookup
	ShowURL    string `yaml:"show_url,omitempty"`    // Spotify show page
}

// Duration is a time.Duration that unmarshals from YAML strings like "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Timeouts bounds the slow remote calls of a run.
type Timeouts struct {
	PageLoad Duration `yaml:"page_load"` // browser navigation
	Wait     Duration `yaml:"wait"`      // browser selector wait
	HTTP     Duration `yaml:"http"`      // plain network calls
}

// Coherence holds the episode-number check settings.
type Coherence struct {
	// UnknownActual is "mismatch" (default: an observation whose episode
	// number cannot be extracted is vetoed) or "pass" (written anyway).
	UnknownActual string `yaml:"unknown_actual"`
}

// Config is the full immutable run configuration.
type Config struct {
	LatestEndpoint string `yaml:"latest_endpoint"`
	MetaEndpoint   string `yaml:"meta_endpoint"`

	User string `yaml:"-"` // WP_USER, never from file
	Pass string `yaml:"-"` // WP_PASS, never from file

	Amazon  PlatformBinding `yaml:"amazon"`
	YouTube PlatformBinding `yaml:"youtube"`
	ITunes  PlatformBinding `yaml:"itunes"`
	Spotify PlatformBinding `yaml:"spotify"`

	Timeouts  Timeouts  `yaml:"timeouts"`
	Coherence Coherence `yaml:"coherence"`

	// ExpectedEpisode overrides the episode number reported by the latest
	// post. Nil means "use the post's own number".
	ExpectedEpisode *int `yaml:"-"`
}

// Default returns the built-in configuration for the Real Management
// Podcast setup the tool was written for.
func Default() *Config {
	return &Config{
		LatestEndpoint: "https://hossy.org/wp-json/agent/v1/latest",
		MetaEndpoint:   "https://hossy.org/wp-json/agent/v1/meta",
		Amazon: PlatformBinding{
			MetaKey:    "amazon_podcast",
			FieldKey:   "field_680d867a57991",
			ChannelURL: "https://music.amazon.co.jp/podcasts/e5b6823d-8e80-425f-8935-83bf019b8931",
		},
		YouTube: PlatformBinding{
			MetaKey:  "youtube_podcast",
			FieldKey: "field_680bf82a6b5c0",
			FeedURL:  "https://www.youtube.com/feeds/videos.xml?channel_id=UC4vypjnhxhnyGERcqRGv5nA",
		},
		ITunes: PlatformBinding{
			MetaKey:   "apple_podcast",
			FieldKey:  "field_680bf86a6b5c2",
			LookupURL: "https://itunes.apple.com/lookup?id=1810690058&entity=podcastEpisode",
		},
		Spotify: PlatformBinding{
			MetaKey:  "spotify_podcast",
			FieldKey: "field_680bf85c6b5c1",
			ShowURL:  "https://open.spotify.com/show/1F9Wl0HZBxkHsVToJhpyQl",
		},
		Timeouts: Timeouts{
			PageLoad: Duration(90 * time.Second),
			Wait:     Duration(60 * time.Second),
			HTTP:     Duration(30 * time.Second),
		},
		Coherence: Coherence{UnknownActual: "mismatch"},
	}
}

// Load builds the configuration: defaults, then the optional YAML file,
// then environment variables. Call Validate before using the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays the environment variables the original deployment used.
func (c *Config) applyEnv() {
	if v := os.Getenv("LATEST_ENDPOINT"); v != "" {
		c.LatestEndpoint = v
	}
	if v := os.Getenv("META_ENDPOINT"); v != "" {
		c.MetaEndpoint = v
	}
	c.User = os.Getenv("WP_USER")
	c.Pass = os.Getenv("WP_PASS")

	if v := os.Getenv("EXPECTED_EPISODE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.ExpectedEpisode = &n
		}
	}
}

// Validate enforces the fatal-configuration rules: without credentials and
// endpoints no reconciliation can be trusted, so the run must not start.
func (c *Config) Validate() error {
	if c.User == "" || c.Pass == "" {
		return errors.New("WP_USER and WP_PASS must be set")
	}
	if c.LatestEndpoint == "" {
		return errors.New("latest endpoint is not configured")
	}
	if c.MetaEndpoint == "" {
		return errors.New("meta endpoint is not configured")
	}
	switch c.Coherence.UnknownActual {
	case "", "mismatch", "pass":
	default:
		return fmt.Errorf("coherence.unknown_actual must be \"mismatch\" or \"pass\", got %q", c.Coherence.UnknownActual)
	}
	return nil
}
