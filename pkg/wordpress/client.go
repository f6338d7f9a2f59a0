// Package wordpress talks to the WordPress agent endpoints that expose the
// latest podcast post and its ACF custom fields.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/httpclient"
)

var (
	ErrMissingCredentials = errors.New("wordpress credentials are not set")
	ErrLatestNotOK        = errors.New("latest endpoint reported ok=false")
)

// LatestPost is the decoded response of the latest-post endpoint: the post
// this run targets, its episode number as reported by the site, and the
// current custom field values keyed by meta key.
type LatestPost struct {
	PostID     int                        `json:"post_id"`
	Title      string                     `json:"title"`
	URL        string                     `json:"url"`
	EpisodeNum *int                       `json:"episode_num"`
	Fields     map[string]json.RawMessage `json:"fields"`
}

// Credentials is the Basic auth pair for the meta endpoint.
type Credentials struct {
	User string
	Pass string
}

// Client reads the latest post and conditionally writes custom fields.
type Client struct {
	latestEndpoint string
	metaEndpoint   string
	creds          Credentials
	http           *httpclient.Client
	now            func() time.Time
}

// NewClient creates a client for the given agent endpoints.
func NewClient(latestEndpoint, metaEndpoint string, creds Credentials, hc *httpclient.Client) *Client {
	return &Client{
		latestEndpoint: latestEndpoint,
		metaEndpoint:   metaEndpoint,
		creds:          creds,
		http:           hc,
		now:            time.Now,
	}
}

// Latest fetches the latest post and its fields. The cache-busting query
// parameter keeps CDN or plugin caches from serving a stale field map.
func (c *Client) Latest(ctx context.Context) (*LatestPost, error) {
	sep := "?"
	if strings.Contains(c.latestEndpoint, "?") {
		sep = "&"
	}
	reqURL := c.latestEndpoint + sep + "t=" + strconv.FormatInt(c.now().UnixMilli(), 10)

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch latest post: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("latest endpoint: unexpected status code: %d", resp.StatusCode)
	}

	var body struct {
		OK bool `json:"ok"`
		LatestPost
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode latest response: %w", err)
	}
	if !body.OK {
		return nil, ErrLatestNotOK
	}

	post := body.LatestPost
	if post.Fields == nil {
		post.Fields = map[string]json.RawMessage{}
	}
	return &post, nil
}

// WriteFieldIfAbsent asks the meta endpoint to set fieldKey to value unless
// the field already holds one. The outcome distinguishes "wrote", "field
// already had a value" and failure; transport errors are returned as errors.
func (c *Client) WriteFieldIfAbsent(ctx context.Context, fieldKey, value string) (domain.WriteOutcome, error) {
	if c.creds.User == "" || c.creds.Pass == "" {
		return domain.WriteOutcome{}, ErrMissingCredentials
	}

	payload, err := json.Marshal(map[string]any{
		"field":          fieldKey,
		"value":          value,
		"is_acf":         true,
		"skip_if_exists": true,
	})
	if err != nil {
		return domain.WriteOutcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.metaEndpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.WriteOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.SetBasicAuth(c.creds.User, c.creds.Pass)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WriteOutcome{}, fmt.Errorf("post meta: %w", err)
	}
	defer drainAndClose(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WriteOutcome{}, fmt.Errorf("read meta response: %w", err)
	}

	return decodeMetaResponse(resp.StatusCode, raw), nil
}

// ExistingURL pulls the current value for a meta key out of the latest-post
// field map. The endpoint returns heterogeneous shapes depending on how the
// field was populated: a bare string, {"url": "..."} or {"value": "..."}.
// Only a valid absolute URL counts as an existing value.
func ExistingURL(fields map[string]json.RawMessage, metaKey string) string {
	raw, ok := fields[metaKey]
	if !ok || len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		URL   string `json:"url"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.URL != "" {
			return strings.TrimSpace(obj.URL)
		}
		if obj.Value != "" {
			return strings.TrimSpace(obj.Value)
		}
	}
	return ""
}

var urlSchemeRe = regexp.MustCompile(`(?i)^https?://`)

// IsValidURL reports whether s is an absolute http(s) URL.
func IsValidURL(s string) bool {
	if !urlSchemeRe.MatchString(s) {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

func drainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
