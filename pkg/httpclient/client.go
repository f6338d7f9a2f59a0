package httpclient

import (
	"context"
	"net/http"
	"time"
)

// Profile represents the header profile an HTTP client sends
type Profile string

const (
	// BrowserProfile uses browser-like headers for podcast platform pages
	// that block obvious non-browser clients
	BrowserProfile Profile = "browser"

	// APIProfile uses plain JSON headers for REST-ish endpoints
	// (WordPress agent endpoints, iTunes lookup, feed URLs)
	APIProfile Profile = "api"
)

// Chrome desktop user agent, matching what the platform pages are served to
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Client wraps an http.Client with a header profile and timeout
type Client struct {
	client  *http.Client
	profile Profile
}

// New creates a new HTTP client with the specified profile and timeout.
// A timeout <= 0 means no client-level timeout; callers are expected to
// bound requests through the context instead.
func New(profile Profile, timeout time.Duration) *Client {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow up to 10 redirects
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &Client{
		client:  client,
		profile: profile,
	}
}

// Do executes an HTTP request with the appropriate headers for the profile
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// Get is a convenience method for GET requests
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// setHeaders sets the appropriate headers based on the profile
func (c *Client) setHeaders(req *http.Request) {
	switch c.profile {
	case BrowserProfile:
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9,en-US;q=0.8")
		req.Header.Set("Connection", "keep-alive")

	case APIProfile:
		req.Header.Set("Accept", "application/json")

	default:
		// Default: use Go's default User-Agent
	}
}
