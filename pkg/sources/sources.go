// Package sources turns platform-specific pages, feeds and APIs into
// normalized latest-episode observations.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"podcast-sync/pkg/domain"
)

// Adapter observes the latest known episode on one platform. A failed
// observation is reported as a *SourceError carrying a short code; the
// reconciler records that code instead of aborting the run.
type Adapter interface {
	Observe(ctx context.Context) (domain.Observation, error)
}

// PageRenderer renders a JavaScript-heavy page and returns its HTML once
// waitSelector has appeared. Satisfied by browser.Browser.
type PageRenderer interface {
	RenderedHTML(ctx context.Context, pageURL, waitSelector string) (string, error)
}

// SourceError is an observation failure with a short machine-readable code
// ("no_entry", "http_404", ...) that ends up in the run report.
type SourceError struct {
	Code string
	Err  error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError wraps err (which may be nil) under a short code.
func NewSourceError(code string, err error) *SourceError {
	return &SourceError{Code: code, Err: err}
}

func httpStatusError(status int) *SourceError {
	return &SourceError{Code: fmt.Sprintf("http_%d", status)}
}

// ErrorCode extracts the code from an observation failure, falling back to
// "fetch_failed" for errors of unknown cause.
func ErrorCode(err error) string {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Code
	}
	return "fetch_failed"
}

// resolveHref makes href absolute against the origin of base. Platform
// pages link episodes with root-relative hrefs.
func resolveHref(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	u, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return u.ResolveReference(ref).String()
}

// firstTextLine returns the first non-empty line of a rendered text blob.
func firstTextLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
