// Package episode extracts episode numbers from titles and URLs.
package episode

import (
	"net/url"
	"regexp"
	"strconv"
)

var (
	// Explicit marker: "Episode 28｜...", "エピソード28", case-insensitive,
	// any non-digit separators between marker and number.
	titleMarkerRe = regexp.MustCompile(`(?i)(?:episode|エピソード)[^0-9]*([0-9]+)`)

	// Fallback: the digit run at the end of the title, tolerating trailing
	// punctuation ("...第28回｜").
	titleTrailingRe = regexp.MustCompile(`([0-9]+)[^0-9]*$`)

	// URL path segments like /episode-12/ or /episode/12.
	urlRe = regexp.MustCompile(`(?i)episode[-/]([0-9]{1,4})`)
)

// FromTitle extracts an episode number from a title. An explicit episode
// marker wins; otherwise the trailing digit run is taken. Absence of a
// match is reported as ok=false, never an error.
func FromTitle(title string) (int, bool) {
	if title == "" {
		return 0, false
	}
	if m := titleMarkerRe.FindStringSubmatch(title); m != nil {
		return parseNum(m[1])
	}
	if m := titleTrailingRe.FindStringSubmatch(title); m != nil {
		return parseNum(m[1])
	}
	return 0, false
}

// FromURL extracts an episode number from a URL, percent-decoding first so
// encoded paths still match.
func FromURL(rawURL string) (int, bool) {
	if rawURL == "" {
		return 0, false
	}
	decoded := rawURL
	if d, err := url.QueryUnescape(rawURL); err == nil {
		decoded = d
	}
	if m := urlRe.FindStringSubmatch(decoded); m != nil {
		return parseNum(m[1])
	}
	return 0, false
}

// Pick combines both extractors: the title-derived number is preferred,
// the URL-derived number is the fallback, nil means unknown.
func Pick(title, rawURL string) *int {
	if n, ok := FromTitle(title); ok {
		return &n
	}
	if n, ok := FromURL(rawURL); ok {
		return &n
	}
	return nil
}

func parseNum(digits string) (int, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
