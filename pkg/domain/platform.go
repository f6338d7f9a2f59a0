package domain

// Platform binds a podcast platform to its WordPress custom field.
// The set of platforms is fixed; nothing extends it at runtime.
type Platform struct {
	Name     string // report name, e.g. "amazon_music"
	MetaKey  string // ACF field name used to read the existing value
	FieldKey string // ACF field_key used for writes
}

// Platform names, in the order they appear in the run report.
const (
	PlatformAmazonMusic = "amazon_music"
	PlatformYouTube     = "youtube"
	PlatformITunes      = "itunes"
	PlatformSpotify     = "spotify"
)

// Observation is the latest-episode result from one platform's source.
// URL is the primary signal; Title and Number are best-effort extras.
type Observation struct {
	URL    string
	Title  string
	Number *int
}

// WriteOutcome is the normalized result of a conditional field write.
type WriteOutcome struct {
	Updated bool   // a value was actually set
	Skipped bool   // the field already had a value
	Reason  string // remote-supplied reason, if any
}
