package domain

// Skip reason codes produced by the reconciler itself. Adapter error codes
// and remote-supplied reasons pass through unchanged.
const (
	ReasonAlreadyHasValue   = "already_has_value"
	ReasonCoherenceMismatch = "coherence_mismatch"
	ReasonUpdateFailed      = "update_failed"
)

// Coherence compares the expected episode number against the number
// extracted from a fresh observation. Matched is tri-state: nil means the
// check was not evaluated (field already populated, or the observation
// failed outright).
type Coherence struct {
	Expected *int    `json:"expected"`
	Actual   *int    `json:"actual"`
	Title    *string `json:"title"`
	Matched  *bool   `json:"matched"`
}

// PlatformResult is the reconciliation outcome for one platform.
type PlatformResult struct {
	Name          string    `json:"name"`
	Needed        bool      `json:"needed"`
	EpisodeURL    *string   `json:"episode_url"`
	Updated       bool      `json:"updated"`
	SkippedReason *string   `json:"skipped_reason"`
	Coherence     Coherence `json:"coherence"`
}

// Report is the single structured object a run prints. It is consumed
// downstream by a notification formatter.
type Report struct {
	MatchedPostID int              `json:"matched_post_id"`
	TargetTitle   string           `json:"target_title"`
	TargetURL     string           `json:"target_url"`
	Platforms     []PlatformResult `json:"platforms"`
}
