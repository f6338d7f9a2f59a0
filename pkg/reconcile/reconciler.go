// Package reconcile decides, for one platform, whether the latest episode
// URL needs to be fetched and written into the remote field store, and
// reports what happened.
package reconcile

import (
	"context"
	"log"
	"strconv"

	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/sources"
	"podcast-sync/pkg/wordpress"
)

// UnknownActualPolicy decides the coherence verdict when the expected
// episode number is known but no number could be extracted from the
// observation. The source revisions disagreed on this, so it is a named
// option instead of a silent choice.
type UnknownActualPolicy string

const (
	// UnknownActualMismatch vetoes the write: an observation that cannot
	// be confirmed against the expected episode is treated as stale.
	UnknownActualMismatch UnknownActualPolicy = "mismatch"

	// UnknownActualPass treats the unconfirmable observation as a vacuous
	// match and writes anyway.
	UnknownActualPass UnknownActualPolicy = "pass"
)

// FieldWriter is the conditional-write half of the remote field store.
// Satisfied by wordpress.Client.
type FieldWriter interface {
	WriteFieldIfAbsent(ctx context.Context, fieldKey, value string) (domain.WriteOutcome, error)
}

// Reconciler runs the needs-update / coherence / conditional-write decision
// for a single platform. One instance per platform per run.
type Reconciler struct {
	platform domain.Platform
	adapter  sources.Adapter
	writer   FieldWriter
	policy   UnknownActualPolicy
}

// New creates a reconciler for one platform.
func New(platform domain.Platform, adapter sources.Adapter, writer FieldWriter, policy UnknownActualPolicy) *Reconciler {
	if policy == "" {
		policy = UnknownActualMismatch
	}
	return &Reconciler{
		platform: platform,
		adapter:  adapter,
		writer:   writer,
		policy:   policy,
	}
}

// Run reconciles the platform against the existing field value and the
// run-wide expected episode number. It performs at most one observation and
// at most one write, and always returns a fully populated result; failures
// along the way are recorded, never raised.
func (r *Reconciler) Run(ctx context.Context, existingValue string, expected *int) domain.PlatformResult {
	result := domain.PlatformResult{
		Name:      r.platform.Name,
		Coherence: domain.Coherence{Expected: expected},
	}

	// A field that already holds a valid URL is left alone entirely: no
	// observation, no write, coherence not evaluated. Re-runs are no-ops.
	if wordpress.IsValidURL(existingValue) {
		result.SkippedReason = strPtr(domain.ReasonAlreadyHasValue)
		return result
	}
	result.Needed = true

	obs, err := r.adapter.Observe(ctx)
	if err != nil || obs.URL == "" {
		code := "fetch_failed"
		if err != nil {
			code = sources.ErrorCode(err)
		}
		log.Printf("%s: observation failed: %s", r.platform.Name, code)
		result.SkippedReason = &code
		return result
	}

	result.EpisodeURL = &obs.URL
	result.Coherence.Actual = obs.Number
	if obs.Title != "" {
		result.Coherence.Title = &obs.Title
	}

	matched := r.matched(expected, obs.Number)
	result.Coherence.Matched = &matched
	if !matched {
		log.Printf("%s: coherence mismatch (expected %s, observed %s), not writing",
			r.platform.Name, fmtNum(expected), fmtNum(obs.Number))
		result.SkippedReason = strPtr(domain.ReasonCoherenceMismatch)
		return result
	}

	outcome, err := r.writer.WriteFieldIfAbsent(ctx, r.platform.FieldKey, obs.URL)
	if err != nil {
		log.Printf("%s: field write failed: %v", r.platform.Name, err)
		result.SkippedReason = strPtr(domain.ReasonUpdateFailed)
		return result
	}

	switch {
	case outcome.Updated:
		result.Updated = true
	case outcome.Skipped:
		// Another writer filled the field between our existence check and
		// the write; retroactively already satisfied.
		reason := outcome.Reason
		if reason == "" {
			reason = domain.ReasonAlreadyHasValue
		}
		result.SkippedReason = &reason
	default:
		reason := outcome.Reason
		if reason == "" {
			reason = domain.ReasonUpdateFailed
		}
		result.SkippedReason = &reason
	}
	return result
}

// matched applies the coherence rule: an unknown expected number has
// nothing to contradict (vacuous pass); an unknown observed number falls to
// the configured policy; otherwise plain equality.
func (r *Reconciler) matched(expected, actual *int) bool {
	if expected == nil {
		return true
	}
	if actual == nil {
		return r.policy == UnknownActualPass
	}
	return *actual == *expected
}

func strPtr(s string) *string { return &s }

func fmtNum(n *int) string {
	if n == nil {
		return "unknown"
	}
	return strconv.Itoa(*n)
}
