// Package syncservice runs one full sync: read the latest post, reconcile
// each platform's field in order, and assemble the run report.
package syncservice

import (
	"context"
	"fmt"
	"log"

	"podcast-sync/pkg/domain"
	"podcast-sync/pkg/reconcile"
	"podcast-sync/pkg/sources"
	"podcast-sync/pkg/wordpress"
)

// FieldStore is the remote field store the run reads from and writes to.
// Satisfied by wordpress.Client.
type FieldStore interface {
	Latest(ctx context.Context) (*wordpress.LatestPost, error)
	WriteFieldIfAbsent(ctx context.Context, fieldKey, value string) (domain.WriteOutcome, error)
}

// PlatformSource pairs a platform's field binding with its episode source.
type PlatformSource struct {
	Platform domain.Platform
	Adapter  sources.Adapter
}

// Service orchestrates a run over a fixed, ordered platform list.
type Service struct {
	store     FieldStore
	platforms []PlatformSource
	policy    reconcile.UnknownActualPolicy
	expected  *int // overrides the latest post's episode number
	fixup     bool
}

// New creates a sync service for the given store and platform list. The
// list order is the report order.
func New(store FieldStore, platforms []PlatformSource) *Service {
	return &Service{
		store:     store,
		platforms: platforms,
		policy:    reconcile.UnknownActualMismatch,
		fixup:     true,
	}
}

// SetPolicy sets the unknown-actual coherence policy for all platforms.
func (s *Service) SetPolicy(policy reconcile.UnknownActualPolicy) {
	if policy != "" {
		s.policy = policy
	}
}

// SetExpectedEpisode overrides the expected episode number for the run.
// Without an override the number reported by the latest post is used.
func (s *Service) SetExpectedEpisode(n *int) {
	s.expected = n
}

// SetFixup toggles the post-run re-read that patches results for writes
// that raced with an external writer. On by default.
func (s *Service) SetFixup(enabled bool) {
	s.fixup = enabled
}

// Run executes one sync. The latest-post read is the only fatal failure:
// without it there is no target post, no field map and no expected episode
// number. Per-platform failures are recorded in the report instead.
func (s *Service) Run(ctx context.Context) (*domain.Report, error) {
	latest, err := s.store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("read latest post: %w", err)
	}

	expected := s.expected
	if expected == nil {
		expected = latest.EpisodeNum
	}

	report := &domain.Report{
		MatchedPostID: latest.PostID,
		TargetTitle:   latest.Title,
		TargetURL:     latest.URL,
		Platforms:     make([]domain.PlatformResult, 0, len(s.platforms)),
	}

	// One platform at a time; a platform's failure never touches the next.
	for _, ps := range s.platforms {
		existing := wordpress.ExistingURL(latest.Fields, ps.Platform.MetaKey)
		r := reconcile.New(ps.Platform, ps.Adapter, s.store, s.policy)
		result := r.Run(ctx, existing, expected)
		log.Printf("%s: needed=%v updated=%v reason=%s",
			result.Name, result.Needed, result.Updated, reasonOrNone(result.SkippedReason))
		report.Platforms = append(report.Platforms, result)
	}

	if s.fixup {
		s.fixupRacedWrites(ctx, report)
	}
	return report, nil
}

// fixupRacedWrites re-reads the field map once after all platforms finished
// and patches results whose write raced with a concurrent external writer:
// if the field now holds the URL we observed, our write landed; if it holds
// a different valid URL, the external writer won. Best-effort only: a
// failed re-read leaves the report as is.
func (s *Service) fixupRacedWrites(ctx context.Context, report *domain.Report) {
	candidates := false
	for _, p := range report.Platforms {
		if writeMayHaveRaced(p) {
			candidates = true
			break
		}
	}
	if !candidates {
		return
	}

	latest, err := s.store.Latest(ctx)
	if err != nil {
		log.Printf("post-run field re-read failed, keeping report as is: %v", err)
		return
	}

	for i := range report.Platforms {
		p := &report.Platforms[i]
		if !writeMayHaveRaced(*p) {
			continue
		}
		current := wordpress.ExistingURL(latest.Fields, s.platforms[i].Platform.MetaKey)
		if !wordpress.IsValidURL(current) {
			continue
		}
		if current == *p.EpisodeURL {
			p.Updated = true
			p.SkippedReason = nil
		} else {
			reason := domain.ReasonAlreadyHasValue
			p.SkippedReason = &reason
		}
	}
}

// writeMayHaveRaced reports whether a write was actually attempted for the
// platform and its recorded outcome could have been decided by a concurrent
// writer. A coherence veto never writes, and a write the store skipped is
// already final, so an externally filled field must not be attributed to
// either of them.
func writeMayHaveRaced(p domain.PlatformResult) bool {
	if !p.Needed || p.Updated || p.EpisodeURL == nil {
		return false
	}
	if p.SkippedReason != nil {
		switch *p.SkippedReason {
		case domain.ReasonCoherenceMismatch, domain.ReasonAlreadyHasValue:
			return false
		}
	}
	return true
}

func reasonOrNone(r *string) string {
	if r == nil {
		return "-"
	}
	return *r
}
