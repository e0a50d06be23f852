package pipeline

import (
	"context"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Follower tiers attached during enrichment.
const (
	TierNano  = "nano"
	TierMicro = "micro"
	TierMid   = "mid"
	TierMacro = "macro"
	TierMega  = "mega"
)

// viewersPerEngagement scales per-post engagement into an impression
// estimate: engagement typically runs near five percent of views.
const viewersPerEngagement = 20

// Enrich derives the engagement fields the analyzers and scorer work from.
// Derived fields are recomputed from the raw counters on every pass, never
// accumulated.
type Enrich struct{}

// NewEnrich creates the enrichment stage.
func NewEnrich() *Enrich {
	return &Enrich{}
}

// Name implements the Stage interface.
func (e *Enrich) Name() string {
	return "enrich"
}

// Process implements the Stage interface.
func (e *Enrich) Process(_ context.Context, candidate *platform.Candidate) error {
	engagement := candidate.AvgLikes + candidate.AvgComments

	if candidate.Followers > 0 {
		candidate.EngagementRate = float64(engagement) / float64(candidate.Followers)
	} else {
		candidate.EngagementRate = 0
	}

	candidate.FollowerTier = followerTier(candidate.Followers)
	candidate.Reach = int(float64(engagement*viewersPerEngagement) * candidate.PostsPerWeek)
	return nil
}

func followerTier(followers int) string {
	switch {
	case followers < 10000:
		return TierNano
	case followers < 100000:
		return TierMicro
	case followers < 1000000:
		return TierMid
	case followers < 10000000:
		return TierMacro
	default:
		return TierMega
	}
}
