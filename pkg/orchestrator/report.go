package orchestrator

import (
	"sort"
	"time"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// PlatformSummary is one platform's slice of the session outcome. A failed
// platform appears with a zero count.
type PlatformSummary struct {
	AffiliateCount int                   `json:"affiliate_count"`
	TopCandidates  []*platform.Candidate `json:"top_candidates,omitempty"`
}

// DiscoveryReport is the immutable result of one discovery session. It is
// returned to the caller and never persisted by this layer.
type DiscoveryReport struct {
	SessionID       string                                 `json:"session_id"`
	StartedAt       time.Time                              `json:"started_at"`
	FinishedAt      time.Time                              `json:"finished_at"`
	TotalDiscovered int                                    `json:"total_discovered"`
	TotalQualified  int                                    `json:"total_qualified"`
	Platforms       map[platform.Platform]PlatformSummary `json:"platforms"`
	TopCandidates   []*platform.Candidate                  `json:"top_candidates,omitempty"`
	Recommendations []string                               `json:"recommendations,omitempty"`
}

// sortByScore orders candidates by FinalScore descending, breaking ties by
// username so reports are deterministic.
func sortByScore(candidates []*platform.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		return candidates[i].Username < candidates[j].Username
	})
}

func topN(sorted []*platform.Candidate, n int) []*platform.Candidate {
	if len(sorted) < n {
		n = len(sorted)
	}
	top := make([]*platform.Candidate, n)
	copy(top, sorted[:n])
	return top
}
