package intelligence

import (
	"context"
	"fmt"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// EngagementAnalyzer scores feed-style platforms purely from the numbers:
// engagement ratio weighted by posting cadence. Text is only consulted for
// the affiliate-intent topics; sentiment stays neutral.
type EngagementAnalyzer struct{}

// NewEngagementAnalyzer creates the numeric analyzer.
func NewEngagementAnalyzer() *EngagementAnalyzer {
	return &EngagementAnalyzer{}
}

// Name implements the Processor interface.
func (a *EngagementAnalyzer) Name() string {
	return "engagement"
}

// Analyze implements the Processor interface.
func (a *EngagementAnalyzer) Analyze(ctx context.Context, candidate *platform.Candidate) (*platform.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rate := 0.0
	if candidate.Followers > 0 {
		rate = float64(candidate.AvgLikes+candidate.AvgComments) / float64(candidate.Followers)
	}
	potential := clampUnit(rate / healthyEngagementRate * cadenceFactor(candidate.PostsPerWeek))

	topics := matchedTerms(candidateCorpus(candidate), intentTerms)

	return &platform.Analysis{
		Sentiment:           0.5,
		EngagementPotential: potential,
		TopicRelevance:      clampUnit(float64(len(topics)) / 4),
		Topics:              topics,
		Summary:             fmt.Sprintf("engagement rate %.2f%% at %.1f posts/week", rate*100, candidate.PostsPerWeek),
	}, nil
}

// cadenceFactor discounts dormant accounts and rewards daily posters.
func cadenceFactor(postsPerWeek float64) float64 {
	switch {
	case postsPerWeek <= 0:
		return 0.5
	case postsPerWeek < 1:
		return 0.8
	case postsPerWeek > 7:
		return 1.1
	default:
		return 1.0
	}
}
