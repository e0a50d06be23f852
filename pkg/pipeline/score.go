package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Default composite weights.
const (
	DefaultSentimentWeight  = 0.25
	DefaultEngagementWeight = 0.35
	DefaultTopicWeight      = 0.20
	DefaultAudienceWeight   = 0.20
)

// audienceCeiling is the follower count that saturates the audience factor.
const audienceCeiling = 10000000 // 10M

// ScoreWeights weighs the composite affiliate score. A zero value falls back
// to the defaults; any explicitly set weight disables the fallback.
type ScoreWeights struct {
	Sentiment  float64 `json:"sentiment"`
	Engagement float64 `json:"engagement"`
	Topic      float64 `json:"topic"`
	Audience   float64 `json:"audience"`
}

// DefaultScoreWeights returns the standard weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Sentiment:  DefaultSentimentWeight,
		Engagement: DefaultEngagementWeight,
		Topic:      DefaultTopicWeight,
		Audience:   DefaultAudienceWeight,
	}
}

func (w ScoreWeights) withDefaults() ScoreWeights {
	if w == (ScoreWeights{}) {
		return DefaultScoreWeights()
	}
	return w
}

// Score folds the analysis verdict and audience size into FinalScore. The
// score is a pure function of the candidate's current fields, so rescoring
// an already scored candidate yields the same value.
type Score struct {
	weights ScoreWeights
}

// NewScore creates the scoring stage.
func NewScore(weights ScoreWeights) *Score {
	return &Score{weights: weights.withDefaults()}
}

// Name implements the Stage interface.
func (s *Score) Name() string {
	return "score"
}

// Process implements the Stage interface.
func (s *Score) Process(_ context.Context, candidate *platform.Candidate) error {
	analysis := candidate.Analysis
	if analysis == nil {
		return fmt.Errorf("candidate %s has no analysis attached", candidate.ID)
	}

	composite := s.weights.Sentiment*analysis.Sentiment +
		s.weights.Engagement*analysis.EngagementPotential +
		s.weights.Topic*analysis.TopicRelevance +
		s.weights.Audience*audienceFactor(candidate.Followers)

	candidate.FinalScore = clamp01(composite)
	return nil
}

// audienceFactor log-scales follower count to [0, 1], saturating at the
// ceiling.
func audienceFactor(followers int) float64 {
	if followers <= 0 {
		return 0
	}
	return clamp01(math.Log10(float64(followers)) / math.Log10(audienceCeiling))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
