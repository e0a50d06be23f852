package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// healthyEngagementRate is the per-post engagement ratio treated as full
// engagement potential. Rates above it clamp to 1.
const healthyEngagementRate = 0.05

// intentTerms mark a profile as open to affiliate work. Base forms only:
// matching is by substring, so "partner" also catches "partnership".
var intentTerms = []string{
	"affiliate",
	"ambassador",
	"brand deal",
	"collab",
	"creator",
	"discount code",
	"partner",
	"promo",
	"referral",
	"sponsor",
}

var positiveTerms = []string{
	"amazing", "best", "excited", "grow", "happy", "inspiring", "love", "passionate",
}

var negativeTerms = []string{
	"angry", "drama", "hate", "never", "scam", "spam", "worst",
}

// KeywordAnalyzer scores a candidate from bio and keyword text: topic
// relevance against the affiliate-intent lexicon, sentiment from the
// positive/negative balance.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates the general content analyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Name implements the Processor interface.
func (a *KeywordAnalyzer) Name() string {
	return "keyword"
}

// Analyze implements the Processor interface.
func (a *KeywordAnalyzer) Analyze(ctx context.Context, candidate *platform.Candidate) (*platform.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	corpus := candidateCorpus(candidate)
	topics := matchedTerms(corpus, intentTerms)

	positive := len(matchedTerms(corpus, positiveTerms))
	negative := len(matchedTerms(corpus, negativeTerms))

	return &platform.Analysis{
		Sentiment:           sentimentBalance(positive, negative),
		EngagementPotential: engagementPotential(candidate),
		TopicRelevance:      clampUnit(float64(len(topics)) / 4),
		Topics:              topics,
		Summary:             fmt.Sprintf("%d affiliate intent signals, %s tone", len(topics), toneLabel(positive, negative)),
	}, nil
}

func candidateCorpus(candidate *platform.Candidate) string {
	parts := make([]string, 0, len(candidate.Keywords)+1)
	parts = append(parts, candidate.Bio)
	parts = append(parts, candidate.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

func matchedTerms(corpus string, terms []string) []string {
	var matched []string
	for _, term := range terms {
		if strings.Contains(corpus, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// sentimentBalance maps the positive share of matched sentiment terms to
// [0, 1], with 0.5 for text carrying no sentiment signal.
func sentimentBalance(positive, negative int) float64 {
	total := positive + negative
	if total == 0 {
		return 0.5
	}
	return float64(positive) / float64(total)
}

func toneLabel(positive, negative int) string {
	switch {
	case positive > negative:
		return "positive"
	case negative > positive:
		return "negative"
	default:
		return "neutral"
	}
}

func engagementPotential(candidate *platform.Candidate) float64 {
	if candidate.Followers <= 0 {
		return 0
	}
	rate := float64(candidate.AvgLikes+candidate.AvgComments) / float64(candidate.Followers)
	return clampUnit(rate / healthyEngagementRate)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
