package platform

import (
	"sort"
	"time"
)

// Platform identifies a social network targeted for prospect discovery.
type Platform string

const (
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
)

func (p Platform) String() string {
	return string(p)
}

// Criteria narrows a discovery run on a single platform. Empty criteria
// would scrape a platform blind, so orchestration skips them.
type Criteria struct {
	MinFollowers  int      `json:"min_followers"`
	MinEngagement float64  `json:"min_engagement"`
	Keywords      []string `json:"keywords,omitempty"`
	MaxResults    int      `json:"max_results"`
}

// NonTrivial reports whether the criteria constrain the search at all.
func (c Criteria) NonTrivial() bool {
	return c.MinFollowers > 0 || c.MinEngagement > 0 || len(c.Keywords) > 0
}

// SearchCriteria maps each platform to the criteria for one discovery
// session.
type SearchCriteria map[Platform]Criteria

// EligiblePlatforms returns the platforms whose criteria are non-trivial,
// sorted for deterministic fan-out order.
func (sc SearchCriteria) EligiblePlatforms() []Platform {
	eligible := make([]Platform, 0, len(sc))
	for p, c := range sc {
		if c.NonTrivial() {
			eligible = append(eligible, p)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i] < eligible[j]
	})
	return eligible
}

// CandidateStub is the lightweight discovery hit returned by a platform
// worker before detail hydration.
type CandidateStub struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Platform Platform `json:"platform"`
}

// Analysis is the intelligence verdict attached to a candidate. Scores are
// normalized to [0, 1].
type Analysis struct {
	Sentiment           float64  `json:"sentiment"`
	EngagementPotential float64  `json:"engagement_potential"`
	TopicRelevance      float64  `json:"topic_relevance"`
	Topics              []string `json:"topics,omitempty"`
	Summary             string   `json:"summary,omitempty"`
	Analyzer            string   `json:"analyzer"`
}

// Candidate is a fully hydrated affiliate prospect flowing through analysis
// and the processing pipeline.
type Candidate struct {
	ID          string   `json:"id"`
	Platform    Platform `json:"platform"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`

	Followers    int     `json:"followers"`
	AvgLikes     int     `json:"avg_likes"`
	AvgComments  int     `json:"avg_comments"`
	PostsPerWeek float64 `json:"posts_per_week"`

	// Derived during enrichment.
	EngagementRate float64 `json:"engagement_rate"`
	FollowerTier   string  `json:"follower_tier,omitempty"`
	Reach          int     `json:"reach"`

	Analysis   *Analysis `json:"analysis,omitempty"`
	FinalScore float64   `json:"final_score"`

	DiscoveredAt time.Time `json:"discovered_at"`
}
