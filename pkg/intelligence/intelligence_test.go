package intelligence_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/growthloop/prospector-go/pkg/intelligence"
	"github.com/growthloop/prospector-go/pkg/platform"
)

type fakeProcessor struct {
	name    string
	analyze func(ctx context.Context, c *platform.Candidate) (*platform.Analysis, error)
}

func (f *fakeProcessor) Name() string { return f.name }

func (f *fakeProcessor) Analyze(ctx context.Context, c *platform.Candidate) (*platform.Analysis, error) {
	if f.analyze != nil {
		return f.analyze(ctx, c)
	}
	return &platform.Analysis{Sentiment: 0.5}, nil
}

func fitnessCandidate() *platform.Candidate {
	return &platform.Candidate{
		ID:           "ig-2002",
		Platform:     platform.Instagram,
		Username:     "fit_mia",
		Bio:          "Fitness creator. Open to partnership and collab. Love helping people grow.",
		Keywords:     []string{"fitness"},
		Followers:    20000,
		AvgLikes:     800,
		AvgComments:  200,
		PostsPerWeek: 3.5,
	}
}

var _ = Describe("Registry", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("requires a general processor", func() {
		_, err := intelligence.NewRegistry(nil, nil)
		Expect(err).To(MatchError(ContainSubstring("general processor")))
	})

	It("fails fast when a required platform has no dedicated processor", func() {
		general := &fakeProcessor{name: "general"}
		_, err := intelligence.NewRegistry(general, nil, platform.Instagram)
		Expect(err).To(MatchError(ContainSubstring(`"instagram"`)))
	})

	It("routes to the dedicated processor, general otherwise", func() {
		general := &fakeProcessor{name: "general"}
		dedicated := &fakeProcessor{name: "instagram-only"}
		registry, err := intelligence.NewRegistry(general, map[platform.Platform]intelligence.Processor{
			platform.Instagram: dedicated,
		}, platform.Instagram)
		Expect(err).NotTo(HaveOccurred())

		Expect(registry.ProcessorFor(platform.Instagram).Name()).To(Equal("instagram-only"))
		Expect(registry.ProcessorFor(platform.TikTok).Name()).To(Equal("general"))
	})

	It("attaches the analysis and stamps its provenance", func() {
		general := &fakeProcessor{
			name: "general",
			analyze: func(context.Context, *platform.Candidate) (*platform.Analysis, error) {
				return &platform.Analysis{Sentiment: 0.9}, nil
			},
		}
		registry, err := intelligence.NewRegistry(general, nil)
		Expect(err).NotTo(HaveOccurred())

		candidate := fitnessCandidate()
		Expect(registry.Analyze(ctx, candidate)).To(Succeed())

		Expect(candidate.Analysis).NotTo(BeNil())
		Expect(candidate.Analysis.Sentiment).To(Equal(0.9))
		Expect(candidate.Analysis.Analyzer).To(Equal("general"))
	})

	It("wraps processor failures in a ProcessingError", func() {
		boom := errors.New("model unavailable")
		general := &fakeProcessor{
			name: "general",
			analyze: func(context.Context, *platform.Candidate) (*platform.Analysis, error) {
				return nil, boom
			},
		}
		registry, err := intelligence.NewRegistry(general, nil)
		Expect(err).NotTo(HaveOccurred())

		candidate := fitnessCandidate()
		analyzeErr := registry.Analyze(ctx, candidate)

		var procErr *intelligence.ProcessingError
		Expect(errors.As(analyzeErr, &procErr)).To(BeTrue())
		Expect(procErr.CandidateID).To(Equal("ig-2002"))
		Expect(errors.Is(analyzeErr, boom)).To(BeTrue())
		Expect(candidate.Analysis).To(BeNil())
	})

	It("rejects a processor that returns no analysis", func() {
		general := &fakeProcessor{
			name: "general",
			analyze: func(context.Context, *platform.Candidate) (*platform.Analysis, error) {
				return nil, nil
			},
		}
		registry, err := intelligence.NewRegistry(general, nil)
		Expect(err).NotTo(HaveOccurred())

		var procErr *intelligence.ProcessingError
		Expect(errors.As(registry.Analyze(ctx, fitnessCandidate()), &procErr)).To(BeTrue())
	})
})

var _ = Describe("KeywordAnalyzer", func() {
	var (
		ctx      context.Context
		analyzer *intelligence.KeywordAnalyzer
	)

	BeforeEach(func() {
		ctx = context.Background()
		analyzer = intelligence.NewKeywordAnalyzer()
	})

	It("scores affiliate intent from bio and keywords", func() {
		analysis, err := analyzer.Analyze(ctx, fitnessCandidate())
		Expect(err).NotTo(HaveOccurred())

		Expect(analysis.Topics).To(ConsistOf("collab", "creator", "partner"))
		Expect(analysis.TopicRelevance).To(BeNumerically("~", 0.75, 1e-9))
		Expect(analysis.Sentiment).To(Equal(1.0))
		Expect(analysis.EngagementPotential).To(BeNumerically("~", 1.0, 1e-9))
		Expect(analysis.Summary).To(ContainSubstring("positive"))
	})

	It("reads negative tone from the lexicon", func() {
		candidate := fitnessCandidate()
		candidate.Bio = "I hate spam and drama"

		analysis, err := analyzer.Analyze(ctx, candidate)
		Expect(err).NotTo(HaveOccurred())

		Expect(analysis.Sentiment).To(BeZero())
		Expect(analysis.Summary).To(ContainSubstring("negative"))
	})

	It("stays neutral when the text carries no sentiment signal", func() {
		candidate := fitnessCandidate()
		candidate.Bio = "Daily vlogs"
		candidate.Keywords = nil

		analysis, err := analyzer.Analyze(ctx, candidate)
		Expect(err).NotTo(HaveOccurred())

		Expect(analysis.Sentiment).To(Equal(0.5))
		Expect(analysis.Topics).To(BeEmpty())
		Expect(analysis.TopicRelevance).To(BeZero())
	})

	It("reports zero engagement potential without followers", func() {
		candidate := fitnessCandidate()
		candidate.Followers = 0

		analysis, err := analyzer.Analyze(ctx, candidate)
		Expect(err).NotTo(HaveOccurred())
		Expect(analysis.EngagementPotential).To(BeZero())
	})
})

var _ = Describe("EngagementAnalyzer", func() {
	var (
		ctx      context.Context
		analyzer *intelligence.EngagementAnalyzer
	)

	BeforeEach(func() {
		ctx = context.Background()
		analyzer = intelligence.NewEngagementAnalyzer()
	})

	It("scores engagement potential from the ratio at normal cadence", func() {
		analysis, err := analyzer.Analyze(ctx, fitnessCandidate())
		Expect(err).NotTo(HaveOccurred())

		Expect(analysis.EngagementPotential).To(BeNumerically("~", 1.0, 1e-9))
		Expect(analysis.Sentiment).To(Equal(0.5))
		Expect(analysis.Summary).To(ContainSubstring("5.00%"))
	})

	It("discounts dormant accounts", func() {
		candidate := fitnessCandidate()
		candidate.Followers = 40000
		candidate.PostsPerWeek = 0

		analysis, err := analyzer.Analyze(ctx, candidate)
		Expect(err).NotTo(HaveOccurred())

		// rate 0.025 -> 0.5 of healthy, halved again for dormancy.
		Expect(analysis.EngagementPotential).To(BeNumerically("~", 0.25, 1e-9))
	})

	It("clamps daily posters to full potential", func() {
		candidate := fitnessCandidate()
		candidate.PostsPerWeek = 10

		analysis, err := analyzer.Analyze(ctx, candidate)
		Expect(err).NotTo(HaveOccurred())
		Expect(analysis.EngagementPotential).To(Equal(1.0))
	})
})
