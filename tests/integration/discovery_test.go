package integration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/growthloop/prospector-go/pkg/intelligence"
	"github.com/growthloop/prospector-go/pkg/orchestrator"
	"github.com/growthloop/prospector-go/pkg/pipeline"
	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/proxy"
	"github.com/growthloop/prospector-go/pkg/ratelimit"
	"github.com/growthloop/prospector-go/pkg/scheduler"
	"github.com/growthloop/prospector-go/pkg/scrapers"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// memoryWorker serves canned profiles so the full stack runs without a
// scraping provider.
type memoryWorker struct {
	platform platform.Platform
	profiles map[string]*platform.Candidate
}

func newMemoryWorker(p platform.Platform, usernames ...string) *memoryWorker {
	profiles := make(map[string]*platform.Candidate, len(usernames))
	for i, username := range usernames {
		id := fmt.Sprintf("%s-%d", p, i+1)
		profiles[id] = &platform.Candidate{
			ID:           id,
			Platform:     p,
			Username:     username,
			DisplayName:  username,
			Bio:          "Fitness creator. Open to partnership and collab. Love helping people grow.",
			Keywords:     []string{"fitness"},
			Followers:    20000 + i*5000,
			AvgLikes:     900,
			AvgComments:  100,
			PostsPerWeek: 4,
			DiscoveredAt: time.Now().UTC(),
		}
	}
	return &memoryWorker{platform: p, profiles: profiles}
}

func (w *memoryWorker) Discover(ctx context.Context, criteria platform.Criteria) ([]platform.CandidateStub, error) {
	stubs := make([]platform.CandidateStub, 0, len(w.profiles))
	for id, profile := range w.profiles {
		stubs = append(stubs, platform.CandidateStub{
			ID:       id,
			Username: profile.Username,
			Platform: w.platform,
		})
	}
	sort.Slice(stubs, func(i, j int) bool { return stubs[i].ID < stubs[j].ID })
	return stubs, nil
}

func (w *memoryWorker) FetchDetail(ctx context.Context, id string) (*platform.Candidate, error) {
	profile, ok := w.profiles[id]
	if !ok {
		return nil, fmt.Errorf("no profile %s", id)
	}
	hydrated := *profile
	return &hydrated, nil
}

func (w *memoryWorker) Validate(ctx context.Context, candidate *platform.Candidate) (bool, error) {
	return true, nil
}

// stack is a fully wired prospector with in-memory platform workers.
type stack struct {
	metrics      *prometheus.Registry
	manager      *scrapers.Manager
	orchestrator *orchestrator.Orchestrator
	scheduler    *scheduler.Scheduler
}

func buildStack() *stack {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	metrics := prometheus.NewRegistry()
	sink := telemetry.NewStandard(logger, metrics)
	limiter := ratelimit.New(ratelimit.DefaultConfig(), sink)

	manager := scrapers.NewManager(scrapers.Config{}, limiter, proxy.NewRoundRobin(nil), sink)
	manager.Register(platform.Instagram, newMemoryWorker(platform.Instagram, "fit_mia", "lift_leo", "run_rosa"))
	manager.Register(platform.LinkedIn, newMemoryWorker(platform.LinkedIn, "b2b_bea", "sales_sam"))

	registry, err := intelligence.NewRegistry(
		intelligence.NewKeywordAnalyzer(),
		map[platform.Platform]intelligence.Processor{
			platform.Instagram: intelligence.NewEngagementAnalyzer(),
		},
		platform.Instagram,
	)
	Expect(err).NotTo(HaveOccurred())

	runner := pipeline.NewStandardRunner(pipeline.DefaultScoreWeights(), sink)
	slots := scheduler.NewSlots(4)

	orch, err := orchestrator.New(orchestrator.Config{}, manager, registry, runner, slots, sink)
	Expect(err).NotTo(HaveOccurred())

	sched, err := scheduler.New(scheduler.Config{
		PollInterval: 5 * time.Millisecond,
		BaseDelays: map[scheduler.Priority]time.Duration{
			scheduler.PriorityLow:      0,
			scheduler.PriorityMedium:   0,
			scheduler.PriorityHigh:     0,
			scheduler.PriorityCritical: 0,
		},
	}, orch, slots, sink)
	Expect(err).NotTo(HaveOccurred())

	return &stack{
		metrics:      metrics,
		manager:      manager,
		orchestrator: orch,
		scheduler:    sched,
	}
}

func discoveryCriteria() platform.Criteria {
	return platform.Criteria{
		MinFollowers: 1000,
		Keywords:     []string{"fitness"},
	}
}

var _ = Describe("Discovery end to end", func() {
	var s *stack

	BeforeEach(func() {
		s = buildStack()
	})

	It("runs a full discovery session over in-memory platforms", func() {
		report, err := s.orchestrator.StartDiscovery(context.Background(), platform.SearchCriteria{
			platform.Instagram: discoveryCriteria(),
			platform.LinkedIn:  discoveryCriteria(),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(report.SessionID).NotTo(BeEmpty())
		Expect(report.TotalDiscovered).To(Equal(5))
		Expect(report.TotalQualified).To(Equal(5))
		Expect(report.Platforms).To(HaveLen(2))
		Expect(report.Platforms[platform.Instagram].AffiliateCount).To(Equal(3))
		Expect(report.Platforms[platform.LinkedIn].AffiliateCount).To(Equal(2))
		Expect(report.Recommendations).NotTo(BeEmpty())

		for i := 1; i < len(report.TopCandidates); i++ {
			Expect(report.TopCandidates[i].FinalScore).To(BeNumerically("<=", report.TopCandidates[i-1].FinalScore))
		}
		for _, candidate := range report.TopCandidates {
			Expect(candidate.Analysis).NotTo(BeNil())
			Expect(candidate.FinalScore).To(BeNumerically(">", 0))
		}

		Expect(s.manager.ScrapeCounts()).To(Equal(map[platform.Platform]int{
			platform.Instagram: 1,
			platform.LinkedIn:  1,
		}))
	})

	It("records session metrics in the prometheus registry", func() {
		_, err := s.orchestrator.StartDiscovery(context.Background(), platform.SearchCriteria{
			platform.Instagram: discoveryCriteria(),
		})
		Expect(err).NotTo(HaveOccurred())

		families, err := s.metrics.Gather()
		Expect(err).NotTo(HaveOccurred())

		sessions := -1.0
		for _, family := range families {
			if family.GetName() != "prospector_metric_value" {
				continue
			}
			for _, metric := range family.GetMetric() {
				for _, label := range metric.GetLabel() {
					if label.GetValue() == "discovery_sessions_total" {
						sessions = metric.GetGauge().GetValue()
					}
				}
			}
		}
		Expect(sessions).To(Equal(1.0))
	})

	It("processes a scheduled scrape through the driver loop", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s.scheduler.Start(ctx)
		defer s.scheduler.Stop()

		s.scheduler.Schedule(platform.LinkedIn, discoveryCriteria(), scheduler.PriorityCritical)

		Eventually(func() int {
			return s.scheduler.StatusSnapshot().Done
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(1))

		Expect(s.manager.ScrapeCounts()[platform.LinkedIn]).To(Equal(1))
	})
})
