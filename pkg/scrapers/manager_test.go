package scrapers_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/platform/provider"
	"github.com/growthloop/prospector-go/pkg/proxy"
	"github.com/growthloop/prospector-go/pkg/ratelimit"
	"github.com/growthloop/prospector-go/pkg/scrapers"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// fakeWorker lets each spec script worker behavior per call.
type fakeWorker struct {
	discover func(ctx context.Context, criteria platform.Criteria) ([]platform.CandidateStub, error)
	detail   func(ctx context.Context, id string) (*platform.Candidate, error)
	validate func(ctx context.Context, candidate *platform.Candidate) (bool, error)
}

func (w *fakeWorker) Discover(ctx context.Context, criteria platform.Criteria) ([]platform.CandidateStub, error) {
	if w.discover == nil {
		return nil, nil
	}
	return w.discover(ctx, criteria)
}

func (w *fakeWorker) FetchDetail(ctx context.Context, id string) (*platform.Candidate, error) {
	if w.detail == nil {
		return &platform.Candidate{ID: id}, nil
	}
	return w.detail(ctx, id)
}

func (w *fakeWorker) Validate(ctx context.Context, candidate *platform.Candidate) (bool, error) {
	if w.validate == nil {
		return true, nil
	}
	return w.validate(ctx, candidate)
}

func stubs(p platform.Platform, n int) []platform.CandidateStub {
	out := make([]platform.CandidateStub, n)
	for i := range out {
		out[i] = platform.CandidateStub{
			ID:       fmt.Sprintf("%s-%d", p, i),
			Username: fmt.Sprintf("user%d", i),
			Platform: p,
		}
	}
	return out
}

var _ = Describe("Manager", func() {
	var (
		manager *scrapers.Manager
		limiter *ratelimit.Limiter
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		limiter = ratelimit.New(ratelimit.Config{
			Defaults: ratelimit.Limits{RequestsPerMinute: 1000},
		}, telemetry.NopSink{})
		manager = scrapers.NewManager(scrapers.Config{MaxResults: 5}, limiter, nil, telemetry.NopSink{})
	})

	Describe("registration", func() {
		It("returns a typed error for unknown platforms", func() {
			_, err := manager.StartScraping(ctx, platform.TikTok, platform.Criteria{}, 10)

			var unregistered *scrapers.UnregisteredPlatformError
			Expect(errors.As(err, &unregistered)).To(BeTrue())
			Expect(unregistered.Platform).To(Equal(platform.TikTok))

			_, err = manager.FetchDetail(ctx, platform.TikTok, "x")
			Expect(errors.As(err, &unregistered)).To(BeTrue())
		})

		It("lets the last registration win", func() {
			manager.Register(platform.Twitter, &fakeWorker{
				discover: func(context.Context, platform.Criteria) ([]platform.CandidateStub, error) {
					return stubs(platform.Twitter, 1), nil
				},
			})
			manager.Register(platform.Twitter, &fakeWorker{
				discover: func(context.Context, platform.Criteria) ([]platform.CandidateStub, error) {
					return stubs(platform.Twitter, 2), nil
				},
			})

			found, err := manager.StartScraping(ctx, platform.Twitter, platform.Criteria{}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
			Expect(manager.Registered()).To(Equal([]platform.Platform{platform.Twitter}))
		})
	})

	Describe("result truncation", func() {
		BeforeEach(func() {
			manager.Register(platform.Instagram, &fakeWorker{
				discover: func(context.Context, platform.Criteria) ([]platform.CandidateStub, error) {
					return stubs(platform.Instagram, 12), nil
				},
			})
		})

		It("caps results at maxResults", func() {
			found, err := manager.StartScraping(ctx, platform.Instagram, platform.Criteria{}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(3))
			Expect(found[0].ID).To(Equal("instagram-0"))
		})

		It("falls back to the configured cap when maxResults is not positive", func() {
			found, err := manager.StartScraping(ctx, platform.Instagram, platform.Criteria{}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(5))
		})
	})

	Describe("throttling", func() {
		It("opens a backoff window when the worker reports throttling", func() {
			manager.Register(platform.YouTube, &fakeWorker{
				discover: func(context.Context, platform.Criteria) ([]platform.CandidateStub, error) {
					return nil, provider.NewRateLimitError(2*time.Minute, "")
				},
			})

			_, err := manager.StartScraping(ctx, platform.YouTube, platform.Criteria{}, 10)
			Expect(err).To(HaveOccurred())

			stats := limiter.StatsFor(platform.YouTube)
			Expect(stats.BackoffUntil).NotTo(BeZero())
			Expect(time.Until(stats.BackoffUntil)).To(BeNumerically(">", 90*time.Second))
		})
	})

	Describe("cancellation", func() {
		It("stops an in-flight run", func() {
			started := make(chan struct{})
			manager.Register(platform.LinkedIn, &fakeWorker{
				discover: func(ctx context.Context, _ platform.Criteria) ([]platform.CandidateStub, error) {
					close(started)
					<-ctx.Done()
					return nil, ctx.Err()
				},
			})

			errCh := make(chan error, 1)
			go func() {
				_, err := manager.StartScraping(ctx, platform.LinkedIn, platform.Criteria{}, 10)
				errCh <- err
			}()

			Eventually(started).Should(BeClosed())
			manager.StopScraping(platform.LinkedIn)

			var err error
			Eventually(errCh).Should(Receive(&err))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("is a no-op for idle platforms", func() {
			manager.StopScraping(platform.LinkedIn)
		})
	})

	Describe("proxy identities", func() {
		It("rotates identities across runs and exposes them to the worker", func() {
			pool := proxy.NewRoundRobin([]proxy.Identity{
				{URL: "http://proxy-a:3128", Label: "a"},
				{URL: "http://proxy-b:3128", Label: "b"},
			})
			manager = scrapers.NewManager(scrapers.Config{}, limiter, pool, telemetry.NopSink{})

			var (
				mu   sync.Mutex
				seen []string
			)
			manager.Register(platform.Twitter, &fakeWorker{
				discover: func(ctx context.Context, _ platform.Criteria) ([]platform.CandidateStub, error) {
					id, ok := proxy.FromContext(ctx)
					Expect(ok).To(BeTrue())
					mu.Lock()
					seen = append(seen, id.Label)
					mu.Unlock()
					return nil, nil
				},
			})

			for i := 0; i < 3; i++ {
				_, err := manager.StartScraping(ctx, platform.Twitter, platform.Criteria{}, 10)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(seen).To(Equal([]string{"b", "a", "b"}))
		})
	})
})
