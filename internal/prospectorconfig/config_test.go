package prospectorconfig_test

import (
	"io"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/growthloop/prospector-go/internal/prospectorconfig"
	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/ratelimit"
)

// configKeys are the variables Load reads. Each spec starts from a clean
// slate so ambient shell state cannot leak into assertions.
var configKeys = []string{
	"ENABLED_PLATFORMS",
	"RATE_LIMIT_DEFAULT_RPM",
	"RATE_LIMIT_INSTAGRAM_RPM",
	"RATE_LIMIT_TIKTOK_RPM",
	"SCHEDULER_MAX_CONCURRENT",
	"SCHEDULER_POLL_INTERVAL",
	"SCHEDULER_MAX_RETRIES",
	"PROCESS_WORKERS",
	"SCORE_WEIGHT_SENTIMENT",
	"SCORE_WEIGHT_ENGAGEMENT",
	"SCORE_WEIGHT_TOPIC",
	"SCORE_WEIGHT_AUDIENCE",
	"PROXY_URLS",
	"DISCOVERY_KEYWORDS",
	"DISCOVERY_MIN_FOLLOWERS",
	"DISCOVERY_MIN_ENGAGEMENT",
	"DISCOVERY_CRON",
	"DISCOVERY_RUN_ON_START",
	"METRICS_ADDR",
	"OPENAI_API_KEY",
}

func setenv(key, value string) {
	previous, existed := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if existed {
			os.Setenv(key, previous)
		} else {
			os.Unsetenv(key)
		}
	})
}

func clearenv(key string) {
	previous, existed := os.LookupEnv(key)
	os.Unsetenv(key)
	DeferCleanup(func() {
		if existed {
			os.Setenv(key, previous)
		}
	})
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var _ = Describe("Settings", func() {
	BeforeEach(func() {
		for _, key := range configKeys {
			clearenv(key)
		}
	})

	Describe("Load", func() {
		It("falls back to defaults when the environment is empty", func() {
			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).NotTo(HaveOccurred())

			Expect(settings.Platforms).To(Equal(prospectorconfig.DefaultPlatforms))
			Expect(settings.RateLimits.Defaults.RequestsPerMinute).To(Equal(ratelimit.DefaultRequestsPerMinute))
			Expect(settings.RateLimits.PerPlatform).To(BeEmpty())
			Expect(settings.MaxConcurrent).To(Equal(5))
			Expect(settings.Criteria.MinFollowers).To(Equal(prospectorconfig.DefaultMinFollowers))
			Expect(settings.DiscoverySpec).To(Equal(prospectorconfig.DefaultDiscoverySpec))
			Expect(settings.RunOnStart).To(BeFalse())
			Expect(settings.MetricsAddr).To(BeEmpty())
		})

		It("parses the enabled platform list case-insensitively", func() {
			setenv("ENABLED_PLATFORMS", "Instagram, TIKTOK")

			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.Platforms).To(Equal([]platform.Platform{
				platform.Instagram,
				platform.TikTok,
			}))
		})

		It("rejects platforms the system does not know", func() {
			setenv("ENABLED_PLATFORMS", "instagram,myspace")

			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).To(MatchError(ContainSubstring("myspace")))
			Expect(settings).To(BeNil())
		})

		It("collects per-platform rate limit overrides", func() {
			setenv("RATE_LIMIT_DEFAULT_RPM", "12")
			setenv("RATE_LIMIT_INSTAGRAM_RPM", "6")

			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.RateLimits.Defaults.RequestsPerMinute).To(Equal(12))
			Expect(settings.RateLimits.PerPlatform).To(HaveLen(1))
			Expect(settings.RateLimits.PerPlatform[platform.Instagram].RequestsPerMinute).To(Equal(6))
		})

		It("reads scoring weights and discovery criteria", func() {
			setenv("SCORE_WEIGHT_SENTIMENT", "0.5")
			setenv("SCORE_WEIGHT_ENGAGEMENT", "0.5")
			setenv("SCORE_WEIGHT_TOPIC", "0")
			setenv("SCORE_WEIGHT_AUDIENCE", "0")
			setenv("DISCOVERY_KEYWORDS", "fitness, yoga")
			setenv("DISCOVERY_MIN_FOLLOWERS", "5000")

			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.Weights.Sentiment).To(Equal(0.5))
			Expect(settings.Weights.Engagement).To(Equal(0.5))
			Expect(settings.Weights.Topic).To(BeZero())
			Expect(settings.Criteria.Keywords).To(Equal([]string{"fitness", "yoga"}))
			Expect(settings.Criteria.MinFollowers).To(Equal(5000))
		})

		It("keeps defaults when a numeric variable fails to parse", func() {
			setenv("SCHEDULER_MAX_CONCURRENT", "many")

			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.MaxConcurrent).To(Equal(5))
		})

		It("flags the boot-time discovery run", func() {
			setenv("DISCOVERY_RUN_ON_START", "true")
			setenv("METRICS_ADDR", ":9102")

			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.RunOnStart).To(BeTrue())
			Expect(settings.MetricsAddr).To(Equal(":9102"))
		})

		It("requires a logger", func() {
			settings, err := prospectorconfig.Load(nil)
			Expect(err).To(MatchError(ContainSubstring("logger")))
			Expect(settings).To(BeNil())
		})
	})

	Describe("SearchCriteria", func() {
		It("expands the criteria template across every enabled platform", func() {
			setenv("ENABLED_PLATFORMS", "instagram,linkedin")
			setenv("DISCOVERY_KEYWORDS", "fitness")

			settings, err := prospectorconfig.Load(quietLogger())
			Expect(err).NotTo(HaveOccurred())

			criteria := settings.SearchCriteria()
			Expect(criteria).To(HaveLen(2))
			Expect(criteria[platform.Instagram].Keywords).To(Equal([]string{"fitness"}))
			Expect(criteria.EligiblePlatforms()).To(Equal([]platform.Platform{
				platform.Instagram,
				platform.LinkedIn,
			}))
		})
	})

	Describe("Build", func() {
		It("wires every component from loaded settings", func() {
			setenv("ENABLED_PLATFORMS", "instagram,tiktok,linkedin")

			logger := quietLogger()
			settings, err := prospectorconfig.Load(logger)
			Expect(err).NotTo(HaveOccurred())

			app, err := prospectorconfig.Build(settings, logger, prometheus.NewRegistry())
			Expect(err).NotTo(HaveOccurred())
			Expect(app.Sink).NotTo(BeNil())
			Expect(app.Limiter).NotTo(BeNil())
			Expect(app.Manager.Registered()).To(ConsistOf(
				platform.Instagram,
				platform.TikTok,
				platform.LinkedIn,
			))
			Expect(app.Orchestrator).NotTo(BeNil())
			Expect(app.Scheduler).NotTo(BeNil())
			Expect(app.Recurring).NotTo(BeNil())
		})

		It("routes feed platforms to the engagement analyzer", func() {
			setenv("ENABLED_PLATFORMS", "instagram,linkedin")

			logger := quietLogger()
			settings, err := prospectorconfig.Load(logger)
			Expect(err).NotTo(HaveOccurred())

			app, err := prospectorconfig.Build(settings, logger, prometheus.NewRegistry())
			Expect(err).NotTo(HaveOccurred())
			Expect(app.Intelligence.ProcessorFor(platform.Instagram).Name()).To(Equal("engagement"))
			Expect(app.Intelligence.ProcessorFor(platform.LinkedIn).Name()).To(Equal("keyword"))
		})

		It("requires settings and a logger", func() {
			logger := quietLogger()
			settings, err := prospectorconfig.Load(logger)
			Expect(err).NotTo(HaveOccurred())

			_, err = prospectorconfig.Build(nil, logger, prometheus.NewRegistry())
			Expect(err).To(MatchError(ContainSubstring("settings")))

			_, err = prospectorconfig.Build(settings, nil, prometheus.NewRegistry())
			Expect(err).To(MatchError(ContainSubstring("logger")))
		})
	})
})
