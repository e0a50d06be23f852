package prospectorconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/growthloop/prospector-go/pkg/orchestrator"
	"github.com/growthloop/prospector-go/pkg/pipeline"
	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/ratelimit"
	"github.com/growthloop/prospector-go/pkg/scheduler"
)

// Default configuration values
const (
	// DefaultDiscoverySpec is the cron descriptor for recurring discovery
	DefaultDiscoverySpec = "@every 6h"
	// DefaultMinFollowers keeps default criteria non-trivial so platforms
	// are eligible out of the box
	DefaultMinFollowers = 1000
	// DefaultMinEngagement is the default engagement-rate floor
	DefaultMinEngagement = 0.01
)

// DefaultPlatforms are targeted when ENABLED_PLATFORMS is unset.
var DefaultPlatforms = []platform.Platform{
	platform.Instagram,
	platform.TikTok,
	platform.YouTube,
	platform.Twitter,
	platform.LinkedIn,
}

// Settings holds the application configuration assembled from the
// environment.
// Environment variables:
//   - ENABLED_PLATFORMS: comma-separated platform names (default: all five)
//   - RATE_LIMIT_DEFAULT_RPM: fallback per-platform budget (default: 30)
//   - RATE_LIMIT_<PLATFORM>_RPM: per-platform budget override
//   - SCHEDULER_MAX_CONCURRENT: shared active-task ceiling (default: 5)
//   - SCHEDULER_POLL_INTERVAL: driver loop wake interval (default: 5s)
//   - SCHEDULER_MAX_RETRIES: dispatch attempts per task (default: 3)
//   - PROCESS_WORKERS: candidate processing workers (default: 5)
//   - SCORE_WEIGHT_SENTIMENT/ENGAGEMENT/TOPIC/AUDIENCE: scoring weights
//   - PROXY_URLS: comma-separated proxy URLs (default: direct connection)
//   - DISCOVERY_KEYWORDS: comma-separated default search keywords
//   - DISCOVERY_MIN_FOLLOWERS: default follower floor (default: 1000)
//   - DISCOVERY_MIN_ENGAGEMENT: default engagement floor (default: 0.01)
//   - DISCOVERY_CRON: recurring discovery spec (default: @every 6h)
//   - DISCOVERY_RUN_ON_START: run one session at boot when "true"
//   - METRICS_ADDR: prometheus listen address (metrics disabled when unset)
type Settings struct {
	// Platforms are the networks workers get registered for
	Platforms []platform.Platform
	// RateLimits seeds the per-platform admission budgets
	RateLimits ratelimit.Config
	// Scheduler holds the task loop settings including activity patterns
	Scheduler scheduler.Config
	// MaxConcurrent is the shared ceiling across scheduler and orchestrator
	MaxConcurrent int
	// Orchestrator holds the discovery session knobs
	Orchestrator orchestrator.Config
	// Weights drive the pipeline scoring stage
	Weights pipeline.ScoreWeights
	// ProxyURLs seed the outbound identity pool
	ProxyURLs []string
	// Criteria is the default search template applied to each platform
	Criteria platform.Criteria
	// DiscoverySpec is the cron descriptor for recurring scrapes
	DiscoverySpec string
	// RunOnStart triggers one discovery session at boot
	RunOnStart bool
	// MetricsAddr exposes prometheus metrics when non-empty
	MetricsAddr string
	// Logger is the configured logrus logger instance
	Logger *logrus.Logger
}

// Load builds Settings from environment variables, falling back to defaults
// for anything unset.
func Load(logger *logrus.Logger) (*Settings, error) {
	platforms, err := parsePlatforms(os.Getenv("ENABLED_PLATFORMS"))
	if err != nil {
		return nil, err
	}

	settings := &Settings{
		Platforms: platforms,
		RateLimits: ratelimit.Config{
			Defaults: ratelimit.Limits{
				RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_DEFAULT_RPM", ratelimit.DefaultRequestsPerMinute),
			},
			PerPlatform: platformLimits(platforms),
		},
		Scheduler: scheduler.Config{
			PollInterval: getEnvDurationOrDefault("SCHEDULER_POLL_INTERVAL", scheduler.DefaultPollInterval),
			MaxRetries:   getEnvIntOrDefault("SCHEDULER_MAX_RETRIES", scheduler.DefaultMaxRetries),
			Patterns:     defaultActivityPatterns(),
		},
		MaxConcurrent: getEnvIntOrDefault("SCHEDULER_MAX_CONCURRENT", scheduler.DefaultMaxConcurrent),
		Orchestrator: orchestrator.Config{
			ProcessWorkers: getEnvIntOrDefault("PROCESS_WORKERS", orchestrator.DefaultProcessWorkers),
		},
		Weights: pipeline.ScoreWeights{
			Sentiment:  getEnvFloatOrDefault("SCORE_WEIGHT_SENTIMENT", pipeline.DefaultSentimentWeight),
			Engagement: getEnvFloatOrDefault("SCORE_WEIGHT_ENGAGEMENT", pipeline.DefaultEngagementWeight),
			Topic:      getEnvFloatOrDefault("SCORE_WEIGHT_TOPIC", pipeline.DefaultTopicWeight),
			Audience:   getEnvFloatOrDefault("SCORE_WEIGHT_AUDIENCE", pipeline.DefaultAudienceWeight),
		},
		ProxyURLs: splitCSV(os.Getenv("PROXY_URLS")),
		Criteria: platform.Criteria{
			MinFollowers:  getEnvIntOrDefault("DISCOVERY_MIN_FOLLOWERS", DefaultMinFollowers),
			MinEngagement: getEnvFloatOrDefault("DISCOVERY_MIN_ENGAGEMENT", DefaultMinEngagement),
			Keywords:      splitCSV(os.Getenv("DISCOVERY_KEYWORDS")),
		},
		DiscoverySpec: getEnvOrDefault("DISCOVERY_CRON", DefaultDiscoverySpec),
		RunOnStart:    os.Getenv("DISCOVERY_RUN_ON_START") == "true",
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		Logger:        logger,
	}

	logrus.WithFields(logrus.Fields{
		"platforms":      settings.Platforms,
		"default_rpm":    settings.RateLimits.Defaults.RequestsPerMinute,
		"max_concurrent": settings.MaxConcurrent,
		"proxy_count":    len(settings.ProxyURLs),
		"discovery_cron": settings.DiscoverySpec,
		"run_on_start":   settings.RunOnStart,
		"metrics_set":    settings.MetricsAddr != "",
	}).Debug("Loaded prospector settings")

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks if the configuration is valid according to the following
// rules:
//   - Logger must be initialized
//   - At least one platform must be enabled
//   - MaxConcurrent must be positive
//   - Criteria floors must not be negative
//   - DiscoverySpec must not be empty
func (s *Settings) Validate() error {
	if s.Logger == nil {
		return fmt.Errorf("prospectorconfig: logger is required")
	}
	if len(s.Platforms) == 0 {
		return fmt.Errorf("prospectorconfig: at least one platform must be enabled")
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("prospectorconfig: max concurrent must be positive, got %d", s.MaxConcurrent)
	}
	if s.Criteria.MinFollowers < 0 {
		return fmt.Errorf("prospectorconfig: min followers must not be negative, got %d", s.Criteria.MinFollowers)
	}
	if s.Criteria.MinEngagement < 0 {
		return fmt.Errorf("prospectorconfig: min engagement must not be negative, got %v", s.Criteria.MinEngagement)
	}
	if s.DiscoverySpec == "" {
		return fmt.Errorf("prospectorconfig: discovery cron spec is required")
	}
	return nil
}

// SearchCriteria expands the default criteria template across every enabled
// platform.
func (s *Settings) SearchCriteria() platform.SearchCriteria {
	criteria := make(platform.SearchCriteria, len(s.Platforms))
	for _, p := range s.Platforms {
		criteria[p] = s.Criteria
	}
	return criteria
}

// parsePlatforms resolves a comma-separated platform list, rejecting names
// the system does not know.
func parsePlatforms(raw string) ([]platform.Platform, error) {
	names := splitCSV(raw)
	if len(names) == 0 {
		return append([]platform.Platform(nil), DefaultPlatforms...), nil
	}
	known := make(map[platform.Platform]bool, len(DefaultPlatforms))
	for _, p := range DefaultPlatforms {
		known[p] = true
	}
	platforms := make([]platform.Platform, 0, len(names))
	for _, name := range names {
		p := platform.Platform(strings.ToLower(name))
		if !known[p] {
			return nil, fmt.Errorf("prospectorconfig: unknown platform %q in ENABLED_PLATFORMS", name)
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}

// platformLimits collects RATE_LIMIT_<PLATFORM>_RPM overrides.
func platformLimits(platforms []platform.Platform) map[platform.Platform]ratelimit.Limits {
	overrides := make(map[platform.Platform]ratelimit.Limits)
	for _, p := range platforms {
		key := fmt.Sprintf("RATE_LIMIT_%s_RPM", strings.ToUpper(p.String()))
		if rpm := getEnvIntOrDefault(key, 0); rpm > 0 {
			overrides[p] = ratelimit.Limits{RequestsPerMinute: rpm}
		}
	}
	return overrides
}

// defaultActivityPatterns captures when each network's audience is awake.
// Feed platforms peak in the evening; linkedin follows business hours.
func defaultActivityPatterns() map[platform.Platform]scheduler.ActivityPattern {
	evenings := scheduler.ActivityPattern{PeakHours: []int{18, 19, 20, 21}}
	return map[platform.Platform]scheduler.ActivityPattern{
		platform.Instagram: evenings,
		platform.TikTok:    evenings,
		platform.YouTube:   {PeakHours: []int{17, 18, 19, 20, 21, 22}},
		platform.Twitter:   evenings,
		platform.LinkedIn: {
			PeakHours: []int{9, 10, 11, 12, 13, 14, 15, 16, 17},
			PeakDays: []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
			},
		},
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// getEnvOrDefault retrieves an environment variable value by key,
// returning the defaultValue if the environment variable is not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault retrieves an integer environment variable value by key,
// returning the defaultValue if the variable is not set or not an integer.
func getEnvIntOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"value":   raw,
			"default": defaultValue,
		}).Debug("Failed to parse integer env value, using default")
		return defaultValue
	}
	return parsed
}

// getEnvFloatOrDefault retrieves a float environment variable value by key,
// returning the defaultValue if the variable is not set or not a float.
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"value":   raw,
			"default": defaultValue,
		}).Debug("Failed to parse float env value, using default")
		return defaultValue
	}
	return parsed
}

// getEnvDurationOrDefault retrieves a duration environment variable value by
// key, returning the defaultValue if the variable is not set or not a
// duration.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"value":   raw,
			"default": defaultValue,
		}).Debug("Failed to parse duration env value, using default")
		return defaultValue
	}
	return parsed
}
