package prospectorconfig

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/growthloop/prospector-go/pkg/intelligence"
	"github.com/growthloop/prospector-go/pkg/intelligence/llmanalyzer"
	"github.com/growthloop/prospector-go/pkg/orchestrator"
	"github.com/growthloop/prospector-go/pkg/pipeline"
	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/platform/provider"
	"github.com/growthloop/prospector-go/pkg/proxy"
	"github.com/growthloop/prospector-go/pkg/ratelimit"
	"github.com/growthloop/prospector-go/pkg/scheduler"
	"github.com/growthloop/prospector-go/pkg/scrapers"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// engagementPlatforms get the dedicated engagement analyzer. Discovery on
// these networks leans on posting cadence more than profile text.
var engagementPlatforms = []platform.Platform{
	platform.Instagram,
	platform.TikTok,
	platform.YouTube,
}

// App bundles the wired components of one prospector process.
type App struct {
	Settings     *Settings
	Sink         telemetry.Sink
	Limiter      *ratelimit.Limiter
	Manager      *scrapers.Manager
	Intelligence *intelligence.Registry
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *scheduler.Scheduler
	Recurring    *scheduler.Recurring
}

// Build wires the full application from settings: telemetry sink, limiter,
// proxy pool, provider client and one worker per enabled platform, scraper
// manager, intelligence registry, pipeline runner, shared slots, orchestrator
// and scheduler. Construction fails fast on any gap.
func Build(settings *Settings, logger *logrus.Logger, metrics prometheus.Registerer) (*App, error) {
	if settings == nil {
		return nil, fmt.Errorf("prospectorconfig: settings are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("prospectorconfig: logger is required")
	}

	sink := telemetry.NewStandard(logger, metrics)
	limiter := ratelimit.New(settings.RateLimits, sink)
	pool := proxy.NewRoundRobin(proxyIdentities(settings.ProxyURLs))

	providerConfig, err := provider.NewConfig(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure scraping provider: %w", err)
	}
	client := provider.NewClient(providerConfig)

	manager := scrapers.NewManager(scrapers.Config{}, limiter, pool, sink)
	for _, p := range settings.Platforms {
		manager.Register(p, provider.NewWorker(p, client))
	}

	registry, err := buildIntelligence(settings, logger)
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewStandardRunner(settings.Weights, sink)
	slots := scheduler.NewSlots(settings.MaxConcurrent)

	orch, err := orchestrator.New(settings.Orchestrator, manager, registry, runner, slots, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}

	sched, err := scheduler.New(settings.Scheduler, orch, slots, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduler: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"platforms":      settings.Platforms,
		"max_concurrent": settings.MaxConcurrent,
		"proxy_count":    len(settings.ProxyURLs),
		"llm_enabled":    os.Getenv("OPENAI_API_KEY") != "",
	}).Info("Prospector application wired")

	return &App{
		Settings:     settings,
		Sink:         sink,
		Limiter:      limiter,
		Manager:      manager,
		Intelligence: registry,
		Orchestrator: orch,
		Scheduler:    sched,
		Recurring:    scheduler.NewRecurring(sched, sink),
	}, nil
}

// buildIntelligence assembles the analyzer registry. The keyword analyzer
// handles every platform unless OPENAI_API_KEY promotes the LLM analyzer to
// the general slot; feed platforms always get the engagement analyzer.
func buildIntelligence(settings *Settings, logger *logrus.Logger) (*intelligence.Registry, error) {
	var general intelligence.Processor = intelligence.NewKeywordAnalyzer()
	if os.Getenv("OPENAI_API_KEY") != "" {
		analyzer, err := llmanalyzer.NewFromEnv(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build LLM analyzer: %w", err)
		}
		general = analyzer
	}

	assignments := make(map[platform.Platform]intelligence.Processor, len(engagementPlatforms))
	required := make([]platform.Platform, 0, len(engagementPlatforms))
	enabled := make(map[platform.Platform]bool, len(settings.Platforms))
	for _, p := range settings.Platforms {
		enabled[p] = true
	}
	for _, p := range engagementPlatforms {
		if enabled[p] {
			assignments[p] = intelligence.NewEngagementAnalyzer()
			required = append(required, p)
		}
	}

	registry, err := intelligence.NewRegistry(general, assignments, required...)
	if err != nil {
		return nil, fmt.Errorf("failed to build intelligence registry: %w", err)
	}
	return registry, nil
}

func proxyIdentities(urls []string) []proxy.Identity {
	ids := make([]proxy.Identity, 0, len(urls))
	for i, u := range urls {
		ids = append(ids, proxy.Identity{
			URL:   u,
			Label: fmt.Sprintf("proxy-%d", i+1),
		})
	}
	return ids
}
