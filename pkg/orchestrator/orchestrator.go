package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/growthloop/prospector-go/pkg/intelligence"
	"github.com/growthloop/prospector-go/pkg/pipeline"
	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/scheduler"
	"github.com/growthloop/prospector-go/pkg/scrapers"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// Orchestrator drives a discovery session end to end: fan out one task per
// eligible platform, isolate failures, run candidates through analysis and
// the processing pipeline, assemble the ranked report. It also serves as the
// scheduler's executor so background scrapes flow through the same admission
// and processing path as interactive sessions.
type Orchestrator struct {
	cfg      Config
	manager  *scrapers.Manager
	registry *intelligence.Registry
	runner   *pipeline.Runner
	slots    *scheduler.Slots
	sink     telemetry.Sink
	sessions atomic.Int64
}

type platformResult struct {
	platform   platform.Platform
	candidates []*platform.Candidate
	err        error
}

// New wires an orchestrator. The slots instance is shared with the
// scheduler so both dispatch paths draw from one concurrency budget; nil
// falls back to a private ceiling at the scheduler default.
func New(cfg Config, manager *scrapers.Manager, registry *intelligence.Registry, runner *pipeline.Runner, slots *scheduler.Slots, sink telemetry.Sink) (*Orchestrator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if manager == nil {
		return nil, fmt.Errorf("orchestrator: scraper manager is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("orchestrator: intelligence registry is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("orchestrator: pipeline runner is required")
	}
	if slots == nil {
		slots = scheduler.NewSlots(scheduler.DefaultMaxConcurrent)
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Orchestrator{
		cfg:      cfg,
		manager:  manager,
		registry: registry,
		runner:   runner,
		slots:    slots,
		sink:     sink,
	}, nil
}

// Slots exposes the shared concurrency ceiling for composition.
func (o *Orchestrator) Slots() *scheduler.Slots {
	return o.slots
}

// StartDiscovery runs one synchronous discovery session over the eligible
// platforms and returns the ranked report. One platform's failure never
// aborts the session; a cancelled context does, without a report.
func (o *Orchestrator) StartDiscovery(ctx context.Context, criteria platform.SearchCriteria) (*DiscoveryReport, error) {
	sessionID := uuid.New().String()
	startedAt := time.Now().UTC()
	session := o.sessions.Add(1)

	o.logSkipped(criteria)
	eligible := criteria.EligiblePlatforms()
	o.sink.Info("discovery session started", telemetry.Fields{
		"session_id": sessionID,
		"session":    session,
		"platforms":  len(eligible),
	})

	results := make([]platformResult, len(eligible))
	var wg sync.WaitGroup
	for i, p := range eligible {
		wg.Add(1)
		go func(i int, p platform.Platform) {
			defer wg.Done()
			results[i] = o.runPlatformTask(ctx, p, criteria[p])
		}(i, p)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totalDiscovered := 0
	discovered := make([]*platform.Candidate, 0)
	for _, res := range results {
		if res.err != nil {
			o.sink.Error("platform task failed", telemetry.Fields{
				"session_id": sessionID,
				"platform":   res.platform,
				"error":      res.err.Error(),
			})
			continue
		}
		totalDiscovered += len(res.candidates)
		discovered = append(discovered, res.candidates...)
	}
	o.sink.Info("scrape phase complete", telemetry.Fields{
		"session_id": sessionID,
		"discovered": totalDiscovered,
	})

	qualified := o.processCandidates(ctx, sessionID, discovered)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := o.buildReport(sessionID, startedAt, eligible, qualified, totalDiscovered)

	o.sink.Metric("discovery_sessions_total", 1)
	o.sink.Metric("discovery_candidates_discovered", float64(totalDiscovered))
	o.sink.Metric("discovery_candidates_qualified", float64(len(qualified)))
	o.sink.Metric("discovery_session_seconds", report.FinishedAt.Sub(startedAt).Seconds())
	o.sink.Info("discovery session complete", telemetry.Fields{
		"session_id": sessionID,
		"discovered": totalDiscovered,
		"qualified":  len(qualified),
		"duration":   report.FinishedAt.Sub(startedAt).String(),
	})
	return report, nil
}

// ExecuteScrape implements the scheduler Executor: the single-platform
// scrape-and-process routine behind background-scheduled tasks. The
// scheduler holds the concurrency slot for the duration of the call, so no
// slot is acquired here.
func (o *Orchestrator) ExecuteScrape(ctx context.Context, task *scheduler.ScrapeTask) error {
	candidates, err := o.scrapePlatform(ctx, task.Platform, task.Criteria)
	if err != nil {
		return err
	}

	qualified := o.processCandidates(ctx, task.ID, candidates)
	if err := ctx.Err(); err != nil {
		return err
	}

	o.sink.Info("scheduled scrape processed", telemetry.Fields{
		"task_id":    task.ID,
		"platform":   task.Platform,
		"discovered": len(candidates),
		"qualified":  len(qualified),
	})
	o.sink.Metric("scheduled_scrape_qualified", float64(len(qualified)))
	return nil
}

// runPlatformTask acquires a shared slot and scrapes one platform. A panic
// inside the task is recovered into a PlatformTaskError so a broken worker
// cannot take the session down.
func (o *Orchestrator) runPlatformTask(ctx context.Context, p platform.Platform, criteria platform.Criteria) (result platformResult) {
	result.platform = p
	defer func() {
		if r := recover(); r != nil {
			result.candidates = nil
			result.err = &PlatformTaskError{Platform: p, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := o.slots.Acquire(ctx); err != nil {
		result.err = err
		return result
	}
	defer o.slots.Release()

	candidates, err := o.scrapePlatform(ctx, p, criteria)
	if err != nil {
		result.err = &PlatformTaskError{Platform: p, Err: err}
		return result
	}
	result.candidates = candidates
	return result
}

// scrapePlatform discovers stubs and hydrates them one by one, skipping
// candidates whose detail fetch or validation fails.
func (o *Orchestrator) scrapePlatform(ctx context.Context, p platform.Platform, criteria platform.Criteria) ([]*platform.Candidate, error) {
	maxResults := criteria.MaxResults
	if maxResults == 0 {
		maxResults = o.cfg.MaxResultsPerPlatform
	}

	stubs, err := o.manager.StartScraping(ctx, p, criteria, maxResults)
	if err != nil {
		return nil, err
	}

	candidates := make([]*platform.Candidate, 0, len(stubs))
	for i, stub := range stubs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && o.cfg.DetailPacing > 0 {
			if err := sleepCtx(ctx, o.cfg.DetailPacing); err != nil {
				return nil, err
			}
		}

		candidate, err := o.manager.FetchDetail(ctx, p, stub.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.sink.Error("candidate detail failed", telemetry.Fields{
				"platform":     p,
				"candidate_id": stub.ID,
				"error":        err.Error(),
			})
			continue
		}

		ok, err := o.manager.ValidateCandidate(ctx, p, candidate)
		if err != nil {
			o.sink.Error("candidate validation failed", telemetry.Fields{
				"platform":     p,
				"candidate_id": stub.ID,
				"error":        err.Error(),
			})
			continue
		}
		if !ok {
			o.sink.Debug("candidate rejected by worker validation", telemetry.Fields{
				"platform":     p,
				"candidate_id": stub.ID,
			})
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// processCandidates fans candidates over the bounded worker pool. Analysis
// or pipeline failure drops that candidate only.
func (o *Orchestrator) processCandidates(ctx context.Context, sessionID string, candidates []*platform.Candidate) []*platform.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	jobs := make(chan *platform.Candidate)
	qualified := make([]*platform.Candidate, 0, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < o.cfg.ProcessWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range jobs {
				if err := o.processCandidate(ctx, candidate); err != nil {
					o.sink.Error("candidate dropped", telemetry.Fields{
						"session_id":   sessionID,
						"candidate_id": candidate.ID,
						"platform":     candidate.Platform,
						"error":        err.Error(),
					})
					continue
				}
				mu.Lock()
				qualified = append(qualified, candidate)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- candidate:
		}
	}
	close(jobs)
	wg.Wait()

	return qualified
}

func (o *Orchestrator) processCandidate(ctx context.Context, candidate *platform.Candidate) error {
	if err := o.registry.Analyze(ctx, candidate); err != nil {
		return err
	}
	return o.runner.Run(ctx, candidate)
}

// buildReport assembles the per-platform breakdown, global ranking, and
// recommendations. Every eligible platform appears, failed ones with a zero
// count.
func (o *Orchestrator) buildReport(sessionID string, startedAt time.Time, eligible []platform.Platform, qualified []*platform.Candidate, totalDiscovered int) *DiscoveryReport {
	byPlatform := make(map[platform.Platform][]*platform.Candidate)
	for _, candidate := range qualified {
		byPlatform[candidate.Platform] = append(byPlatform[candidate.Platform], candidate)
	}

	platforms := make(map[platform.Platform]PlatformSummary, len(eligible))
	for _, p := range eligible {
		group := byPlatform[p]
		sortByScore(group)
		platforms[p] = PlatformSummary{
			AffiliateCount: len(group),
			TopCandidates:  topN(group, o.cfg.TopPerPlatform),
		}
	}

	ranked := make([]*platform.Candidate, len(qualified))
	copy(ranked, qualified)
	sortByScore(ranked)

	return &DiscoveryReport{
		SessionID:       sessionID,
		StartedAt:       startedAt,
		FinishedAt:      time.Now().UTC(),
		TotalDiscovered: totalDiscovered,
		TotalQualified:  len(qualified),
		Platforms:       platforms,
		TopCandidates:   topN(ranked, o.cfg.TopGlobal),
		Recommendations: o.recommendations(eligible, qualified),
	}
}

// recommendations derives the cross-platform outreach notes from simple
// aggregate rules over the qualified set.
func (o *Orchestrator) recommendations(eligible []platform.Platform, qualified []*platform.Candidate) []string {
	if len(qualified) == 0 {
		return []string{"No qualified prospects found; consider refining the search criteria."}
	}

	var recs []string
	for _, p := range eligible {
		high := 0
		for _, candidate := range qualified {
			if candidate.Platform == p && candidate.FinalScore >= o.cfg.HighScore {
				high++
			}
		}
		if high >= 3 {
			recs = append(recs, fmt.Sprintf("Focus outreach on %s: %d prospects scored %.2f or higher.", p, high, o.cfg.HighScore))
		}
	}

	var scoreSum, engagementSum float64
	for _, candidate := range qualified {
		scoreSum += candidate.FinalScore
		if candidate.Analysis != nil {
			engagementSum += candidate.Analysis.EngagementPotential
		}
	}
	meanScore := scoreSum / float64(len(qualified))
	meanEngagement := engagementSum / float64(len(qualified))

	switch {
	case meanScore > 0.8:
		recs = append(recs, "Average prospect quality is high; current search criteria are working well.")
	case meanScore < 0.5:
		recs = append(recs, "Average prospect quality is low; consider refining the search criteria.")
	}
	if meanEngagement > 0.7 {
		recs = append(recs, "Prospects show strong engagement; prioritize engagement-focused outreach.")
	}
	return recs
}

func (o *Orchestrator) logSkipped(criteria platform.SearchCriteria) {
	skipped := make([]platform.Platform, 0)
	for p, c := range criteria {
		if !c.NonTrivial() {
			skipped = append(skipped, p)
		}
	}
	sort.Slice(skipped, func(i, j int) bool { return skipped[i] < skipped[j] })
	for _, p := range skipped {
		o.sink.Debug("platform skipped: criteria are trivial", telemetry.Fields{"platform": p})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
