// Package scrapers coordinates per-platform scrape runs behind proxy
// acquisition and rate-limit admission.
package scrapers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/proxy"
	"github.com/growthloop/prospector-go/pkg/ratelimit"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// Manager owns the platform worker registry. Every provider-bound call is
// admitted by the rate limiter first; discovery runs additionally rotate to
// a fresh proxy identity.
type Manager struct {
	mu       sync.RWMutex
	workers  map[platform.Platform]Worker
	inflight map[platform.Platform]map[uint64]context.CancelFunc
	counts   map[platform.Platform]int
	nextRun  uint64

	limiter *ratelimit.Limiter
	proxies proxy.Pool
	cfg     Config
	sink    telemetry.Sink
}

func NewManager(cfg Config, limiter *ratelimit.Limiter, proxies proxy.Pool, sink telemetry.Sink) *Manager {
	if proxies == nil {
		proxies = proxy.NewRoundRobin(nil)
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Manager{
		workers:  make(map[platform.Platform]Worker),
		inflight: make(map[platform.Platform]map[uint64]context.CancelFunc),
		counts:   make(map[platform.Platform]int),
		limiter:  limiter,
		proxies:  proxies,
		cfg:      cfg.withDefaults(),
		sink:     sink,
	}
}

// Register installs the worker for a platform. Registration is idempotent
// and the last registration wins; in-flight runs keep the worker they
// started with.
func (m *Manager) Register(p platform.Platform, worker Worker) {
	m.mu.Lock()
	_, replaced := m.workers[p]
	m.workers[p] = worker
	m.mu.Unlock()

	m.sink.Info("platform worker registered", telemetry.Fields{
		"platform": p,
		"replaced": replaced,
	})
}

// Registered lists the platforms with a worker, sorted.
func (m *Manager) Registered() []platform.Platform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]platform.Platform, 0, len(m.workers))
	for p := range m.workers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StartScraping runs one discovery pass for the platform: rotate to a fresh
// proxy identity, wait for rate-limit admission, discover, and truncate the
// results to maxResults (the configured default when maxResults is not
// positive).
func (m *Manager) StartScraping(ctx context.Context, p platform.Platform, criteria platform.Criteria, maxResults int) ([]platform.CandidateStub, error) {
	worker, err := m.worker(p)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = m.cfg.MaxResults
	}

	identity, err := m.proxies.Rotate(ctx)
	if err != nil {
		return nil, fmt.Errorf("scrapers: acquiring proxy identity: %w", err)
	}

	runCtx, cancel := context.WithCancel(proxy.NewContext(ctx, identity))
	defer cancel()
	runID := m.trackRun(p, cancel)
	defer m.finishRun(p, runID)

	if err := m.limiter.Wait(runCtx, p); err != nil {
		return nil, err
	}

	m.sink.Debug("scrape admitted", telemetry.Fields{
		"platform": p,
		"proxy":    identity.Label,
	})

	stubs, err := worker.Discover(runCtx, criteria)
	if err != nil {
		m.noteWorkerError(p, "discover", err)
		return nil, fmt.Errorf("scrapers: discovery on %s: %w", p, err)
	}

	if len(stubs) > maxResults {
		stubs = stubs[:maxResults]
	}

	m.mu.Lock()
	m.counts[p] += len(stubs)
	m.mu.Unlock()

	m.sink.Info("scrape complete", telemetry.Fields{
		"platform": p,
		"found":    len(stubs),
	})
	m.sink.Metric("scrape_results_found", float64(len(stubs)))

	return stubs, nil
}

// FetchDetail hydrates one candidate behind the same admission gate as
// discovery. The current proxy identity is attached when the caller has not
// already pinned one.
func (m *Manager) FetchDetail(ctx context.Context, p platform.Platform, id string) (*platform.Candidate, error) {
	worker, err := m.worker(p)
	if err != nil {
		return nil, err
	}

	if _, ok := proxy.FromContext(ctx); !ok {
		if identity, err := m.proxies.Current(ctx); err == nil {
			ctx = proxy.NewContext(ctx, identity)
		}
	}

	if err := m.limiter.Wait(ctx, p); err != nil {
		return nil, err
	}

	candidate, err := worker.FetchDetail(ctx, id)
	if err != nil {
		m.noteWorkerError(p, "fetch_detail", err)
		return nil, fmt.Errorf("scrapers: detail fetch on %s: %w", p, err)
	}
	return candidate, nil
}

// ValidateCandidate delegates the usability check to the platform worker.
func (m *Manager) ValidateCandidate(ctx context.Context, p platform.Platform, candidate *platform.Candidate) (bool, error) {
	worker, err := m.worker(p)
	if err != nil {
		return false, err
	}
	return worker.Validate(ctx, candidate)
}

// StopScraping cancels every in-flight run for the platform. Calling it for
// an idle platform is a no-op.
func (m *Manager) StopScraping(p platform.Platform) {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.inflight[p]))
	for _, cancel := range m.inflight[p] {
		cancels = append(cancels, cancel)
	}
	m.mu.Unlock()

	if len(cancels) == 0 {
		return
	}
	for _, cancel := range cancels {
		cancel()
	}
	m.sink.Info("scrape runs cancelled", telemetry.Fields{
		"platform": p,
		"runs":     len(cancels),
	})
}

// ScrapeCounts reports the total stubs found per platform so far.
func (m *Manager) ScrapeCounts() map[platform.Platform]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[platform.Platform]int, len(m.counts))
	for p, n := range m.counts {
		out[p] = n
	}
	return out
}

func (m *Manager) worker(p platform.Platform) (Worker, error) {
	m.mu.RLock()
	worker, ok := m.workers[p]
	m.mu.RUnlock()
	if !ok {
		return nil, &UnregisteredPlatformError{Platform: p}
	}
	return worker, nil
}

func (m *Manager) trackRun(p platform.Platform, cancel context.CancelFunc) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRun++
	id := m.nextRun
	if m.inflight[p] == nil {
		m.inflight[p] = make(map[uint64]context.CancelFunc)
	}
	m.inflight[p][id] = cancel
	return id
}

func (m *Manager) finishRun(p platform.Platform, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight[p], id)
	if len(m.inflight[p]) == 0 {
		delete(m.inflight, p)
	}
}

// noteWorkerError logs the failure before it propagates and opens a backoff
// window when the platform throttled us.
func (m *Manager) noteWorkerError(p platform.Platform, op string, err error) {
	m.sink.Error("worker call failed", telemetry.Fields{
		"platform":  p,
		"operation": op,
		"error":     err.Error(),
	})

	var throttled ThrottledError
	if !errors.As(err, &throttled) {
		return
	}
	cooldown := throttled.ThrottledFor()
	if cooldown <= 0 {
		cooldown = m.cfg.BackoffCooldown
	}
	m.limiter.TriggerBackoff(p, cooldown)
}
