package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// Limiter enforces per-platform sliding-window budgets and explicit backoff
// windows. All state is process local; platforms never contend with each
// other.
type Limiter struct {
	mu       sync.Mutex
	states   map[platform.Platform]*platformState
	defaults Limits
	sink     telemetry.Sink

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type platformState struct {
	mu      sync.Mutex
	limits  Limits
	window  []time.Time
	backoff time.Time

	// turnstile serializes same-platform waiters so admissions resolve in
	// request order.
	turnstile *semaphore.Weighted
}

// Option adjusts limiter construction.
type Option func(*Limiter)

// WithNow replaces the wall clock. Tests use it to drive time directly.
func WithNow(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleep replaces the suspension primitive used while waiting for
// admission.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

func New(cfg Config, sink telemetry.Sink, opts ...Option) *Limiter {
	defaults := cfg.Defaults
	if defaults.RequestsPerMinute <= 0 {
		defaults.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}

	l := &Limiter{
		states:   make(map[platform.Platform]*platformState),
		defaults: defaults,
		sink:     sink,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	for p, limits := range cfg.PerPlatform {
		l.states[p] = newPlatformState(defaults.merge(limits))
	}
	return l
}

func newPlatformState(limits Limits) *platformState {
	return &platformState{
		limits:    limits,
		turnstile: semaphore.NewWeighted(1),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// state returns the platform's limiter state, creating it with default
// limits on first touch.
func (l *Limiter) state(p platform.Platform) *platformState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.states[p]
	if !ok {
		s = newPlatformState(l.defaults)
		l.states[p] = s
	}
	return s
}

// Wait blocks until a request may legally be issued for the platform,
// honoring any active backoff window and the sliding minute window. Waiters
// for the same platform are admitted in arrival order. The wait aborts with
// ctx.Err() when ctx is done, leaving the window untouched.
func (l *Limiter) Wait(ctx context.Context, p platform.Platform) error {
	s := l.state(p)

	if err := s.turnstile.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.turnstile.Release(1)

	for {
		s.mu.Lock()
		now := l.now()

		if wait := s.backoffRemaining(now); wait > 0 {
			s.mu.Unlock()
			l.sink.Debug("admission held by backoff window", telemetry.Fields{
				"platform": p,
				"wait":     wait.String(),
			})
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
			// Conditions may have changed while suspended; check again.
			continue
		}

		s.purge(now)
		if len(s.window) < s.limits.RequestsPerMinute {
			s.window = append(s.window, now)
			s.mu.Unlock()
			return nil
		}

		wait := s.window[0].Add(windowSize).Sub(now)
		s.mu.Unlock()
		if wait <= 0 {
			continue
		}
		l.sink.Debug("admission held by window budget", telemetry.Fields{
			"platform": p,
			"wait":     wait.String(),
		})
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// TriggerBackoff suspends admissions for the platform until d has elapsed.
// Callers invoke it when the platform signals throttling; the limiter never
// triggers a backoff on its own. Non-positive durations and windows shorter
// than an already active one are ignored.
func (l *Limiter) TriggerBackoff(p platform.Platform, d time.Duration) {
	if d <= 0 {
		return
	}
	s := l.state(p)

	s.mu.Lock()
	until := l.now().Add(d)
	applied := until.After(s.backoff)
	if applied {
		s.backoff = until
	}
	s.mu.Unlock()

	if !applied {
		return
	}
	l.sink.Info("rate limit backoff triggered", telemetry.Fields{
		"platform": p,
		"duration": d.String(),
		"until":    until.Format(time.RFC3339),
	})
	l.sink.Metric("rate_limit_backoff_seconds", d.Seconds())
}

// UpdateLimits overlays the non-zero fields of limits onto the platform's
// budget. The next admission check sees the new numbers; an already admitted
// request is never revoked.
func (l *Limiter) UpdateLimits(p platform.Platform, limits Limits) {
	s := l.state(p)

	s.mu.Lock()
	s.limits = s.limits.merge(limits)
	updated := s.limits
	s.mu.Unlock()

	l.sink.Info("rate limits updated", telemetry.Fields{
		"platform":            p,
		"requests_per_minute": updated.RequestsPerMinute,
		"max_per_hour":        updated.MaxPerHour,
		"max_per_day":         updated.MaxPerDay,
	})
}

// StatsFor snapshots the platform's current limiter state.
func (l *Limiter) StatsFor(p platform.Platform) Stats {
	s := l.state(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := l.now()
	s.purge(now)
	backoff := s.backoff
	if !backoff.IsZero() && !now.Before(backoff) {
		backoff = time.Time{}
	}
	return Stats{
		Limits:       s.limits,
		WindowCount:  len(s.window),
		BackoffUntil: backoff,
	}
}

// Snapshot reports stats for every platform touched so far.
func (l *Limiter) Snapshot() map[platform.Platform]Stats {
	l.mu.Lock()
	platforms := make([]platform.Platform, 0, len(l.states))
	for p := range l.states {
		platforms = append(platforms, p)
	}
	l.mu.Unlock()

	out := make(map[platform.Platform]Stats, len(platforms))
	for _, p := range platforms {
		out[p] = l.StatsFor(p)
	}
	return out
}

// backoffRemaining reports how long the active backoff window has left,
// clearing it once expired. Callers hold s.mu.
func (s *platformState) backoffRemaining(now time.Time) time.Duration {
	if s.backoff.IsZero() {
		return 0
	}
	if !now.Before(s.backoff) {
		s.backoff = time.Time{}
		return 0
	}
	return s.backoff.Sub(now)
}

// purge drops window entries older than the sliding window span. Callers
// hold s.mu.
func (s *platformState) purge(now time.Time) {
	cutoff := now.Add(-windowSize)
	i := 0
	for i < len(s.window) && !s.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.window = append(s.window[:0], s.window[i:]...)
	}
}
