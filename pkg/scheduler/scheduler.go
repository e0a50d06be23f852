// Package scheduler queues per-platform scrape tasks by priority and
// activity pattern, dispatching them under a global concurrency ceiling
// with exponential retry backoff.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// ErrExhaustedRetries marks a task dropped after its final retry.
var ErrExhaustedRetries = errors.New("scheduler: task exhausted retries")

// Executor runs one dispatched scrape task. The orchestrator provides the
// production implementation.
type Executor interface {
	ExecuteScrape(ctx context.Context, task *ScrapeTask) error
}

// Status are the scheduler's counters. Pending reflects the queue at
// snapshot time; the rest accumulate over the scheduler's lifetime.
type Status struct {
	Pending     int `json:"pending"`
	Running     int `json:"running"`
	Done        int `json:"done"`
	Rescheduled int `json:"rescheduled"`
	Abandoned   int `json:"abandoned"`
	Scheduled   int `json:"scheduled"`
}

// Scheduler owns the priority queue and the periodic driver loop. The
// queue is guarded by mu; dispatched work draws from the shared Slots
// ceiling so scheduled and interactive scrapes never overcommit.
type Scheduler struct {
	cfg      Config
	executor Executor
	slots    *Slots
	sink     telemetry.Sink

	mu          sync.Mutex
	queue       taskQueue
	running     int
	done        int
	rescheduled int
	abandoned   int
	scheduled   int
	cancelLoop  context.CancelFunc

	wg     sync.WaitGroup // in-flight executors
	loopWG sync.WaitGroup // driver + status reporter

	now       func() time.Time
	onAbandon func(ScrapeTask)
}

// Option adjusts scheduler construction.
type Option func(*Scheduler)

// WithNow replaces the wall clock. Tests use it to pin scheduling math.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithAbandonHook registers a callback invoked once per abandoned task,
// after the task has left the queue.
func WithAbandonHook(hook func(ScrapeTask)) Option {
	return func(s *Scheduler) { s.onAbandon = hook }
}

func New(cfg Config, executor Executor, slots *Slots, sink telemetry.Sink, opts ...Option) (*Scheduler, error) {
	if executor == nil {
		return nil, fmt.Errorf("scheduler: executor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if slots == nil {
		slots = NewSlots(DefaultMaxConcurrent)
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}

	s := &Scheduler{
		cfg:      cfg.withDefaults(),
		executor: executor,
		slots:    slots,
		sink:     sink,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	heap.Init(&s.queue)
	return s, nil
}

// Slots exposes the shared concurrency ceiling so the orchestrator can draw
// from the same counter.
func (s *Scheduler) Slots() *Slots {
	return s.slots
}

// Schedule queues a scrape for the platform. The scheduled time is the
// priority's base delay stretched or shrunk by the platform's activity
// pattern at scheduling time.
func (s *Scheduler) Schedule(p platform.Platform, criteria platform.Criteria, priority Priority) *ScrapeTask {
	s.mu.Lock()
	now := s.now()
	adjustment := s.patternAdjustment(p, now)
	delay := time.Duration(float64(s.baseDelay(priority)) * adjustment)

	task := &ScrapeTask{
		ID:            uuid.New().String(),
		Platform:      p,
		Criteria:      criteria,
		Priority:      priority,
		State:         TaskPending,
		ScheduledTime: now.Add(delay),
		MaxRetries:    s.cfg.MaxRetries,
		CreatedAt:     now,
	}
	heap.Push(&s.queue, task)
	s.scheduled++
	s.mu.Unlock()

	s.sink.Info("scrape task scheduled", telemetry.Fields{
		"task_id":        task.ID,
		"platform":       p,
		"priority":       priority.String(),
		"delay":          delay.String(),
		"pattern_factor": adjustment,
	})
	s.sink.Metric("scheduler_tasks_scheduled", 1)
	return task
}

// Cancel removes the first pending task for the platform in queue order.
// Already-dispatched tasks are unaffected.
func (s *Scheduler) Cancel(p platform.Platform) bool {
	s.mu.Lock()
	var target *ScrapeTask
	for _, t := range s.queue {
		if t.Platform != p {
			continue
		}
		if target == nil || taskLess(t, target) {
			target = t
		}
	}
	if target != nil {
		heap.Remove(&s.queue, target.index)
	}
	s.mu.Unlock()

	if target == nil {
		return false
	}
	s.sink.Info("scrape task cancelled", telemetry.Fields{
		"task_id":  target.ID,
		"platform": p,
	})
	return true
}

// Start launches the driver loop and the status reporter. Calling Start on
// a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancelLoop != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancelLoop = cancel
	s.mu.Unlock()

	s.loopWG.Add(2)
	go s.run(loopCtx)
	go s.reportStatus(loopCtx)

	s.sink.Info("scheduler started", telemetry.Fields{
		"poll_interval":  s.cfg.PollInterval.String(),
		"max_concurrent": s.slots.Cap(),
	})
}

// Stop halts the loop and waits for in-flight executors to wind down.
// Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancelLoop
	s.cancelLoop = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.loopWG.Wait()
	s.wg.Wait()
	s.sink.Info("scheduler stopped", nil)
}

// StatusSnapshot copies the current counters.
func (s *Scheduler) StatusSnapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Pending:     s.queue.Len(),
		Running:     s.running,
		Done:        s.done,
		Rescheduled: s.rescheduled,
		Abandoned:   s.abandoned,
		Scheduled:   s.scheduled,
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick pops everything due and decides each task's fate. A panic anywhere
// in the iteration is contained here so the loop survives.
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.sink.Error("scheduler tick recovered from panic", telemetry.Fields{
				"panic": fmt.Sprint(r),
			})
		}
	}()

	s.mu.Lock()
	due := s.popDue(s.now())
	for _, task := range due {
		task.State = TaskDue
	}
	s.mu.Unlock()

	for _, task := range due {
		s.dispatch(ctx, task)
	}
}

// popDue removes every task whose time has come, returning them in queue
// order. Callers hold s.mu.
func (s *Scheduler) popDue(now time.Time) []*ScrapeTask {
	var due []*ScrapeTask
	for _, t := range s.queue {
		if !t.ScheduledTime.After(now) {
			due = append(due, t)
		}
	}
	for _, t := range due {
		heap.Remove(&s.queue, t.index)
	}
	sort.Slice(due, func(i, j int) bool { return taskLess(due[i], due[j]) })
	return due
}

func (s *Scheduler) dispatch(ctx context.Context, task *ScrapeTask) {
	if task.RetryCount >= task.MaxRetries {
		s.abandon(task)
		return
	}
	if !s.slots.TryAcquire() {
		s.requeue(task, "concurrency ceiling reached")
		return
	}

	s.mu.Lock()
	task.State = TaskRunning
	s.running++
	s.mu.Unlock()

	s.sink.Debug("scrape task dispatched", telemetry.Fields{
		"task_id":     task.ID,
		"platform":    task.Platform,
		"retry_count": task.RetryCount,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.slots.Release()
		defer func() {
			if r := recover(); r != nil {
				s.completeWithError(task, fmt.Errorf("scheduler: executor panic: %v", r))
			}
		}()

		if err := s.executor.ExecuteScrape(ctx, task); err != nil {
			s.completeWithError(task, err)
			return
		}
		s.complete(task)
	}()
}

func (s *Scheduler) complete(task *ScrapeTask) {
	s.mu.Lock()
	task.State = TaskDone
	s.running--
	s.done++
	s.mu.Unlock()

	s.sink.Info("scrape task complete", telemetry.Fields{
		"task_id":  task.ID,
		"platform": task.Platform,
	})
	s.sink.Metric("scheduler_tasks_completed", 1)
}

func (s *Scheduler) completeWithError(task *ScrapeTask, err error) {
	s.mu.Lock()
	s.running--
	task.LastError = err.Error()
	s.mu.Unlock()

	s.sink.Error("scrape task failed", telemetry.Fields{
		"task_id":     task.ID,
		"platform":    task.Platform,
		"retry_count": task.RetryCount,
		"error":       err.Error(),
	})
	s.requeue(task, "executor failure")
}

// requeue pushes the task back with an exponential delay of
// 2^retry_count backoff units, then increments the retry counter.
func (s *Scheduler) requeue(task *ScrapeTask, reason string) {
	s.mu.Lock()
	delay := s.backoffDelay(task.RetryCount)
	task.ScheduledTime = s.now().Add(delay)
	task.RetryCount++
	task.State = TaskRescheduled
	heap.Push(&s.queue, task)
	s.rescheduled++
	s.mu.Unlock()

	s.sink.Info("scrape task rescheduled", telemetry.Fields{
		"task_id":     task.ID,
		"platform":    task.Platform,
		"reason":      reason,
		"delay":       delay.String(),
		"retry_count": task.RetryCount,
	})
	s.sink.Metric("scheduler_tasks_rescheduled", 1)
}

// abandon drops a task that exhausted its retries. Each task passes through
// here at most once: it left the queue before this call and is never pushed
// back.
func (s *Scheduler) abandon(task *ScrapeTask) {
	s.mu.Lock()
	task.State = TaskAbandoned
	if task.LastError == "" {
		task.LastError = ErrExhaustedRetries.Error()
	}
	s.abandoned++
	reported := *task
	s.mu.Unlock()

	s.sink.Error("scrape task abandoned", telemetry.Fields{
		"task_id":     task.ID,
		"platform":    task.Platform,
		"retry_count": task.RetryCount,
		"last_error":  task.LastError,
	})
	s.sink.Metric("scheduler_tasks_abandoned", 1)

	if s.onAbandon != nil {
		s.onAbandon(reported)
	}
}

func (s *Scheduler) backoffDelay(retryCount int) time.Duration {
	if retryCount > 30 {
		return s.cfg.MaxBackoff
	}
	delay := s.cfg.BackoffUnit * (1 << uint(retryCount))
	if delay > s.cfg.MaxBackoff {
		delay = s.cfg.MaxBackoff
	}
	return delay
}

func (s *Scheduler) baseDelay(priority Priority) time.Duration {
	if d, ok := s.cfg.BaseDelays[priority]; ok {
		return d
	}
	return DefaultBaseDelays()[priority]
}

// patternAdjustment is the platform's delay multiplier at t, 1.0 when no
// pattern data exists. Callers hold s.mu.
func (s *Scheduler) patternAdjustment(p platform.Platform, t time.Time) float64 {
	pattern, ok := s.cfg.Patterns[p]
	if !ok {
		return 1.0
	}
	return pattern.AdjustmentAt(t)
}

func (s *Scheduler) reportStatus(ctx context.Context) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := s.StatusSnapshot()
			s.sink.Info("scheduler status", telemetry.Fields{
				"pending":     status.Pending,
				"running":     status.Running,
				"done":        status.Done,
				"rescheduled": status.Rescheduled,
				"abandoned":   status.Abandoned,
			})
			s.sink.Metric("scheduler_queue_depth", float64(status.Pending))
		}
	}
}
