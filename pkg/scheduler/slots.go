package scheduler

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Slots is the global concurrency ceiling shared by the scheduler's
// dispatch loop and the orchestrator's platform fan-out. Both paths draw
// from this single counter, so their combined active work never exceeds
// the ceiling.
type Slots struct {
	sem *semaphore.Weighted
	cap int
}

func NewSlots(max int) *Slots {
	if max <= 0 {
		max = DefaultMaxConcurrent
	}
	return &Slots{sem: semaphore.NewWeighted(int64(max)), cap: max}
}

// Acquire blocks until a slot frees or ctx is done.
func (s *Slots) Acquire(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}

// TryAcquire grabs a slot without blocking.
func (s *Slots) TryAcquire() bool {
	return s.sem.TryAcquire(1)
}

func (s *Slots) Release() {
	s.sem.Release(1)
}

// Cap is the configured ceiling.
func (s *Slots) Cap() int {
	return s.cap
}
