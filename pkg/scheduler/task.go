package scheduler

import (
	"time"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Priority orders scrape tasks. Higher priorities pop first and schedule
// with shorter base delays.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// DefaultBaseDelays is the lead time each priority schedules ahead.
func DefaultBaseDelays() map[Priority]time.Duration {
	return map[Priority]time.Duration{
		PriorityCritical: time.Minute,
		PriorityHigh:     5 * time.Minute,
		PriorityMedium:   30 * time.Minute,
		PriorityLow:      time.Hour,
	}
}

// TaskState tracks a scrape task through its lifecycle:
// PENDING → DUE → RUNNING → {DONE, RESCHEDULED, ABANDONED}.
// Rescheduled tasks re-enter the queue and become DUE again later.
type TaskState string

const (
	TaskPending     TaskState = "pending"
	TaskDue         TaskState = "due"
	TaskRunning     TaskState = "running"
	TaskDone        TaskState = "done"
	TaskRescheduled TaskState = "rescheduled"
	TaskAbandoned   TaskState = "abandoned"
)

// ScrapeTask is one unit of scheduled per-platform scrape work.
type ScrapeTask struct {
	ID            string            `json:"id"`
	Platform      platform.Platform `json:"platform"`
	Criteria      platform.Criteria `json:"criteria"`
	Priority      Priority          `json:"priority"`
	State         TaskState         `json:"state"`
	ScheduledTime time.Time         `json:"scheduled_time"`
	RetryCount    int               `json:"retry_count"`
	MaxRetries    int               `json:"max_retries"`
	CreatedAt     time.Time         `json:"created_at"`
	LastError     string            `json:"last_error,omitempty"`

	index int // heap bookkeeping
}

// ActivityPattern describes when a platform's audience is most active.
// Scheduling delays stretch by PeakFactor during peaks and shrink by
// OffPeakFactor otherwise. A pattern with no peak hours and no peak days
// behaves as no pattern at all.
type ActivityPattern struct {
	PeakHours     []int          `json:"peak_hours,omitempty"`
	PeakDays      []time.Weekday `json:"peak_days,omitempty"`
	PeakFactor    float64        `json:"peak_factor,omitempty"`
	OffPeakFactor float64        `json:"off_peak_factor,omitempty"`
}

// Default pattern factors
const (
	DefaultPeakFactor    = 1.5
	DefaultOffPeakFactor = 0.75
)

// AdjustmentAt returns the delay multiplier in effect at t.
func (a ActivityPattern) AdjustmentAt(t time.Time) float64 {
	if len(a.PeakHours) == 0 && len(a.PeakDays) == 0 {
		return 1.0
	}
	peak := a.PeakFactor
	if peak <= 0 {
		peak = DefaultPeakFactor
	}
	off := a.OffPeakFactor
	if off <= 0 {
		off = DefaultOffPeakFactor
	}
	if a.inPeak(t) {
		return peak
	}
	return off
}

// inPeak requires a peak-hour hit and a peak-day hit when both are
// configured, otherwise whichever dimension is present.
func (a ActivityPattern) inPeak(t time.Time) bool {
	hourHit := false
	for _, h := range a.PeakHours {
		if t.Hour() == h {
			hourHit = true
			break
		}
	}
	dayHit := false
	for _, d := range a.PeakDays {
		if t.Weekday() == d {
			dayHit = true
			break
		}
	}
	switch {
	case len(a.PeakHours) > 0 && len(a.PeakDays) > 0:
		return hourHit && dayHit
	case len(a.PeakHours) > 0:
		return hourHit
	default:
		return dayHit
	}
}
