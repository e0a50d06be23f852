package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// Recurring layers cron-driven discovery schedules on top of the scheduler.
// Each firing queues a fresh scrape task, so the priority queue and retry
// machinery apply to recurring work exactly as to one-off work.
type Recurring struct {
	cron  *cron.Cron
	sched *Scheduler
	sink  telemetry.Sink
}

func NewRecurring(sched *Scheduler, sink telemetry.Sink) *Recurring {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Recurring{
		cron:  cron.New(),
		sched: sched,
		sink:  sink,
	}
}

// AddSchedule registers a cron expression (standard five-field form or a
// descriptor like "@every 6h") that schedules a scrape on each firing.
func (r *Recurring) AddSchedule(spec string, p platform.Platform, criteria platform.Criteria, priority Priority) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		task := r.sched.Schedule(p, criteria, priority)
		r.sink.Debug("recurring scrape queued", telemetry.Fields{
			"task_id":  task.ID,
			"platform": p,
			"spec":     spec,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}

	r.sink.Info("recurring schedule registered", telemetry.Fields{
		"platform": p,
		"spec":     spec,
		"priority": priority.String(),
	})
	return id, nil
}

// Remove drops a registered schedule.
func (r *Recurring) Remove(id cron.EntryID) {
	r.cron.Remove(id)
}

func (r *Recurring) Start() {
	r.cron.Start()
}

// Stop halts future firings; an in-flight firing completes.
func (r *Recurring) Stop() {
	r.cron.Stop()
}
