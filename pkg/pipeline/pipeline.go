package pipeline

import (
	"context"
	"fmt"

	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/telemetry"
)

// Stage is one step of candidate post-processing. Stages annotate the
// candidate in place and must be deterministic: running a stage twice on the
// same input leaves the candidate in the same state.
type Stage interface {
	Name() string
	Process(ctx context.Context, candidate *platform.Candidate) error
}

// StageError reports which stage rejected a candidate. The orchestrator
// drops the candidate and moves on.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Runner executes a fixed chain of stages over one candidate at a time.
type Runner struct {
	stages []Stage
	sink   telemetry.Sink
}

// NewRunner builds a runner over an explicit stage chain.
func NewRunner(sink telemetry.Sink, stages ...Stage) *Runner {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Runner{stages: stages, sink: sink}
}

// NewStandardRunner builds the canonical chain: clean, enrich, validate,
// score.
func NewStandardRunner(weights ScoreWeights, sink telemetry.Sink) *Runner {
	return NewRunner(sink,
		NewClean(),
		NewEnrich(),
		NewValidate(),
		NewScore(weights),
	)
}

// Run passes the candidate through every stage in order, stopping at the
// first failure. The candidate is mutated in place; on error its state is
// whatever the stages before the failing one left behind.
func (r *Runner) Run(ctx context.Context, candidate *platform.Candidate) error {
	if candidate == nil {
		return fmt.Errorf("pipeline: nil candidate")
	}
	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stage.Process(ctx, candidate); err != nil {
			r.sink.Error("pipeline stage rejected candidate", telemetry.Fields{
				"stage":        stage.Name(),
				"candidate_id": candidate.ID,
				"platform":     candidate.Platform,
				"error":        err.Error(),
			})
			return &StageError{Stage: stage.Name(), Err: err}
		}
	}
	r.sink.Debug("candidate processed", telemetry.Fields{
		"candidate_id": candidate.ID,
		"platform":     candidate.Platform,
		"final_score":  candidate.FinalScore,
	})
	r.sink.Metric("pipeline_candidates_processed", 1)
	return nil
}
