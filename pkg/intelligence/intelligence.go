package intelligence

import (
	"context"
	"errors"
	"fmt"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Processor annotates a candidate with derived affiliate signals. Processors
// read the candidate and return a fresh Analysis; they never mutate it.
type Processor interface {
	Name() string
	Analyze(ctx context.Context, candidate *platform.Candidate) (*platform.Analysis, error)
}

// ProcessingError marks a candidate whose analysis failed. The candidate is
// dropped, not retried.
type ProcessingError struct {
	CandidateID string
	Err         error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("intelligence: candidate %s: %v", e.CandidateID, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Registry routes candidates to the processor dedicated to their platform,
// falling back to the general processor for everything else. The mapping is
// fixed at construction.
type Registry struct {
	byPlatform map[platform.Platform]Processor
	general    Processor
}

// NewRegistry builds the routing table. Construction fails when general is
// nil or when a required platform has no dedicated processor, so a
// misconfigured deployment dies at startup instead of silently analyzing
// required platforms with the general fallback.
func NewRegistry(general Processor, assignments map[platform.Platform]Processor, required ...platform.Platform) (*Registry, error) {
	if general == nil {
		return nil, errors.New("intelligence: general processor is required")
	}
	for _, p := range required {
		if assignments[p] == nil {
			return nil, fmt.Errorf("intelligence: platform %q requires a dedicated processor", p)
		}
	}

	byPlatform := make(map[platform.Platform]Processor, len(assignments))
	for p, proc := range assignments {
		if proc == nil {
			continue
		}
		byPlatform[p] = proc
	}
	return &Registry{byPlatform: byPlatform, general: general}, nil
}

// ProcessorFor returns the dedicated processor for the platform, or the
// general one.
func (r *Registry) ProcessorFor(p platform.Platform) Processor {
	if proc, ok := r.byPlatform[p]; ok {
		return proc
	}
	return r.general
}

// Analyze routes the candidate, attaches the resulting analysis, and stamps
// its provenance. Failures come back wrapped in a ProcessingError.
func (r *Registry) Analyze(ctx context.Context, candidate *platform.Candidate) error {
	proc := r.ProcessorFor(candidate.Platform)

	analysis, err := proc.Analyze(ctx, candidate)
	if err != nil {
		return &ProcessingError{CandidateID: candidate.ID, Err: err}
	}
	if analysis == nil {
		return &ProcessingError{
			CandidateID: candidate.ID,
			Err:         fmt.Errorf("processor %s returned no analysis", proc.Name()),
		}
	}

	analysis.Analyzer = proc.Name()
	candidate.Analysis = analysis
	return nil
}
