package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Validate gates candidates on structural integrity before scoring. A
// candidate that fails here is dropped, never patched up.
type Validate struct{}

// NewValidate creates the validation stage.
func NewValidate() *Validate {
	return &Validate{}
}

// Name implements the Stage interface.
func (v *Validate) Name() string {
	return "validate"
}

// Process implements the Stage interface.
func (v *Validate) Process(_ context.Context, candidate *platform.Candidate) error {
	if candidate.ID == "" {
		return errors.New("candidate id is empty")
	}
	if candidate.Platform == "" {
		return errors.New("candidate platform is empty")
	}
	if candidate.Username == "" {
		return errors.New("candidate username is empty")
	}
	if candidate.Followers < 0 || candidate.AvgLikes < 0 || candidate.AvgComments < 0 {
		return fmt.Errorf("candidate %s has negative counters", candidate.ID)
	}
	if candidate.PostsPerWeek < 0 {
		return fmt.Errorf("candidate %s has negative posting cadence", candidate.ID)
	}
	if candidate.Analysis == nil {
		return fmt.Errorf("candidate %s has no analysis attached", candidate.ID)
	}
	return nil
}
