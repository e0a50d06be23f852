package orchestrator

import (
	"fmt"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// PlatformTaskError wraps a platform task failure. The session records the
// platform with zero results and keeps going.
type PlatformTaskError struct {
	Platform platform.Platform
	Err      error
}

func (e *PlatformTaskError) Error() string {
	return fmt.Sprintf("orchestrator: platform %s task failed: %v", e.Platform, e.Err)
}

func (e *PlatformTaskError) Unwrap() error {
	return e.Err
}
