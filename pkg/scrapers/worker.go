package scrapers

import (
	"context"
	"time"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Worker scrapes one platform. Implementations must be safe for concurrent
// use; calls arrive from interactive discovery sessions and background
// schedules alike.
type Worker interface {
	// Discover finds candidate stubs matching the criteria.
	Discover(ctx context.Context, criteria platform.Criteria) ([]platform.CandidateStub, error)
	// FetchDetail hydrates one candidate by platform-native id.
	FetchDetail(ctx context.Context, id string) (*platform.Candidate, error)
	// Validate reports whether a hydrated candidate is a usable profile.
	Validate(ctx context.Context, candidate *platform.Candidate) (bool, error)
}

// ThrottledError is implemented by worker errors indicating the platform
// throttled the request. The manager opens a backoff window for the
// platform when it sees one.
type ThrottledError interface {
	error
	// ThrottledFor returns the platform's retry hint, zero when unknown.
	ThrottledFor() time.Duration
}
