package provider

import (
	"context"
	"fmt"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Worker adapts the provider client to the per-platform worker contract
// used by the scraper manager. One worker serves one platform.
type Worker struct {
	platform platform.Platform
	client   *Client
}

func NewWorker(p platform.Platform, client *Client) *Worker {
	return &Worker{platform: p, client: client}
}

func (w *Worker) Platform() platform.Platform {
	return w.platform
}

// Discover finds candidate stubs matching the criteria.
func (w *Worker) Discover(ctx context.Context, criteria platform.Criteria) ([]platform.CandidateStub, error) {
	return w.client.SearchProfiles(ctx, w.platform, criteria)
}

// FetchDetail hydrates a single candidate by id.
func (w *Worker) FetchDetail(ctx context.Context, id string) (*platform.Candidate, error) {
	return w.client.GetProfile(ctx, w.platform, id)
}

// Validate reports whether the hydrated candidate is a usable prospect
// profile.
func (w *Worker) Validate(ctx context.Context, candidate *platform.Candidate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if candidate == nil {
		return false, fmt.Errorf("provider: nil candidate")
	}
	ok := candidate.ID != "" && candidate.Username != "" && candidate.Followers >= 0
	return ok, nil
}
