package pipeline

import (
	"context"
	"strings"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Clean normalizes the raw profile fields scraped off a platform so the
// later stages work over a consistent shape.
type Clean struct{}

// NewClean creates the cleaning stage.
func NewClean() *Clean {
	return &Clean{}
}

// Name implements the Stage interface.
func (c *Clean) Name() string {
	return "clean"
}

// Process implements the Stage interface.
func (c *Clean) Process(_ context.Context, candidate *platform.Candidate) error {
	candidate.Username = normalizeUsername(candidate.Username)
	candidate.DisplayName = strings.TrimSpace(candidate.DisplayName)
	candidate.Bio = collapseWhitespace(candidate.Bio)
	candidate.Keywords = normalizeKeywords(candidate.Keywords)

	if candidate.Followers < 0 {
		candidate.Followers = 0
	}
	if candidate.AvgLikes < 0 {
		candidate.AvgLikes = 0
	}
	if candidate.AvgComments < 0 {
		candidate.AvgComments = 0
	}
	if candidate.PostsPerWeek < 0 {
		candidate.PostsPerWeek = 0
	}
	return nil
}

func normalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.ToLower(username)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return keywords
	}
	seen := make(map[string]struct{}, len(keywords))
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		cleaned = append(cleaned, kw)
	}
	return cleaned
}
