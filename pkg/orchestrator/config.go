package orchestrator

import (
	"fmt"
	"time"
)

const (
	DefaultProcessWorkers = 5
	DefaultTopPerPlatform = 5
	DefaultTopGlobal      = 10
	DefaultHighScore      = 0.8
)

// Config tunes one discovery session. The shared concurrency ceiling is not
// configured here; it arrives as a scheduler.Slots instance so interactive
// sessions and background scrapes draw from the same budget.
type Config struct {
	// MaxResultsPerPlatform caps scrape results when the per-platform
	// criteria leave MaxResults unset. Zero defers to the manager's cap.
	MaxResultsPerPlatform int

	// ProcessWorkers bounds the candidate analysis/pipeline pool.
	ProcessWorkers int

	TopPerPlatform int
	TopGlobal      int

	// HighScore is the FinalScore at or above which a candidate counts
	// toward the platform-concentration recommendation.
	HighScore float64

	// DetailPacing inserts an extra delay between detail fetches on one
	// platform, on top of rate-limit admission. Zero disables it.
	DetailPacing time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProcessWorkers == 0 {
		c.ProcessWorkers = DefaultProcessWorkers
	}
	if c.TopPerPlatform == 0 {
		c.TopPerPlatform = DefaultTopPerPlatform
	}
	if c.TopGlobal == 0 {
		c.TopGlobal = DefaultTopGlobal
	}
	if c.HighScore == 0 {
		c.HighScore = DefaultHighScore
	}
	return c
}

// Validate rejects settings that cannot run a session.
func (c Config) Validate() error {
	if c.MaxResultsPerPlatform < 0 {
		return fmt.Errorf("orchestrator: max results per platform must not be negative, got %d", c.MaxResultsPerPlatform)
	}
	if c.ProcessWorkers < 1 {
		return fmt.Errorf("orchestrator: process workers must be at least 1, got %d", c.ProcessWorkers)
	}
	if c.TopPerPlatform < 1 {
		return fmt.Errorf("orchestrator: top per platform must be at least 1, got %d", c.TopPerPlatform)
	}
	if c.TopGlobal < 1 {
		return fmt.Errorf("orchestrator: top global must be at least 1, got %d", c.TopGlobal)
	}
	if c.HighScore <= 0 || c.HighScore > 1 {
		return fmt.Errorf("orchestrator: high score must be in (0, 1], got %f", c.HighScore)
	}
	if c.DetailPacing < 0 {
		return fmt.Errorf("orchestrator: detail pacing must not be negative, got %s", c.DetailPacing)
	}
	return nil
}
