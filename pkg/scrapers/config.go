package scrapers

import "time"

// Default configuration values
const (
	// DefaultMaxResults caps a discovery run when the caller passes no cap
	DefaultMaxResults = 50
	// DefaultBackoffCooldown is the backoff window opened when a platform
	// throttles without a retry hint
	DefaultBackoffCooldown = 5 * time.Minute
)

// Config holds the scrape coordination settings.
type Config struct {
	// MaxResults is the fallback result cap per discovery run
	MaxResults int
	// BackoffCooldown is the backoff window used when a throttling
	// platform provides no retry hint
	BackoffCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.BackoffCooldown <= 0 {
		c.BackoffCooldown = DefaultBackoffCooldown
	}
	return c
}
