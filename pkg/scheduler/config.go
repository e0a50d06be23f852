package scheduler

import (
	"fmt"
	"time"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// Default configuration values
const (
	// DefaultPollInterval is how often the driver loop wakes
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxConcurrent is the global active-task ceiling
	DefaultMaxConcurrent = 5
	// DefaultMaxRetries bounds dispatch attempts per task
	DefaultMaxRetries = 3
	// DefaultBackoffUnit scales the exponential requeue delay
	DefaultBackoffUnit = time.Minute
	// DefaultMaxBackoff caps a single requeue delay
	DefaultMaxBackoff = time.Hour
	// DefaultStatusInterval is how often the status reporter logs
	DefaultStatusInterval = 30 * time.Second
)

// Config holds the scheduler settings. Zero fields take defaults.
type Config struct {
	// PollInterval is the driver loop wake interval
	PollInterval time.Duration
	// MaxRetries bounds dispatch attempts before a task is abandoned
	MaxRetries int
	// BackoffUnit is the unit of the 2^retry_count requeue delay
	BackoffUnit time.Duration
	// MaxBackoff caps a single requeue delay
	MaxBackoff time.Duration
	// StatusInterval is the cadence of periodic status reports
	StatusInterval time.Duration
	// BaseDelays maps each priority to its scheduling lead time
	BaseDelays map[Priority]time.Duration
	// Patterns adjusts lead times per platform activity
	Patterns map[platform.Platform]ActivityPattern
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		MaxRetries:     DefaultMaxRetries,
		BackoffUnit:    DefaultBackoffUnit,
		MaxBackoff:     DefaultMaxBackoff,
		StatusInterval: DefaultStatusInterval,
		BaseDelays:     DefaultBaseDelays(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = d.BackoffUnit
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = d.StatusInterval
	}
	if c.BaseDelays == nil {
		c.BaseDelays = d.BaseDelays
	}
	return c
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("scheduler: poll interval must not be negative, got %v", c.PollInterval)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("scheduler: max retries must not be negative, got %d", c.MaxRetries)
	}
	for p, pattern := range c.Patterns {
		for _, h := range pattern.PeakHours {
			if h < 0 || h > 23 {
				return fmt.Errorf("scheduler: pattern for %s has invalid peak hour %d", p, h)
			}
		}
	}
	return nil
}
