package ratelimit

import (
	"time"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// windowSize is the span of the sliding admission window.
const windowSize = time.Minute

// DefaultRequestsPerMinute applies to platforms that were never configured.
const DefaultRequestsPerMinute = 30

// Limits is the request budget configured for one platform. Only
// RequestsPerMinute gates admission; the hour and day figures are carried
// configuration reported through Stats for operator visibility.
type Limits struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	MaxPerHour        int `json:"max_per_hour"`
	MaxPerDay         int `json:"max_per_day"`
}

// merge overlays the non-zero fields of o onto l.
func (l Limits) merge(o Limits) Limits {
	if o.RequestsPerMinute > 0 {
		l.RequestsPerMinute = o.RequestsPerMinute
	}
	if o.MaxPerHour > 0 {
		l.MaxPerHour = o.MaxPerHour
	}
	if o.MaxPerDay > 0 {
		l.MaxPerDay = o.MaxPerDay
	}
	return l
}

// Config seeds the limiter with per-platform budgets. Platforms absent from
// PerPlatform fall back to Defaults on first touch.
type Config struct {
	Defaults    Limits
	PerPlatform map[platform.Platform]Limits
}

func DefaultConfig() Config {
	return Config{
		Defaults: Limits{RequestsPerMinute: DefaultRequestsPerMinute},
	}
}

// Stats is a point-in-time snapshot of one platform's limiter state.
type Stats struct {
	Limits       Limits    `json:"limits"`
	WindowCount  int       `json:"window_count"`
	BackoffUntil time.Time `json:"backoff_until,omitempty"`
}
