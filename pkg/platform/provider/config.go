package provider

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Default configuration values
const (
	// DefaultBaseURL is the default URL for the scraping provider API
	DefaultBaseURL = "http://localhost:8080/api/v1"
	// DefaultRequestTimeout is the default timeout in seconds for API requests
	DefaultRequestTimeout = 30
	// DefaultRequestsPerSecond is the client's self-imposed request pace
	DefaultRequestsPerSecond = 2.0
	// DefaultSearchCount is the default number of profiles per search request
	DefaultSearchCount = 25
)

// Config holds the scraping provider API settings.
// Environment variables:
//   - PROVIDER_BASE_URL: API base URL (default: http://localhost:8080/api/v1)
//   - PROVIDER_API_KEY: bearer key sent with each request (optional)
//   - PROVIDER_REQUEST_TIMEOUT: request timeout in seconds (default: 30)
//   - PROVIDER_REQUESTS_PER_SECOND: client-side request pace (default: 2)
//   - PROVIDER_SEARCH_COUNT: profiles per search request (default: 25)
type Config struct {
	// BaseURL is the provider API root
	BaseURL string
	// APIKey authenticates requests when set
	APIKey string
	// RequestTimeout is the duration to wait before timing out requests
	RequestTimeout time.Duration
	// RequestsPerSecond paces outbound requests independently of the
	// per-platform admission windows
	RequestsPerSecond float64
	// SearchCount is the number of profiles requested per search
	SearchCount int
	// Logger is the configured logrus logger instance
	Logger *logrus.Logger
}

// NewConfig builds a Config from environment variables, falling back to
// defaults for anything unset.
func NewConfig(logger *logrus.Logger) (*Config, error) {
	timeout := getEnvIntOrDefault("PROVIDER_REQUEST_TIMEOUT", DefaultRequestTimeout)
	searchCount := getEnvIntOrDefault("PROVIDER_SEARCH_COUNT", DefaultSearchCount)

	pace := DefaultRequestsPerSecond
	if raw := os.Getenv("PROVIDER_REQUESTS_PER_SECOND"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			pace = parsed
		} else {
			logrus.WithFields(logrus.Fields{
				"value":   raw,
				"default": DefaultRequestsPerSecond,
			}).Debug("Failed to parse requests per second, using default")
		}
	}

	config := &Config{
		BaseURL:           getEnvOrDefault("PROVIDER_BASE_URL", DefaultBaseURL),
		APIKey:            os.Getenv("PROVIDER_API_KEY"),
		RequestTimeout:    time.Duration(timeout) * time.Second,
		RequestsPerSecond: pace,
		SearchCount:       searchCount,
		Logger:            logger,
	}

	logrus.WithFields(logrus.Fields{
		"base_url":            config.BaseURL,
		"request_timeout":     config.RequestTimeout.String(),
		"requests_per_second": config.RequestsPerSecond,
		"search_count":        config.SearchCount,
		"api_key_set":         config.APIKey != "",
	}).Debug("Created provider config")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid according to the following rules:
//   - BaseURL must not be empty
//   - Logger must be initialized
//   - RequestTimeout must be at least 1 second
//   - RequestsPerSecond must be positive
//   - SearchCount must be positive
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("provider: base URL is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("provider: logger is required")
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("provider: request timeout must be at least 1 second, got %v", c.RequestTimeout)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("provider: requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.SearchCount < 1 {
		return fmt.Errorf("provider: search count must be positive, got %d", c.SearchCount)
	}
	return nil
}

// getEnvOrDefault retrieves an environment variable value by key,
// returning the defaultValue if the environment variable is not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"value":   raw,
			"default": defaultValue,
		}).Debug("Failed to parse integer environment variable, using default")
		return defaultValue
	}
	return parsed
}
