package llmanalyzer

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 400
)

// Config holds the verdict-generation settings.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *logrus.Logger
}

// NewConfig loads the analyzer settings from environment variables.
func NewConfig(logger *logrus.Logger) (*Config, error) {
	config := &Config{
		Model:       getEnvOrDefault("OPENAI_MODEL", DefaultModel),
		Temperature: getEnvFloatOrDefault("LLM_ANALYZER_TEMPERATURE", DefaultTemperature),
		MaxTokens:   getEnvIntOrDefault("LLM_ANALYZER_MAX_TOKENS", DefaultMaxTokens),
		Logger:      logger,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"model":       config.Model,
		"temperature": config.Temperature,
		"maxTokens":   config.MaxTokens,
	}).Debug("LLM analyzer configuration loaded")

	return config, nil
}

// Validate checks required fields and fills unset ones with defaults.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
