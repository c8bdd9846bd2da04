package ratelimit

import (
	"fmt"
	"time"
)

// Config represents rate limiting configuration
type Config struct {
	Rate RateConfig `yaml:"rate"`

	// Prefix namespaces limiter keys in the shared store.
	Prefix string `yaml:"prefix"`
}

// RateConfig represents a single rate limit configuration
type RateConfig struct {
	Period time.Duration `yaml:"period"`
	Limit  int64         `yaml:"limit"`
}

// Enabled reports whether the rate carries a positive limit.
func (r RateConfig) Enabled() bool {
	return r.Limit > 0
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		Rate:   RateConfig{Limit: 60, Period: time.Minute},
		Prefix: "leadops:ratelimit:",
	}
}

// Validate checks the rate when it is enabled.
func (c *Config) Validate() error {
	if c.Rate.Enabled() && c.Rate.Period <= 0 {
		return fmt.Errorf("rate limit period must be positive, got %s", c.Rate.Period)
	}
	return nil
}
