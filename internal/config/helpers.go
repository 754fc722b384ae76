package config

import (
	"os"
	"strings"
	"time"
)

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// splitList parses a comma separated env value.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// CacheTTL returns the payload cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// TimeoutDuration returns the per-request upstream timeout.
func (s ServiceConfig) TimeoutDuration() time.Duration {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeoutMS
	}
	return time.Duration(timeout) * time.Millisecond
}

// ResetTimeoutDuration returns how long the breaker stays open.
func (b CircuitBreakerConfig) ResetTimeoutDuration() time.Duration {
	return time.Duration(b.ResetTimeout) * time.Second
}

// ConfigFilePath returns the file Load reads when CONFIG_PATH is set.
func ConfigFilePath() string {
	return os.Getenv("CONFIG_PATH")
}
