package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ValidateEndpoint validates that an endpoint is properly formatted
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https scheme")
	}

	if parsed.Host == "" {
		return fmt.Errorf("endpoint must include host")
	}

	return nil
}

// ValidateRedisNode validates Valkey cluster node format
func ValidateRedisNode(node string) error {
	if node == "" {
		return fmt.Errorf("cache node cannot be empty")
	}

	// Check format: host:port
	host, port, err := net.SplitHostPort(node)
	if err != nil {
		return fmt.Errorf("cache node must be in format host:port: %w", err)
	}

	if host == "" {
		return fmt.Errorf("cache node must include host")
	}

	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid cache node port: %w", err)
	}

	return nil
}
