package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables (a local .env file is read into the environment first)
// 2. Configuration file (config.yaml, or the file named by CONFIG_PATH)
// 3. Default values
func Load() (*Config, error) {
	return LoadFile(ConfigFilePath())
}

// LoadFile is Load with an explicit config file; an empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/delivery-hours/")
		v.AddConfigPath("./configs/")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("DELIVERY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("environment", d.Environment)
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)

	for name, svc := range map[string]ServiceConfig{
		"venue":   d.Upstream.Venue,
		"courier": d.Upstream.Courier,
	} {
		prefix := "upstream." + name + "."
		v.SetDefault(prefix+"endpoints", svc.Endpoints)
		v.SetDefault(prefix+"timeout", svc.Timeout)
		v.SetDefault(prefix+"retries", svc.Retries)
		v.SetDefault(prefix+"backoff_ms", svc.BackoffMS)
		v.SetDefault(prefix+"discovery.enabled", false)
		v.SetDefault(prefix+"discovery.service", "")
		v.SetDefault(prefix+"discovery.port", 80)
		v.SetDefault(prefix+"discovery.scheme", svc.Discovery.Scheme)
		v.SetDefault(prefix+"discovery.base_path", "")
		v.SetDefault(prefix+"discovery.refresh_seconds", svc.Discovery.RefreshSeconds)
		v.SetDefault(prefix+"discovery.use_srv", false)
	}
	v.SetDefault("upstream.tls.ca_bundle", "")
	v.SetDefault("upstream.tls.insecure_skip_verify", false)

	v.SetDefault("circuit_breaker.failure_threshold", d.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.reset_timeout", d.CircuitBreaker.ResetTimeout)
	v.SetDefault("circuit_breaker.half_open_max_calls", d.CircuitBreaker.HalfOpenMaxCalls)

	v.SetDefault("cache.url", d.Cache.URL)
	v.SetDefault("cache.nodes", []string{})
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", d.CORS.AllowedMethods)
	v.SetDefault("cors.allowed_headers", d.CORS.AllowedHeaders)
	v.SetDefault("cors.exposed_headers", d.CORS.ExposedHeaders)
	v.SetDefault("cors.allow_credentials", d.CORS.AllowCredentials)
	v.SetDefault("cors.max_age", d.CORS.MaxAge)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)

	v.SetDefault("monitoring.enabled", d.Monitoring.Enabled)
	v.SetDefault("monitoring.metrics_path", d.Monitoring.MetricsPath)
	v.SetDefault("monitoring.prometheus_enabled", d.Monitoring.PrometheusEnabled)
	v.SetDefault("monitoring.tracing_enabled", d.Monitoring.TracingEnabled)
	v.SetDefault("monitoring.otlp_endpoint", "")
	v.SetDefault("monitoring.otlp_insecure", d.Monitoring.OTLPInsecure)
	v.SetDefault("monitoring.sample_ratio", d.Monitoring.SampleRatio)
}

// overrideWithEnvVars explicitly handles the unprefixed variables deployments
// already set for this service.
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	// Upstream base URLs, comma separated for several replicas
	if venue := os.Getenv("VENUE_SERVICE_URL"); venue != "" {
		v.Set("upstream.venue.endpoints", splitList(venue))
	}

	if courier := os.Getenv("COURIER_SERVICE_URL"); courier != "" {
		v.Set("upstream.courier.endpoints", splitList(courier))
	}

	if bundle := os.Getenv("UPSTREAM_CA_BUNDLE"); bundle != "" {
		v.Set("upstream.tls.ca_bundle", bundle)
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		v.Set("cache.url", redisURL)
	}

	if cacheNodes := os.Getenv("VALKEY_CACHE_NODES"); cacheNodes != "" {
		v.Set("cache.nodes", splitList(cacheNodes))
	}

	if cacheTTL := os.Getenv("CACHE_TTL_SECONDS"); cacheTTL != "" {
		if ttl, err := strconv.Atoi(cacheTTL); err == nil {
			v.Set("cache.ttl", ttl)
		}
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		v.Set("monitoring.otlp_endpoint", endpoint)
		v.Set("monitoring.tracing_enabled", true)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	for name, svc := range map[string]ServiceConfig{
		"venue":   config.Upstream.Venue,
		"courier": config.Upstream.Courier,
	} {
		if len(svc.Endpoints) == 0 && !svc.Discovery.Enabled {
			return fmt.Errorf("at least one %s service endpoint is required", name)
		}
		for _, ep := range svc.Endpoints {
			if err := ValidateEndpoint(ep); err != nil {
				return fmt.Errorf("%s service endpoint %q: %w", name, ep, err)
			}
		}
		if svc.Retries < 0 {
			return fmt.Errorf("%s service retries cannot be negative", name)
		}
		if svc.Discovery.Enabled && svc.Discovery.Service == "" {
			return fmt.Errorf("%s service discovery requires a service name", name)
		}
	}

	if config.IsProduction() && config.Upstream.TLS.InsecureSkipVerify {
		return fmt.Errorf("upstream.tls.insecure_skip_verify is not allowed in production")
	}

	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validEnvironments := []string{"development", "staging", "production", "test"}
	if !contains(validEnvironments, config.Environment) {
		return fmt.Errorf("invalid environment: %s", config.Environment)
	}

	if config.Cache.TTL < 1 {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	for _, node := range config.Cache.Nodes {
		if err := ValidateRedisNode(node); err != nil {
			return err
		}
	}

	cb := config.CircuitBreaker
	if cb.FailureThreshold < 1 || cb.HalfOpenMaxCalls < 1 || cb.ResetTimeout < 1 {
		return fmt.Errorf("circuit breaker settings must be positive")
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit requires a positive rate and burst")
	}

	if config.Monitoring.SampleRatio < 0 || config.Monitoring.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio must be between 0 and 1")
	}

	return nil
}
