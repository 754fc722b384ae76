package config

const (
	DefaultPort              = 8000
	DefaultVenueServiceURL   = "http://localhost:8080/venue-service"
	DefaultCourierServiceURL = "http://localhost:8080/courier-service"
	DefaultCacheURL          = "redis://localhost:6379"
	DefaultCacheTTLSeconds   = 300
	DefaultUpstreamTimeoutMS = 10000
	DefaultUpstreamRetries   = 2
	DefaultUpstreamBackoffMS = 100
	DefaultFailureThreshold  = 5
	DefaultResetTimeoutSec   = 30
	DefaultHalfOpenMaxCalls  = 3
)

// GetDefaultConfig returns a configuration with all default values
func GetDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Port:        DefaultPort,
		LogLevel:    "info",

		Upstream: UpstreamConfig{
			Venue:   defaultService(DefaultVenueServiceURL),
			Courier: defaultService(DefaultCourierServiceURL),
		},

		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: DefaultFailureThreshold,
			ResetTimeout:     DefaultResetTimeoutSec,
			HalfOpenMaxCalls: DefaultHalfOpenMaxCalls,
		},

		Cache: CacheConfig{
			URL: DefaultCacheURL,
			TTL: DefaultCacheTTLSeconds,
		},

		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-Rate-Limit-Limit", "Retry-After"},
			MaxAge:         3600,
		},

		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},

		Monitoring: MonitoringConfig{
			Enabled:           true,
			MetricsPath:       "/metrics",
			PrometheusEnabled: true,
			OTLPInsecure:      true,
			SampleRatio:       1,
		},
	}
}

func defaultService(url string) ServiceConfig {
	return ServiceConfig{
		Endpoints: []string{url},
		Timeout:   DefaultUpstreamTimeoutMS,
		Retries:   DefaultUpstreamRetries,
		BackoffMS: DefaultUpstreamBackoffMS,
		Discovery: K8sDiscoveryConfig{Scheme: "http", RefreshSeconds: 30},
	}
}
