package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Upstream       UpstreamConfig       `mapstructure:"upstream" yaml:"upstream"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
	Cache          CacheConfig          `mapstructure:"cache" yaml:"cache"`
	CORS           CORSConfig           `mapstructure:"cors" yaml:"cors"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit" yaml:"rate_limit"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring" yaml:"monitoring"`
}

// UpstreamConfig holds the two services delivery hours are computed from.
type UpstreamConfig struct {
	Venue   ServiceConfig     `mapstructure:"venue" yaml:"venue"`
	Courier ServiceConfig     `mapstructure:"courier" yaml:"courier"`
	TLS     UpstreamTLSConfig `mapstructure:"tls" yaml:"tls"`
}

// UpstreamTLSConfig applies to https endpoints of both upstreams. CABundle is
// a PEM file added to the system pool and reloaded when it changes on disk.
type UpstreamTLSConfig struct {
	CABundle           string `mapstructure:"ca_bundle" yaml:"ca_bundle"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type ServiceConfig struct {
	// Endpoints are base URLs, e.g. http://localhost:8080/venue-service.
	// Requests are spread round-robin across them.
	Endpoints []string           `mapstructure:"endpoints" yaml:"endpoints"`
	Timeout   int                `mapstructure:"timeout" yaml:"timeout"` // milliseconds
	Retries   int                `mapstructure:"retries" yaml:"retries"`
	BackoffMS int                `mapstructure:"backoff_ms" yaml:"backoff_ms"`
	Discovery K8sDiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
}

// K8sDiscoveryConfig enables dynamic endpoint discovery for a Service
type K8sDiscoveryConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Service        string `mapstructure:"service" yaml:"service"` // e.g. venue-service.venues.svc.cluster.local
	Port           int    `mapstructure:"port" yaml:"port"`
	Scheme         string `mapstructure:"scheme" yaml:"scheme"` // http | https
	BasePath       string `mapstructure:"base_path" yaml:"base_path"`
	RefreshSeconds int    `mapstructure:"refresh_seconds" yaml:"refresh_seconds"`
	UseSRV         bool   `mapstructure:"use_srv" yaml:"use_srv"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	ResetTimeout     int `mapstructure:"reset_timeout" yaml:"reset_timeout"` // seconds
	HalfOpenMaxCalls int `mapstructure:"half_open_max_calls" yaml:"half_open_max_calls"`
}

// CacheConfig selects the Valkey backend for raw upstream payloads. Nodes
// takes precedence over URL; with neither the cache is in-memory.
type CacheConfig struct {
	URL      string   `mapstructure:"url" yaml:"url"`
	Nodes    []string `mapstructure:"nodes" yaml:"nodes"`
	Password string   `mapstructure:"password" yaml:"password"`
	TTL      int      `mapstructure:"ttl" yaml:"ttl"` // seconds
}

// CORSConfig handles Cross-Origin Resource Sharing
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// MonitoringConfig handles self-monitoring configuration
type MonitoringConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath       string  `mapstructure:"metrics_path" yaml:"metrics_path"`
	PrometheusEnabled bool    `mapstructure:"prometheus_enabled" yaml:"prometheus_enabled"`
	TracingEnabled    bool    `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint      string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure      bool    `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	SampleRatio       float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}
