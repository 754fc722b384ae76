// Package monitoring exposes Prometheus metrics for the delivery-hours service.
//
// Usage:
//
//  1. Register collectors and the scrape endpoint:
//     router := gin.New()
//     monitoring.SetupPrometheusMetrics(router, "/metrics", version)
//
//  2. Add HTTP metrics middleware:
//     router.Use(monitoring.HTTPMetricsMiddleware())
//
//  3. Record domain metrics where they happen:
//
//     monitoring.RecordCacheOperation("get", "hit")
//     monitoring.RecordUpstreamRequest("venue", "success", time.Since(start))
//     monitoring.SetCircuitBreakerState("courier", 1)
//     monitoring.RecordDeliveryComputation("degraded", time.Since(start))
//
// Available Metrics:
//
//   - delivery_hours_http_requests_total{method, endpoint, status_code}
//   - delivery_hours_http_request_duration_seconds{method, endpoint}
//   - delivery_hours_active_connections
//   - delivery_hours_cache_operations_total{operation, result}
//   - delivery_hours_upstream_requests_total{service, outcome}
//   - delivery_hours_upstream_request_duration_seconds{service}
//   - delivery_hours_circuit_breaker_state{service} (0 closed, 1 open, 2 half-open)
//   - delivery_hours_computations_total{outcome}
//   - delivery_hours_computation_duration_seconds
//   - delivery_hours_errors_total{type, component}
//   - delivery_hours_build_info{version, component}
package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_hours_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_hours_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "delivery_hours_active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)

	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_hours_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, success, error
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_hours_upstream_requests_total",
			Help: "Total number of requests to the venue and courier services",
		},
		[]string{"service", "outcome"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_hours_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds, retries included",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service"},
	)

	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "delivery_hours_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 open, 2 half-open)",
		},
		[]string{"service"},
	)

	computationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_hours_computations_total",
			Help: "Delivery hours computations by outcome",
		},
		[]string{"outcome"}, // success, degraded, failed
	)

	computationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_hours_computation_duration_seconds",
			Help:    "End to end delivery hours computation time",
			Buckets: prometheus.DefBuckets,
		},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_hours_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // type: http, cache, upstream
	)
)

// SetupPrometheusMetrics registers collectors on the default registry and
// mounts the scrape endpoint at path ("/metrics" when empty).
func SetupPrometheusMetrics(router gin.IRoutes, path, version string) {
	// Register build info (ignore if already registered)
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "delivery_hours_build_info",
		Help: "Build information for the delivery-hours service",
		ConstLabels: prometheus.Labels{
			"version":   version,
			"component": "delivery-hours",
		},
	}, func() float64 { return 1 }))

	_ = prometheus.Register(httpRequestsTotal)
	_ = prometheus.Register(httpRequestDuration)
	_ = prometheus.Register(activeConnections)
	_ = prometheus.Register(cacheOperationsTotal)
	_ = prometheus.Register(upstreamRequestsTotal)
	_ = prometheus.Register(upstreamRequestDuration)
	_ = prometheus.Register(circuitBreakerState)
	_ = prometheus.Register(computationsTotal)
	_ = prometheus.Register(computationDuration)
	_ = prometheus.Register(errorsTotal)

	if path == "" {
		path = "/metrics"
	}
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware collects HTTP request metrics
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = normalizeEndpoint(c.Request.URL.Path)
		}

		activeConnections.Inc()
		defer activeConnections.Dec()

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

		if c.Writer.Status() >= 500 {
			errorsTotal.WithLabelValues("http", endpoint).Inc()
		}
	}
}

// RecordCacheOperation records cache operation metrics
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache", operation).Inc()
	}
}

// RecordUpstreamRequest records one logical call to an upstream service.
// outcome is one of success, not_found, circuit_open, error.
func RecordUpstreamRequest(service, outcome string, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
	upstreamRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
	if outcome == "error" {
		errorsTotal.WithLabelValues("upstream", service).Inc()
	}
}

// SetCircuitBreakerState publishes the breaker state of an upstream.
func SetCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordDeliveryComputation records the outcome of one delivery hours computation.
func RecordDeliveryComputation(outcome string, duration time.Duration) {
	computationsTotal.WithLabelValues(outcome).Inc()
	computationDuration.Observe(duration.Seconds())
}

// normalizeEndpoint keeps label cardinality bounded for unmatched routes
func normalizeEndpoint(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isNumeric(part) && i > 0 {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
