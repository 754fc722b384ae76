package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/platformbuilds/delivery-hours/internal/services"
	"github.com/platformbuilds/delivery-hours/internal/version"
	"github.com/platformbuilds/delivery-hours/pkg/cache"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

const serviceName = "delivery-hours-service"

// UpstreamProbe is implemented by services.UpstreamClient.
type UpstreamProbe interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// BreakerStater is implemented by services.CircuitBreaker.
type BreakerStater interface {
	State() services.BreakerState
}

// Upstream pairs a probe with the breaker guarding it.
type Upstream struct {
	Probe   UpstreamProbe
	Breaker BreakerStater
}

type HealthHandler struct {
	cache     cache.ValkeyCluster
	upstreams []Upstream
	logger    logger.Logger
}

func NewHealthHandler(c cache.ValkeyCluster, log logger.Logger, upstreams ...Upstream) *HealthHandler {
	return &HealthHandler{cache: c, upstreams: upstreams, logger: log}
}

// GET /health - liveness only
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /ready - depends on the cache only. The in-memory fallback still
// serves requests, so it reports degraded rather than unready.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "healthy", http.StatusOK
	resp := gin.H{"service": serviceName, "version": version.Version}
	if h.cache != nil {
		if err := h.cache.HealthCheck(ctx); err != nil {
			resp["cache_error"] = err.Error()
			if errors.Is(err, cache.ErrNoExternalCache) {
				status = "degraded"
			} else {
				status, httpStatus = "unhealthy", http.StatusServiceUnavailable
				h.logger.Warn("Readiness check failed", "error", err)
			}
		}
	}
	resp["status"] = status
	resp["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	c.JSON(httpStatus, resp)
}

// GET /upstreams/status - probes every upstream concurrently and reports
// breaker states. Always 200; the body tells what is down.
func (h *HealthHandler) UpstreamsStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make([]gin.H, len(h.upstreams))
	var g errgroup.Group
	for i, u := range h.upstreams {
		g.Go(func() error {
			check := gin.H{"status": "healthy"}
			if err := u.Probe.HealthCheck(ctx); err != nil {
				check = gin.H{"status": "unhealthy", "error": err.Error()}
			}
			if u.Breaker != nil {
				check["circuit_breaker"] = u.Breaker.State().String()
			}
			checks[i] = check
			return nil
		})
	}
	_ = g.Wait()

	overall := "healthy"
	byName := make(gin.H, len(h.upstreams))
	for i, u := range h.upstreams {
		if checks[i]["status"] != "healthy" {
			overall = "degraded"
		}
		byName[u.Probe.Name()] = checks[i]
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    overall,
		"upstreams": byName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
