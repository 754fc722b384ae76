package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/delivery-hours/internal/api/middleware"
	"github.com/platformbuilds/delivery-hours/internal/models"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// CacheInvalidator is implemented by services.PayloadCache.
type CacheInvalidator interface {
	InvalidateService(ctx context.Context, service string) (int64, error)
}

type CacheHandler struct {
	cache    CacheInvalidator
	services map[string]struct{}
	logger   logger.Logger
}

// NewCacheHandler accepts invalidation requests for the named upstreams only.
func NewCacheHandler(c CacheInvalidator, log logger.Logger, services ...string) *CacheHandler {
	known := make(map[string]struct{}, len(services))
	for _, s := range services {
		known[s] = struct{}{}
	}
	return &CacheHandler{cache: c, services: known, logger: log}
}

// InvalidateService handles DELETE /api/v1/cache/:service
func (h *CacheHandler) InvalidateService(c *gin.Context) {
	service := c.Param("service")
	if _, ok := h.services[service]; !ok {
		_ = c.Error(middleware.BadRequest(fmt.Errorf("unknown service %q", service)))
		return
	}

	deleted, err := h.cache.InvalidateService(c.Request.Context(), service)
	if err != nil {
		_ = c.Error(&middleware.HTTPError{
			Status: http.StatusServiceUnavailable,
			Code:   "CACHE_UNAVAILABLE",
			Err:    fmt.Errorf("invalidate %s cache: %w", service, err),
		})
		return
	}

	h.logger.Info("Cache invalidated via API", "service", service, "deleted", deleted, "request_id", middleware.GetRequestID(c))
	c.JSON(http.StatusOK, models.CacheInvalidationResponse{Service: service, Deleted: deleted})
}
