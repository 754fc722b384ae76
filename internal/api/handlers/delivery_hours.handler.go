package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/delivery-hours/internal/models"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

const (
	detailUnavailable = "Service temporarily unavailable"
	detailDomain      = "Unable to process delivery hours"
	detailInternal    = "An error occurred while processing your request"
)

// DeliveryHoursComputer is implemented by services.DeliveryHoursService.
type DeliveryHoursComputer interface {
	ComputeDeliveryHours(ctx context.Context, venueID, citySlug string) *models.DeliveryHoursResult
}

type DeliveryHoursHandler struct {
	service DeliveryHoursComputer
	logger  logger.Logger
}

func NewDeliveryHoursHandler(service DeliveryHoursComputer, log logger.Logger) *DeliveryHoursHandler {
	return &DeliveryHoursHandler{service: service, logger: log}
}

// GetDeliveryHours handles GET /delivery-hours?city_slug=&venue_id=
func (h *DeliveryHoursHandler) GetDeliveryHours(c *gin.Context) {
	var q models.DeliveryHoursQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(err)
		return
	}
	venueID := strings.TrimSpace(q.VenueID)
	citySlug := strings.TrimSpace(q.CitySlug)

	result := h.service.ComputeDeliveryHours(c.Request.Context(), venueID, citySlug)

	if status, detail := failureStatus(result); status != 0 {
		h.logger.Warn("Delivery hours request failed",
			"venue_id", venueID, "city_slug", citySlug, "status", status, "error_codes", result.ErrorCodes())
		c.JSON(status, models.DetailResponse{Detail: detail})
		return
	}
	if result.HasErrors() {
		h.logger.Info("Delivery hours served with warnings",
			"venue_id", venueID, "city_slug", citySlug, "error_codes", result.ErrorCodes())
	}

	c.JSON(http.StatusOK, models.DeliveryHoursResponse{DeliveryHours: result.Window.ToAPIFormat()})
}

// failureStatus picks the response for a result, or 0 when the week can be
// served. Errors are checked in order; upstream failures win over domain
// ones that come after them. Implementation details never reach the client.
func failureStatus(r *models.DeliveryHoursResult) (int, string) {
	for _, e := range r.Errors {
		switch e.Code {
		case models.CodeVenueServiceUnavailable, models.CodeCourierServiceUnavailable,
			models.CodeVenueServiceError, models.CodeCourierServiceError:
			return http.StatusServiceUnavailable, detailUnavailable
		}
		if e.Source == models.SourceDomainLogic {
			return http.StatusInternalServerError, detailDomain
		}
	}
	if r.HasCriticalErrors() {
		return http.StatusInternalServerError, detailInternal
	}
	return 0, ""
}
