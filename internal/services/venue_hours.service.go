package services

import (
	"context"
	"net/url"

	"github.com/platformbuilds/delivery-hours/internal/schedule"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// VenueHoursService reads venue opening hours from the venue service.
type VenueHoursService struct {
	fetcher hoursFetcher
}

func NewVenueHoursService(client *UpstreamClient, breaker *CircuitBreaker, payloads *PayloadCache, log logger.Logger) *VenueHoursService {
	return &VenueHoursService{fetcher: newHoursFetcher(client, breaker, payloads, log)}
}

// GetOpeningHours calls GET /venues/{venueID}/opening-hours.
func (s *VenueHoursService) GetOpeningHours(ctx context.Context, venueID string) (schedule.WeeklyDeliveryWindow, error) {
	path := "/venues/" + url.PathEscape(venueID) + "/opening-hours"
	return s.fetcher.fetch(ctx, path, nil, map[string]string{"venue_id": venueID})
}
