package services

import (
	"context"
	"net/url"

	"github.com/platformbuilds/delivery-hours/internal/schedule"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// CourierHoursService reads courier fleet hours for a city from the courier service.
type CourierHoursService struct {
	fetcher hoursFetcher
}

func NewCourierHoursService(client *UpstreamClient, breaker *CircuitBreaker, payloads *PayloadCache, log logger.Logger) *CourierHoursService {
	return &CourierHoursService{fetcher: newHoursFetcher(client, breaker, payloads, log)}
}

// GetDeliveryHours calls GET /delivery-hours?city={city}.
func (s *CourierHoursService) GetDeliveryHours(ctx context.Context, city string) (schedule.WeeklyDeliveryWindow, error) {
	params := map[string]string{"city": city}
	return s.fetcher.fetch(ctx, "/delivery-hours", url.Values{"city": {city}}, params)
}
