package models

// DeliveryHoursQuery is bound from GET /delivery-hours query parameters.
type DeliveryHoursQuery struct {
	CitySlug string `form:"city_slug" binding:"required,max=128"`
	VenueID  string `form:"venue_id" binding:"required,max=128"`
}

// DeliveryHoursResponse maps display day names to formatted hours,
// e.g. {"Monday": "10-13, 17-22", "Tuesday": "Closed"}.
type DeliveryHoursResponse struct {
	DeliveryHours map[string]string `json:"delivery_hours"`
}

// DetailResponse is the error body of the delivery hours endpoint.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// CacheInvalidationResponse reports how many cached payloads were dropped.
type CacheInvalidationResponse struct {
	Service string `json:"service"`
	Deleted int64  `json:"deleted"`
}
