package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

type bindTarget struct {
	CitySlug string `form:"city_slug" binding:"required"`
	VenueID  string `form:"venue_id" binding:"required"`
}

func TestErrorHandler(t *testing.T) {
	var logOutput strings.Builder
	testLogger := logger.NewMockLogger(&logOutput)

	tests := []struct {
		name           string
		query          string
		handler        gin.HandlerFunc
		expectedStatus int
		expectedBody   string
		expectLog      bool
	}{
		{
			name:           "no error - should not modify response",
			handler:        func(c *gin.Context) { c.String(http.StatusOK, "ok") },
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
		{
			name:           "binding error lists failed fields",
			query:          "?venue_id=v1",
			handler:        bindHandler,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid query parameters","code":"INVALID_REQUEST","details":[{"field":"city_slug","rule":"required"}]}`,
			expectLog:      true,
		},
		{
			name: "http error keeps its status",
			handler: func(c *gin.Context) {
				_ = c.Error(BadRequest(errors.New("unknown service \"x\"")))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"unknown service \"x\"","code":"INVALID_REQUEST"}`,
			expectLog:      true,
		},
		{
			name: "plain error is internal",
			handler: func(c *gin.Context) {
				_ = c.Error(errors.New("cache connection failed"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"cache connection failed","code":"INTERNAL_ERROR"}`,
			expectLog:      true,
		},
		{
			name: "written response is left alone",
			handler: func(c *gin.Context) {
				_ = c.Error(errors.New("ignored"))
				c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Service temporarily unavailable"})
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"detail":"Service temporarily unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logOutput.Reset()

			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(ErrorHandler(testLogger))
			r.GET("/test", tt.handler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if strings.HasPrefix(tt.expectedBody, "{") {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			} else {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
			assert.Equal(t, tt.expectLog, strings.Contains(logOutput.String(), "HTTP Error"))
		})
	}
}

func bindHandler(c *gin.Context) {
	var q bindTarget
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "city_slug", toSnakeCase("CitySlug"))
	assert.Equal(t, "venue_id", toSnakeCase("VenueId"))
	assert.Equal(t, "service", toSnakeCase("Service"))
}
