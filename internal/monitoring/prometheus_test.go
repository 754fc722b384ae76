package monitoring

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSetupPrometheusMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	SetupPrometheusMetrics(r, "", "test")

	RecordUpstreamRequest("venue", "success", 10*time.Millisecond)
	RecordCacheOperation("get", "miss")
	SetCircuitBreakerState("courier", 1)
	RecordDeliveryComputation("success", time.Millisecond)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{
		"delivery_hours_upstream_requests_total",
		"delivery_hours_circuit_breaker_state",
		"delivery_hours_computations_total",
		"delivery_hours_build_info",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("metric %s missing from scrape output", name)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	if got := normalizeEndpoint("/venues/123/opening-hours"); got != "/venues/:id/opening-hours" {
		t.Fatalf("normalizeEndpoint=%q", got)
	}
	if got := normalizeEndpoint(""); got != "/" {
		t.Fatalf("normalizeEndpoint(empty)=%q", got)
	}
}
