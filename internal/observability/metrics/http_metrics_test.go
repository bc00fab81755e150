package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestGinMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/admin/fees/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/api/admin/fees/1", "/api/admin/fees/2", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/admin/fees/:id", "204")); got != 2 {
		t.Fatalf("expected 2 matched requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")); got != 1 {
		t.Fatalf("expected 1 unknown request, got %v", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var histogram *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "feefriend_http_request_duration_seconds" {
			histogram = f
		}
	}
	if histogram == nil || len(histogram.GetMetric()) != 2 {
		t.Fatalf("expected duration histogram for two routes")
	}
}
