package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestRequestMetrics_Middleware(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))

	m := newRequestMetrics(mp.Meter(httpInstrumentationName), zap.NewNop())

	e := echo.New()
	e.Use(m.middleware())
	e.GET("/api/v1/tabs/:id/stats", func(c echo.Context) error {
		return c.String(http.StatusOK, "stats")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for _, path := range []string{"/api/v1/tabs/1/stats", "/api/v1/tabs/2/stats", "/health"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	endpoints := map[string]int64{}
	var durations uint64
	foundSize := false
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch md.Name {
			case "focusfuel.http.requests_total":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("endpoint"))
					endpoints[v.AsString()] += dp.Value
				}
			case "focusfuel.http.request_duration_seconds":
				hist, ok := md.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				for _, dp := range hist.DataPoints {
					durations += dp.Count
				}
			case "focusfuel.http.response_size_bytes":
				foundSize = true
			}
		}
	}

	assert.Equal(t, map[string]int64{"/api/v1/tabs/:id/stats": 2, "/health": 1}, endpoints)
	assert.Equal(t, uint64(3), durations)
	assert.True(t, foundSize)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "unmatched", routeLabel(""))
	assert.Equal(t, "/api/v1/tabs/:id/classify", routeLabel("/api/v1/tabs/:id/classify"))
}
