package http

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/focusfuel/internal/http"

type requestMetrics struct {
	requests metric.Int64Counter
	inflight metric.Int64UpDownCounter
	latency  metric.Float64Histogram
	size     metric.Int64Histogram
}

func newRequestMetrics(meter metric.Meter, logger *zap.Logger) *requestMetrics {
	m := &requestMetrics{}
	var err, all error

	m.requests, err = meter.Int64Counter("focusfuel.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status"), metric.WithUnit("{request}"))
	all = errors.Join(all, err)
	m.inflight, err = meter.Int64UpDownCounter("focusfuel.http.active_requests",
		metric.WithDescription("HTTP requests in progress"), metric.WithUnit("{request}"))
	all = errors.Join(all, err)
	m.latency, err = meter.Float64Histogram("focusfuel.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.025, 0.1, 0.5, 1, 5))
	all = errors.Join(all, err)
	m.size, err = meter.Int64Histogram("focusfuel.http.response_size_bytes",
		metric.WithDescription("HTTP response body size"), metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(128, 512, 2048, 8192, 32768, 131072))
	all = errors.Join(all, err)

	if all != nil {
		logger.Warn("http metrics partially unavailable", zap.Error(all))
	}
	return m
}

// middleware labels requests by route template, never by raw path, so tab
// ids do not become label values.
func (m *requestMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			if m.inflight != nil {
				m.inflight.Add(ctx, 1)
				defer m.inflight.Add(ctx, -1)
			}

			err := next(c)

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", routeLabel(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.size != nil {
				m.size.Record(ctx, c.Response().Size, attrs)
			}
			return err
		}
	}
}

func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
