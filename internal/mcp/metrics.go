package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/sink"
)

const instrumentationName = "github.com/fyrsmithlabs/focusfuel/internal/mcp"

// toolMetrics counts tool calls by tool name. An instrument that fails to
// register stays nil and is skipped.
type toolMetrics struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	inflight metric.Int64UpDownCounter
	latency  metric.Float64Histogram
}

func newToolMetrics(meter metric.Meter, logger *zap.Logger) *toolMetrics {
	m := &toolMetrics{}
	var errs []error
	keep := func(err error) { errs = append(errs, err) }

	var err error
	m.calls, err = meter.Int64Counter("focusfuel.mcp.tool.invocations_total",
		metric.WithDescription("MCP tool calls"), metric.WithUnit("{call}"))
	keep(err)
	m.failures, err = meter.Int64Counter("focusfuel.mcp.tool.errors_total",
		metric.WithDescription("MCP tool calls that returned an error, by reason"), metric.WithUnit("{call}"))
	keep(err)
	m.inflight, err = meter.Int64UpDownCounter("focusfuel.mcp.tool.active_requests",
		metric.WithDescription("MCP tool calls in progress"), metric.WithUnit("{call}"))
	keep(err)
	m.latency, err = meter.Float64Histogram("focusfuel.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool call latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 10))
	keep(err)

	if err := errors.Join(errs...); err != nil {
		logger.Warn("mcp metrics partially unavailable", zap.Error(err))
	}
	return m
}

// track marks a call to tool in flight. The returned func ends it; pass
// the handler's error result.
func (m *toolMetrics) track(ctx context.Context, tool string) func(*error) {
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	if m.inflight != nil {
		m.inflight.Add(ctx, 1, attrs)
	}
	return func(errp *error) {
		if m.inflight != nil {
			m.inflight.Add(ctx, -1, attrs)
		}
		if m.calls != nil {
			m.calls.Add(ctx, 1, attrs)
		}
		if m.latency != nil {
			m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		if errp == nil || *errp == nil || m.failures == nil {
			return
		}
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("reason", failureReason(*errp)),
		))
	}
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, activity.ErrUnknownTab), errors.Is(err, sink.ErrUnknownNotification):
		return "not_found"
	case errors.Is(err, activity.ErrDwellTooShort):
		return "too_early"
	case errors.Is(err, errInvalidInput):
		return "validation_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal_error"
	}
}
