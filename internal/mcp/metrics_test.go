package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/sink"
)

func newTestToolMetrics(t *testing.T) (*toolMetrics, func() map[string]metricdata.Metrics) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	collect := func() map[string]metricdata.Metrics {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		out := make(map[string]metricdata.Metrics)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				out[m.Name] = m
			}
		}
		return out
	}
	return newToolMetrics(mp.Meter(instrumentationName), zap.NewNop()), collect
}

func total(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var n int64
	for _, dp := range sum.DataPoints {
		n += dp.Value
	}
	return n
}

func TestToolMetrics_Track(t *testing.T) {
	m, collect := newTestToolMetrics(t)
	ctx := context.Background()

	done := m.track(ctx, "list_tabs")
	assert.Equal(t, int64(1), total(t, collect()["focusfuel.mcp.tool.active_requests"]))

	var err error
	done(&err)
	got := collect()
	assert.Equal(t, int64(0), total(t, got["focusfuel.mcp.tool.active_requests"]))
	assert.Equal(t, int64(1), total(t, got["focusfuel.mcp.tool.invocations_total"]))
	assert.Contains(t, got, "focusfuel.mcp.tool.duration_seconds")
	assert.NotContains(t, got, "focusfuel.mcp.tool.errors_total")
}

func TestToolMetrics_TrackFailure(t *testing.T) {
	m, collect := newTestToolMetrics(t)
	ctx := context.Background()

	err := fmt.Errorf("classify: %w", activity.ErrUnknownTab)
	m.track(ctx, "classify_tab")(&err)
	m.track(ctx, "classify_tab")(nil)

	got := collect()
	assert.Equal(t, int64(2), total(t, got["focusfuel.mcp.tool.invocations_total"]))

	failures := got["focusfuel.mcp.tool.errors_total"].Data.(metricdata.Sum[int64])
	require.Len(t, failures.DataPoints, 1)
	reason, ok := failures.DataPoints[0].Attributes.Value(attribute.Key("reason"))
	require.True(t, ok)
	assert.Equal(t, "not_found", reason.AsString())
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: fmt.Errorf("tab 3: %w", activity.ErrUnknownTab), want: "not_found"},
		{err: fmt.Errorf("x: %w", sink.ErrUnknownNotification), want: "not_found"},
		{err: fmt.Errorf("tab 3: %w", activity.ErrDwellTooShort), want: "too_early"},
		{err: fmt.Errorf("domain is required: %w", errInvalidInput), want: "validation_error"},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: errors.New("boom"), want: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, failureReason(tt.err))
		})
	}
}
