package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans and metrics in memory. It is never installed
// globally, so pass its Tracer or Meter to the code under test.
type TestTelemetry struct {
	*Telemetry

	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

func NewTestTelemetry() *TestTelemetry {
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	cfg := DefaultConfig()
	cfg.Enabled = true
	return &TestTelemetry{
		Telemetry: &Telemetry{
			cfg:      cfg,
			tracers:  tp,
			meters:   mp,
			shutdown: []func(context.Context) error{tp.Shutdown, mp.Shutdown},
		},
		spans:  spans,
		reader: reader,
	}
}

// Span returns the first ended span called name.
func (tt *TestTelemetry) Span(name string) (sdktrace.ReadOnlySpan, bool) {
	for _, s := range tt.spans.Ended() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Collect reads the current value of every instrument.
func (tt *TestTelemetry) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := tt.reader.Collect(ctx, &rm)
	return rm, err
}

func (tt *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if _, ok := tt.Span(name); !ok {
		var names []string
		for _, s := range tt.spans.Ended() {
			names = append(names, s.Name())
		}
		tb.Errorf("no span %q among %v", name, names)
	}
}

// AssertSpanAttribute compares using the attribute's Go value: string,
// int64, float64 or bool.
func (tt *TestTelemetry) AssertSpanAttribute(tb testing.TB, span, key string, want any) {
	tb.Helper()
	s, ok := tt.Span(span)
	if !ok {
		tb.Fatalf("no span %q", span)
	}
	for _, kv := range s.Attributes() {
		if kv.Key != attribute.Key(key) {
			continue
		}
		if got := kv.Value.AsInterface(); got != want {
			tb.Errorf("span %q %s = %v (%T), want %v (%T)", span, key, got, got, want, want)
		}
		return
	}
	tb.Errorf("span %q has no attribute %q", span, key)
}
