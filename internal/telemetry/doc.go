// Package telemetry sets up OpenTelemetry tracing and metrics for focusfuel.
//
// Telemetry is off by default. When enabled it exports over OTLP (gRPC or
// HTTP) and installs the providers globally, so packages that call
// otel.Tracer pick them up. Failures to build an exporter mark the instance
// degraded instead of failing startup.
//
//	telemetry:
//	  enabled: true
//	  endpoint: localhost:4317
//	  protocol: grpc        # or http/protobuf
//	  sample_rate: 0.25
//
// Tests use TestTelemetry with an in-memory span recorder:
//
//	tt := telemetry.NewTestTelemetry()
//	p := classifier.New(lists, cfg, classifier.WithTracer(tt.Tracer("test")))
//	p.Classify(ctx, snap)
//	tt.AssertSpanAttribute(t, "classifier.Classify", "focus.source", "list")
package telemetry
