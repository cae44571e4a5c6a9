package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry holds the process's tracer and meter providers. A nil or
// disabled Telemetry hands out the global (no-op unless installed)
// providers, so callers never branch on whether export is configured.
type Telemetry struct {
	cfg *Config

	tracers trace.TracerProvider
	meters  metric.MeterProvider

	// shutdown runs in reverse registration order.
	shutdown []func(context.Context) error

	mu      sync.Mutex
	reasons []string
}

// New builds providers for cfg and installs them globally. An invalid
// config is an error; an exporter that cannot be built only degrades the
// instance so the daemon still starts.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("telemetry config: %w", err)
	}
	t := &Telemetry{cfg: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res := serviceResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.degrade("traces disabled: %v", err)
	} else {
		t.tracers = tp
		t.shutdown = append(t.shutdown, tp.Shutdown)
		otel.SetTracerProvider(tp)
	}

	if cfg.Metrics {
		if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
			t.degrade("metrics disabled: %v", err)
		} else {
			t.meters = mp
			t.shutdown = append(t.shutdown, mp.Shutdown)
			otel.SetMeterProvider(mp)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if t == nil || t.tracers == nil {
		return otel.Tracer(name, opts...)
	}
	return t.tracers.Tracer(name, opts...)
}

func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.meters == nil {
		return otel.Meter(name, opts...)
	}
	return t.meters.Meter(name, opts...)
}

// LoggerProvider is the provider the zap bridge writes to, or nil when
// telemetry is off.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.cfg == nil || !t.cfg.Enabled {
		return nil
	}
	return global.GetLoggerProvider()
}

// Enabled reports whether any exporter is running.
func (t *Telemetry) Enabled() bool {
	return t != nil && len(t.shutdown) > 0
}

// DegradedReasons lists the exporters that failed to start.
func (t *Telemetry) DegradedReasons() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.reasons...)
}

// Shutdown flushes and stops every provider. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.cfg != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.ShutdownTimeout)
		defer cancel()
	}
	var errs []error
	for i := len(t.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, t.shutdown[i](ctx))
	}
	t.shutdown = nil
	return errors.Join(errs...)
}

func (t *Telemetry) degrade(format string, args ...any) {
	t.mu.Lock()
	t.reasons = append(t.reasons, fmt.Sprintf(format, args...))
	t.mu.Unlock()
}
