package logging

import (
	"errors"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationName = "github.com/fyrsmithlabs/focusfuel"

// newCore assembles the console and OpenTelemetry outputs selected by cfg
// and applies sampling to the result.
func newCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Output.Stdout || cfg.Output.Stderr {
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, err
		}
		sink := os.Stdout
		if cfg.Output.Stderr {
			sink = os.Stderr
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(sink), cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(otelProvider)))
	}

	if len(cores) == 0 {
		return nil, errors.New("no log output available: console disabled and no OpenTelemetry provider")
	}
	return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// newSampledCore samples entries below Error. Error and above always reach
// core.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	return &errorBypassCore{
		Core:    core,
		sampled: zapcore.NewSamplerWithOptions(core, cfg.Tick.Duration(), cfg.Initial, cfg.Thereafter),
	}
}

// errorBypassCore routes entries below Error through a sampler and writes
// the rest straight to the embedded core.
type errorBypassCore struct {
	zapcore.Core
	sampled zapcore.Core
}

func (c *errorBypassCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.Level >= zapcore.ErrorLevel {
		return c.Core.Check(e, ce)
	}
	return c.sampled.Check(e, ce)
}

func (c *errorBypassCore) With(fields []zapcore.Field) zapcore.Core {
	return &errorBypassCore{
		Core:    c.Core.With(fields),
		sampled: c.sampled.With(fields),
	}
}
