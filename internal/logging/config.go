package logging

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/focusfuel/internal/config"
)

// Config holds logging configuration.
type Config struct {
	Level      zapcore.Level
	Format     string // json or console
	Output     OutputConfig
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace StacktraceConfig
	// Fields are attached to every entry.
	Fields    map[string]string
	Redaction RedactionConfig
}

// OutputConfig selects log destinations.
type OutputConfig struct {
	Stdout bool
	// Stderr sends console output to stderr, for processes that own stdout.
	Stderr bool
	OTEL   bool
}

// SamplingConfig limits repeated entries below Error: per Tick, the first
// Initial entries with a given level and message are kept, then every
// Thereafter-th (0 drops the rest).
type SamplingConfig struct {
	Enabled    bool
	Tick       config.Duration
	Initial    int
	Thereafter int
}

type CallerConfig struct {
	Enabled bool
	Skip    int
}

type StacktraceConfig struct {
	Level zapcore.Level
}

// RedactionConfig lists field names whose values are always hidden and
// value patterns that hide any string field they match.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

const maxPatternLen = 200

// NewDefaultConfig returns the daemon's defaults: JSON on stdout at Info,
// sampled, with API keys and bearer tokens redacted.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Stdout: true},
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       config.D(time.Second),
			Initial:    100,
			Thereafter: 10,
		},
		Caller:     CallerConfig{Enabled: true, Skip: 1},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Fields:     map[string]string{"service": "focusfuel"},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"api_key", "ai.api_key", "authorization", "token",
				"password", "secret", "credential",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
				`\bsk-[A-Za-z0-9_-]{8,}`,
			},
		},
	}
}

// FromConfig builds a logging config from the logging section of the
// focusfuel config. Settings the section does not cover keep their
// NewDefaultConfig values.
func FromConfig(c config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()

	if c.Level != "" {
		lvl, err := LevelFromString(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
		cfg.Level = lvl
	}
	if c.Format != "" {
		cfg.Format = c.Format
	}
	cfg.Output.Stdout = c.Stdout
	cfg.Output.OTEL = c.OTEL
	cfg.Sampling.Enabled = c.Sampling
	for k, v := range c.Fields {
		cfg.Fields[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("format must be json or console, got %q", c.Format)
	}
	if !c.Output.Stdout && !c.Output.Stderr && !c.Output.OTEL {
		return errors.New("at least one output must be enabled (stdout, stderr or otel)")
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			return errors.New("sampling tick must be positive")
		}
		if c.Sampling.Initial < 0 || c.Sampling.Thereafter < 0 {
			return errors.New("sampling counts must not be negative")
		}
	}
	if c.Caller.Skip < 0 {
		return fmt.Errorf("caller skip must not be negative, got %d", c.Caller.Skip)
	}
	if c.Redaction.Enabled {
		if _, err := compilePatterns(c.Redaction.Patterns); err != nil {
			return err
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			return fmt.Errorf("constant field %q=%q: key and value are required", k, v)
		}
	}
	return nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
