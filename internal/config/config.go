// Package config provides configuration loading for focusfuel.
//
// Configuration is read from a YAML file and overridden by FOCUSFUEL_*
// environment variables. Every section has defaults, so an empty file (or
// no file) yields a working heuristics-only configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds the complete focusfuel configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Tracking   TrackingConfig   `koanf:"tracking"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Domains    DomainsConfig    `koanf:"domains"`
	AI         AIConfig         `koanf:"ai"`
	NATS       NATSConfig       `koanf:"nats"`
	Store      StoreConfig      `koanf:"store"`
	Notify     NotifyConfig     `koanf:"notify"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// TrackingConfig controls per-tab session tracking.
type TrackingConfig struct {
	// MinDwell is the minimum session age before a snapshot is produced.
	MinDwell Duration `koanf:"min_dwell"`
	// IdleWindow excludes sessions idle longer than this from sweeps.
	IdleWindow    Duration `koanf:"idle_window"`
	SweepInterval Duration `koanf:"sweep_interval"`
}

// ClassifierConfig controls the classification pipeline.
type ClassifierConfig struct {
	Sensitivity      string   `koanf:"sensitivity"`
	PatternThreshold int      `koanf:"pattern_threshold"`
	AITimeout        Duration `koanf:"ai_timeout"`
}

// DomainsConfig controls the blacklist and whitelist.
type DomainsConfig struct {
	File      string   `koanf:"file"`
	Watch     bool     `koanf:"watch"`
	Defaults  bool     `koanf:"defaults"`
	Blacklist []string `koanf:"blacklist"`
	Whitelist []string `koanf:"whitelist"`
}

// AIConfig selects the optional model-backed classifier.
type AIConfig struct {
	Provider      string   `koanf:"provider"`
	Model         string   `koanf:"model"`
	APIKey        Secret   `koanf:"api_key"`
	BaseURL       string   `koanf:"base_url"`
	RatePerMinute float64  `koanf:"rate_per_minute"`
	MaxRetries    int      `koanf:"max_retries"`
	HTTPTimeout   Duration `koanf:"http_timeout"`
}

// NATSConfig controls event publishing. An empty URL disables publishing.
type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
	Name          string `koanf:"name"`
}

// StoreConfig controls event persistence. An empty path keeps events in memory.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// NotifyConfig controls distraction notifications.
type NotifyConfig struct {
	Threshold int      `koanf:"threshold"`
	Cooldown  Duration `koanf:"cooldown"`
}

// LoggingConfig is the file/env form of logging settings.
type LoggingConfig struct {
	Level    string            `koanf:"level"`
	Format   string            `koanf:"format"`
	Stdout   bool              `koanf:"stdout"`
	OTEL     bool              `koanf:"otel"`
	Sampling bool              `koanf:"sampling"`
	Fields   map[string]string `koanf:"fields"`
}

// TelemetryConfig is the file/env form of OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	Protocol       string   `koanf:"protocol"`
	Insecure       bool     `koanf:"insecure"`
	TLSSkipVerify  bool     `koanf:"tls_skip_verify"`
	ServiceName    string   `koanf:"service_name"`
	SampleRate     float64  `koanf:"sample_rate"`
	MetricsEnabled bool     `koanf:"metrics_enabled"`
	ExportInterval Duration `koanf:"export_interval"`
}

var (
	validSensitivities = []string{"low", "medium", "high"}
	validProviders     = []string{"disabled", "openai", "anthropic", "ollama"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	if c.Tracking.MinDwell <= 0 {
		return errors.New("tracking.min_dwell must be positive")
	}
	if c.Tracking.IdleWindow <= 0 {
		return errors.New("tracking.idle_window must be positive")
	}
	if c.Tracking.SweepInterval <= 0 {
		return errors.New("tracking.sweep_interval must be positive")
	}

	if !oneOf(strings.ToLower(c.Classifier.Sensitivity), validSensitivities) {
		return fmt.Errorf("classifier.sensitivity must be one of %v, got %q", validSensitivities, c.Classifier.Sensitivity)
	}
	if c.Classifier.PatternThreshold < 1 || c.Classifier.PatternThreshold > 100 {
		return fmt.Errorf("classifier.pattern_threshold must be 1-100, got %d", c.Classifier.PatternThreshold)
	}
	if c.Classifier.AITimeout <= 0 {
		return errors.New("classifier.ai_timeout must be positive")
	}

	if !oneOf(c.AI.Provider, validProviders) {
		return fmt.Errorf("ai.provider must be one of %v, got %q", validProviders, c.AI.Provider)
	}
	if (c.AI.Provider == "openai" || c.AI.Provider == "anthropic") && !c.AI.APIKey.IsSet() {
		return fmt.Errorf("ai.api_key is required for provider %q", c.AI.Provider)
	}
	if c.AI.RatePerMinute < 0 {
		return errors.New("ai.rate_per_minute cannot be negative")
	}

	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		return errors.New("nats.subject_prefix is required when nats.url is set")
	}

	if c.Notify.Threshold < 1 || c.Notify.Threshold > 100 {
		return fmt.Errorf("notify.threshold must be 1-100, got %d", c.Notify.Threshold)
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
	}

	return nil
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
