package telemetry

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fyrsmithlabs/focusfuel/internal/config"
)

// Protocol selects the OTLP transport.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http/protobuf"
)

// Config is the resolved telemetry setup for one process.
type Config struct {
	Enabled        bool
	Endpoint       string
	Protocol       Protocol
	Insecure       bool
	TLSSkipVerify  bool
	ServiceName    string
	ServiceVersion string

	// SampleRate is the head sampling ratio for root spans.
	SampleRate float64

	Metrics        bool
	ExportInterval time.Duration

	ShutdownTimeout time.Duration
}

// DefaultConfig is disabled, pointed at a local collector.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:        "localhost:4317",
		Protocol:        ProtocolGRPC,
		Insecure:        true,
		ServiceName:     "focusfuel",
		ServiceVersion:  "dev",
		SampleRate:      1,
		Metrics:         true,
		ExportInterval:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FromConfig maps the telemetry section of the daemon config onto the
// defaults. version overrides the service version when non-empty.
func FromConfig(c config.TelemetryConfig, version string) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = c.Enabled
	cfg.Insecure = c.Insecure
	cfg.TLSSkipVerify = c.TLSSkipVerify
	cfg.SampleRate = c.SampleRate
	cfg.Metrics = c.MetricsEnabled
	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}
	if c.Protocol != "" {
		cfg.Protocol = Protocol(c.Protocol)
	}
	if c.ServiceName != "" {
		cfg.ServiceName = c.ServiceName
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	if d := c.ExportInterval.Duration(); d > 0 {
		cfg.ExportInterval = d
	}
	return cfg
}

// Validate reports every problem with an enabled config at once. A
// disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	} else if c.Insecure && !isLoopback(c.Endpoint) {
		errs = append(errs, fmt.Errorf("insecure export to non-local endpoint %q is not allowed", c.Endpoint))
	}
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	switch c.Protocol {
	case ProtocolGRPC, ProtocolHTTP:
	default:
		errs = append(errs, fmt.Errorf("protocol must be %q or %q, got %q", ProtocolGRPC, ProtocolHTTP, c.Protocol))
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate must be within [0, 1], got %g", c.SampleRate))
	}
	if c.Metrics && c.ExportInterval <= 0 {
		errs = append(errs, errors.New("export interval must be positive when metrics are enabled"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	return errors.Join(errs...)
}

// isLoopback reports whether endpoint (host, host:port or a URL) names
// this machine.
func isLoopback(endpoint string) bool {
	host := trimScheme(endpoint)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// trimScheme strips http:// or https://; the OTLP exporters want host:port.
func trimScheme(endpoint string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(endpoint, scheme); ok {
			return rest
		}
	}
	return endpoint
}
