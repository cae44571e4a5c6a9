package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FOCUSFUEL_"
)

// defaultsYAML is loaded before the config file so booleans that default
// to true can still be turned off.
const defaultsYAML = `
server:
  host: localhost
  http_port: 9191
  shutdown_timeout: 10s
tracking:
  min_dwell: 5s
  idle_window: 5m
  sweep_interval: 1m
classifier:
  sensitivity: medium
  pattern_threshold: 80
  ai_timeout: 10s
domains:
  watch: true
  defaults: true
ai:
  provider: disabled
  rate_per_minute: 50
  max_retries: 2
  http_timeout: 30s
nats:
  subject_prefix: focusfuel
  name: focusfuel
notify:
  threshold: 70
  cooldown: 5m
logging:
  level: info
  format: json
  stdout: true
  otel: false
  sampling: true
telemetry:
  enabled: false
  endpoint: localhost:4317
  protocol: grpc
  insecure: true
  service_name: focusfuel
  sample_rate: 1.0
  metrics_enabled: true
  export_interval: 15s
`

// DefaultPath returns ~/.config/focusfuel/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "focusfuel", "config.yaml"), nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(defaultsYAML)), yaml.Parser()); err != nil {
		panic(fmt.Sprintf("config: invalid built-in defaults: %v", err))
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config: invalid built-in defaults: %v", err))
	}
	return &cfg
}

// Load loads configuration from defaults, then the YAML file, then
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FOCUSFUEL_SERVER_HTTP_PORT, FOCUSFUEL_AI_API_KEY, ...)
//  2. YAML config file (~/.config/focusfuel/config.yaml)
//  3. Built-in defaults
//
// A missing file is not an error. An existing file must be owner-only
// (0600 or 0400), at most 1MB, and live under ~/.config/focusfuel/ or
// /etc/focusfuel/.
//
// Environment variables map onto section.field_name by splitting on the
// first underscore after the prefix:
//
//	FOCUSFUEL_SERVER_HTTP_PORT     -> server.http_port
//	FOCUSFUEL_CLASSIFIER_AI_TIMEOUT -> classifier.ai_timeout
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultsYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps FOCUSFUEL_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile opens the file once and validates it through the open
// descriptor to avoid a stat/read race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// EnsureConfigDir creates ~/.config/focusfuel with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(home, ".config", "focusfuel")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks the path is inside an allowed directory. It
// runs even when the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	allowedDirs := []string{
		filepath.Join(home, ".config", "focusfuel"),
		"/etc/focusfuel",
	}
	for _, dir := range allowedDirs {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/focusfuel/ or /etc/focusfuel/")
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
