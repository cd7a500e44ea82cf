// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the mullion-shell daemon configuration.
type Config struct {
	// Paths configures the sockets and the panel manifest.
	Paths PathsConfig `yaml:"paths"`

	// Transport configures per-connection framing.
	Transport TransportConfig `yaml:"transport"`

	// Trace configures the diagnostics trace ring.
	Trace TraceConfig `yaml:"trace"`

	// Log configures the daemon logger.
	Log LogConfig `yaml:"log"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// Socket is the Unix socket windows connect to.
	// Default: $XDG_RUNTIME_DIR/mullion/shell.sock
	Socket string `yaml:"socket"`

	// DiagnosticsSocket is the Unix socket status and trace clients
	// connect to. Empty disables the diagnostics listener.
	// Default: $XDG_RUNTIME_DIR/mullion/diag.sock
	DiagnosticsSocket string `yaml:"diagnostics_socket"`

	// Manifest is the panel manifest file (JSONC). Empty means no
	// panels are declared; send-to-panel then resolves nothing.
	Manifest string `yaml:"manifest"`
}

// TransportConfig configures per-connection framing.
type TransportConfig struct {
	// QueueSize is the per-connection outbound queue depth. A full
	// queue drops frames rather than blocking the sender.
	// Default: 256
	QueueSize int `yaml:"queue_size"`

	// Compression selects the frame compression algorithm.
	// Values: "none", "lz4", "zstd"
	// Default: zstd
	Compression string `yaml:"compression"`

	// CompressThreshold is the minimum encoded frame size, in bytes,
	// before compression applies. Default: 4096
	CompressThreshold int `yaml:"compress_threshold"`

	// WriteTimeout bounds a single frame write on a connection.
	// A duration string ("10s", "500ms"). Default: 10s
	WriteTimeout string `yaml:"write_timeout"`
}

// TraceConfig configures the diagnostics trace ring.
type TraceConfig struct {
	// RingSize is how many recent envelope records the trace ring
	// retains for the diagnostics socket. Default: 1024
	RingSize int `yaml:"ring_size"`
}

// LogConfig configures the daemon logger.
type LogConfig struct {
	// Level is the minimum level emitted.
	// Values: "debug", "info", "warn", "error"
	// Default: info
	Level string `yaml:"level"`
}

// runtimeDir returns the per-user runtime directory for Mullion
// sockets: $XDG_RUNTIME_DIR/mullion, falling back to the system temp
// directory when XDG_RUNTIME_DIR is unset.
func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "mullion")
	}
	return filepath.Join(os.TempDir(), "mullion")
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file, so a minimal file only
// needs the values it changes.
func Default() *Config {
	dir := runtimeDir()

	return &Config{
		Paths: PathsConfig{
			Socket:            filepath.Join(dir, "shell.sock"),
			DiagnosticsSocket: filepath.Join(dir, "diag.sock"),
			Manifest:          "",
		},
		Transport: TransportConfig{
			QueueSize:         256,
			Compression:       "zstd",
			CompressThreshold: 4096,
			WriteTimeout:      "10s",
		},
		Trace: TraceConfig{
			RingSize: 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the MULLION_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks - if MULLION_CONFIG is not set, this
// fails. This ensures deterministic, auditable configuration with no
// hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("MULLION_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("MULLION_CONFIG environment variable not set; " +
			"set it to the path of your mullion.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values. The only expansion
// performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_RUNTIME_DIR": os.Getenv("XDG_RUNTIME_DIR"),
	}

	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Paths.DiagnosticsSocket = expandVars(c.Paths.DiagnosticsSocket, vars)
	c.Paths.Manifest = expandVars(c.Paths.Manifest, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// compressionValues are the accepted transport.compression spellings.
// The transport package owns the authoritative parse; this list keeps
// config validation self-contained so a bad value surfaces before the
// broker starts.
var compressionValues = []string{"none", "lz4", "zstd"}

// levelValues are the accepted log.level spellings.
var levelValues = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors. All problems are
// reported at once so the author fixes the file in one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Socket == "" {
		errs = append(errs, fmt.Errorf("paths.socket is required"))
	}

	if c.Transport.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("transport.queue_size must be positive, got %d", c.Transport.QueueSize))
	}
	if !contains(compressionValues, c.Transport.Compression) {
		errs = append(errs, fmt.Errorf("transport.compression must be one of: %v", compressionValues))
	}
	if c.Transport.CompressThreshold < 0 {
		errs = append(errs, fmt.Errorf("transport.compress_threshold must not be negative, got %d", c.Transport.CompressThreshold))
	}
	if timeout, err := time.ParseDuration(c.Transport.WriteTimeout); err != nil {
		errs = append(errs, fmt.Errorf("transport.write_timeout: %w", err))
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("transport.write_timeout must be positive, got %s", timeout))
	}

	if c.Trace.RingSize <= 0 {
		errs = append(errs, fmt.Errorf("trace.ring_size must be positive, got %d", c.Trace.RingSize))
	}

	if !contains(levelValues, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levelValues))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WriteTimeout returns transport.write_timeout as a duration. Call
// Validate first; this panics on an unparseable value.
func (c *Config) WriteTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Transport.WriteTimeout)
	if err != nil {
		panic(fmt.Sprintf("config: write_timeout %q not validated: %v", c.Transport.WriteTimeout, err))
	}
	return timeout
}

// LogLevel returns log.level as a slog.Level. Call Validate first;
// unknown values fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnsureSocketDirs creates the parent directories of the configured
// sockets. Runtime directories are per-user, hence 0700.
func (c *Config) EnsureSocketDirs() error {
	dirs := []string{filepath.Dir(c.Paths.Socket)}
	if c.Paths.DiagnosticsSocket != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.DiagnosticsSocket))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
