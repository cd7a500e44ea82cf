// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !strings.HasSuffix(cfg.Paths.Socket, "shell.sock") {
		t.Errorf("expected socket=.../shell.sock, got %s", cfg.Paths.Socket)
	}

	if !strings.HasSuffix(cfg.Paths.DiagnosticsSocket, "diag.sock") {
		t.Errorf("expected diagnostics_socket=.../diag.sock, got %s", cfg.Paths.DiagnosticsSocket)
	}

	if cfg.Transport.QueueSize != 256 {
		t.Errorf("expected queue_size=256, got %d", cfg.Transport.QueueSize)
	}

	if cfg.Transport.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Transport.Compression)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected level=info, got %s", cfg.Log.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresMullionConfig(t *testing.T) {
	// Save and restore MULLION_CONFIG.
	origConfig := os.Getenv("MULLION_CONFIG")
	defer os.Setenv("MULLION_CONFIG", origConfig)

	// Unset MULLION_CONFIG - Load() should fail.
	os.Unsetenv("MULLION_CONFIG")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when MULLION_CONFIG not set, got nil")
	}

	expectedMsg := "MULLION_CONFIG environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mullion.yaml")

	configContent := `
paths:
  socket: /custom/shell.sock
  manifest: /custom/panels.jsonc

transport:
  compression: lz4
  queue_size: 32

log:
  level: debug
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Socket != "/custom/shell.sock" {
		t.Errorf("expected socket=/custom/shell.sock, got %s", cfg.Paths.Socket)
	}

	if cfg.Paths.Manifest != "/custom/panels.jsonc" {
		t.Errorf("expected manifest=/custom/panels.jsonc, got %s", cfg.Paths.Manifest)
	}

	if cfg.Transport.Compression != "lz4" {
		t.Errorf("expected compression=lz4, got %s", cfg.Transport.Compression)
	}

	if cfg.Transport.QueueSize != 32 {
		t.Errorf("expected queue_size=32, got %d", cfg.Transport.QueueSize)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected level=debug, got %s", cfg.Log.Level)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Transport.CompressThreshold != 4096 {
		t.Errorf("expected compress_threshold=4096, got %d", cfg.Transport.CompressThreshold)
	}

	if cfg.Trace.RingSize != 1024 {
		t.Errorf("expected ring_size=1024, got %d", cfg.Trace.RingSize)
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("MULLION_TEST_DIR", "/from-env")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mullion.yaml")

	configContent := `
paths:
  socket: ${MULLION_TEST_DIR}/shell.sock
  diagnostics_socket: ${MULLION_TEST_UNSET:-/fallback}/diag.sock
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Socket != "/from-env/shell.sock" {
		t.Errorf("expected socket=/from-env/shell.sock, got %s", cfg.Paths.Socket)
	}

	if cfg.Paths.DiagnosticsSocket != "/fallback/diag.sock" {
		t.Errorf("expected diagnostics_socket=/fallback/diag.sock, got %s", cfg.Paths.DiagnosticsSocket)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing socket",
			mutate:  func(c *Config) { c.Paths.Socket = "" },
			wantErr: "paths.socket is required",
		},
		{
			name:    "zero queue size",
			mutate:  func(c *Config) { c.Transport.QueueSize = 0 },
			wantErr: "transport.queue_size must be positive",
		},
		{
			name:    "unknown compression",
			mutate:  func(c *Config) { c.Transport.Compression = "gzip" },
			wantErr: "transport.compression must be one of",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Transport.CompressThreshold = -1 },
			wantErr: "transport.compress_threshold must not be negative",
		},
		{
			name:    "unparseable write timeout",
			mutate:  func(c *Config) { c.Transport.WriteTimeout = "soon" },
			wantErr: "transport.write_timeout",
		},
		{
			name:    "zero write timeout",
			mutate:  func(c *Config) { c.Transport.WriteTimeout = "0s" },
			wantErr: "transport.write_timeout must be positive",
		},
		{
			name:    "zero ring size",
			mutate:  func(c *Config) { c.Trace.RingSize = 0 },
			wantErr: "trace.ring_size must be positive",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: "log.level must be one of",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("expected error containing %q, got %q", test.wantErr, err.Error())
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Paths.Socket = ""
	cfg.Transport.QueueSize = -1
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	for _, want := range []string{"paths.socket", "transport.queue_size", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected combined error to mention %s, got %q", want, err.Error())
		}
	}
}

func TestWriteTimeout(t *testing.T) {
	cfg := Default()
	cfg.Transport.WriteTimeout = "250ms"

	if got, want := cfg.WriteTimeout(), 250*time.Millisecond; got != want {
		t.Errorf("expected write timeout %s, got %s", want, got)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}

	for _, test := range tests {
		cfg := Default()
		cfg.Log.Level = test.level
		if got := cfg.LogLevel().String(); got != test.want {
			t.Errorf("LogLevel(%s) = %s, want %s", test.level, got, test.want)
		}
	}
}

func TestEnsureSocketDirs(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Paths.Socket = filepath.Join(tmpDir, "run", "shell.sock")
	cfg.Paths.DiagnosticsSocket = filepath.Join(tmpDir, "run", "diag", "diag.sock")

	if err := cfg.EnsureSocketDirs(); err != nil {
		t.Fatalf("EnsureSocketDirs failed: %v", err)
	}

	for _, dir := range []string{
		filepath.Join(tmpDir, "run"),
		filepath.Join(tmpDir, "run", "diag"),
	} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("expected %s to be a directory", dir)
		}
	}
}
