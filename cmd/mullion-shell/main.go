// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Mullion-shell is the coordinating process of a Mullion application.
// It owns the window socket and routes every message between window
// processes: broadcasts, targeted sends, panel-addressed sends, and
// correlated request/reply traffic.
//
// On startup:
//  1. Loads configuration (--config flag, then $MULLION_CONFIG, then
//     built-in defaults).
//  2. Loads the panel manifest, when configured, into the panel table
//     and watches it for changes.
//  3. Binds the window socket and the diagnostics socket.
//  4. Serves window connections until SIGINT or SIGTERM.
//
// The daemon registers one built-in request handler,
// "mullion.shell.ping", which replies with the daemon's version.
// Everything else on the shell side is application code registered on
// the broker's fabric; this binary is the transport and routing core
// only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/config"
	"github.com/mullion-foundation/mullion/lib/manifest"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/lib/version"
	"github.com/mullion-foundation/mullion/shell"
	"github.com/mullion-foundation/mullion/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		socketPath   string
		diagSocket   string
		manifestPath string
		logLevel     string
		showVersion  bool
	)

	flag.StringVar(&configPath, "config", "", "path to mullion.yaml (default: $MULLION_CONFIG, then built-in defaults)")
	flag.StringVar(&socketPath, "socket", "", "window socket path (overrides config)")
	flag.StringVar(&diagSocket, "diagnostics-socket", "", "diagnostics socket path (overrides config)")
	flag.StringVar(&manifestPath, "manifest", "", "panel manifest path (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "minimum log level: debug, info, warn, error (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("mullion-shell %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if socketPath != "" {
		cfg.Paths.Socket = socketPath
	}
	if diagSocket != "" {
		cfg.Paths.DiagnosticsSocket = diagSocket
	}
	if manifestPath != "" {
		cfg.Paths.Manifest = manifestPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureSocketDirs(); err != nil {
		return fmt.Errorf("preparing socket directories: %w", err)
	}

	var panelKinds map[ref.PanelID]fabric.PanelKind
	if cfg.Paths.Manifest != "" {
		panelKinds, err = manifest.Load(cfg.Paths.Manifest)
		if err != nil {
			return fmt.Errorf("loading panel manifest: %w", err)
		}
		logger.Info("panel manifest loaded",
			"path", cfg.Paths.Manifest,
			"panels", len(panelKinds),
		)
	}

	compression, err := transport.ParseCompressionTag(cfg.Transport.Compression)
	if err != nil {
		return fmt.Errorf("config transport.compression: %w", err)
	}

	broker := shell.NewBroker(shell.Options{
		SocketPath:            cfg.Paths.Socket,
		DiagnosticsSocketPath: cfg.Paths.DiagnosticsSocket,
		PanelKinds:            panelKinds,
		ManifestPath:          cfg.Paths.Manifest,
		QueueSize:             cfg.Transport.QueueSize,
		Compression:           compression,
		CompressThreshold:     cfg.Transport.CompressThreshold,
		WriteTimeout:          cfg.WriteTimeout(),
		TraceRingSize:         cfg.Trace.RingSize,
		Logger:                logger,
	})

	registerBuiltins(broker.Fabric())

	if err := broker.Listen(); err != nil {
		return fmt.Errorf("binding window socket: %w", err)
	}
	logger.Info("shell listening",
		"socket", cfg.Paths.Socket,
		"diagnostics_socket", cfg.Paths.DiagnosticsSocket,
		"version", version.Info(),
	)

	err = broker.Serve(ctx)
	logger.Info("shell stopped")
	return err
}

// loadConfig resolves the daemon configuration: an explicit --config
// path, then $MULLION_CONFIG, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("MULLION_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// registerBuiltins installs the daemon's built-in handlers on the
// fabric.
func registerBuiltins(fab *fabric.Fabric) {
	// Liveness probe for mullion-send and scripts. Fire-and-forget
	// sends of the same name are simply absorbed.
	fab.Handle(ref.MessageName("mullion.shell.ping"), func(ctx fabric.Context, args []any) {
		if ctx.Reply == nil {
			return
		}
		ctx.Reply(version.Info())
	})
}
