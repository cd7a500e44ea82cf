// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Mullion-window is a scriptable window process for exercising a
// running shell by hand. It connects with a chosen window id, role,
// and panel claims, logs the traffic it receives, and answers two
// built-in messages:
//
//   - mullion.echo: sends mullion.echo.reply back to the shell with
//     the arguments unchanged.
//   - mullion.window.info: sends mullion.window.info.reply with the
//     window's identity (id, role, instance, pid, uptime).
//
// Request/reply correlation runs window to shell only, so window-side
// answers travel the shell-bound event path; watch them arrive with
// mullion-trace, or register shell handlers for the .reply names.
//
// Inbound dispatch is per-name: use --listen to log specific messages
// at info level. Without it, unhandled traffic still shows in the
// default debug log. Use --announce to broadcast one message at
// startup so other windows see the process arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mullion-foundation/mullion/client"
	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/config"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socketPath  string
		windowID    string
		roleName    string
		announce    string
		logLevel    string
		showVersion bool
		panelFlags  []string
		listenFlags []string
	)

	defaults := config.Default()

	flag.StringVar(&socketPath, "socket", defaults.Paths.Socket, "shell window socket")
	flag.StringVar(&windowID, "window", "", "window id to connect as (required)")
	flag.StringVar(&roleName, "role", "secondary", "window role: main, secondary, utility")
	flag.Func("panel", "panel id to claim, e.g. editor.outline (repeatable)", func(value string) error {
		panelFlags = append(panelFlags, value)
		return nil
	})
	flag.Func("listen", "message name to log on arrival (repeatable)", func(value string) error {
		listenFlags = append(listenFlags, value)
		return nil
	})
	flag.StringVar(&announce, "announce", "", "message name to broadcast once connected")
	flag.StringVar(&logLevel, "log-level", "debug", "minimum log level: debug, info, warn, error")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		version.Print("mullion-window")
		return nil
	}

	if windowID == "" {
		return fmt.Errorf("--window is required")
	}
	window, err := ref.ParseWindowID(windowID)
	if err != nil {
		return fmt.Errorf("--window: %w", err)
	}
	role, err := ref.ParseRole(roleName)
	if err != nil {
		return fmt.Errorf("--role: %w", err)
	}
	panels := make([]ref.PanelID, 0, len(panelFlags))
	for _, raw := range panelFlags {
		panel, parseErr := ref.ParsePanelID(raw)
		if parseErr != nil {
			return fmt.Errorf("--panel %q: %w", raw, parseErr)
		}
		panels = append(panels, panel)
	}
	listens := make([]ref.MessageName, 0, len(listenFlags))
	for _, raw := range listenFlags {
		message, parseErr := ref.ParseMessageName(raw)
		if parseErr != nil {
			return fmt.Errorf("--listen %q: %w", raw, parseErr)
		}
		listens = append(listens, message)
	}

	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, client.Options{
		SocketPath: socketPath,
		Window:     window,
		Role:       role,
		Panels:     panels,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("connecting to shell at %s: %w", socketPath, err)
	}
	defer c.Close()

	startedAt := time.Now()
	registerBuiltins(c, role, logger, startedAt)

	for _, message := range listens {
		c.Handle(message, func(ctx fabric.Context, args []any) {
			logger.Info("message received",
				"message", message,
				"origin", ctx.Origin,
				"args", args,
			)
		})
	}
	for _, panel := range panels {
		c.HandlePanel(panel, func(ctx fabric.Context, message ref.MessageName, args []any) {
			logger.Info("panel message received",
				"panel", panel,
				"message", message,
				"origin", ctx.Origin,
				"args", args,
			)
		})
	}

	if announce != "" {
		message, parseErr := ref.ParseMessageName(announce)
		if parseErr != nil {
			return fmt.Errorf("--announce %q: %w", announce, parseErr)
		}
		if err := c.BroadcastWindows(message, window.String()); err != nil {
			return fmt.Errorf("startup broadcast: %w", err)
		}
		logger.Info("startup broadcast sent", "message", message)
	}

	logger.Info("window running",
		"window", c.Window(),
		"role", role,
		"instance", c.Instance(),
		"socket", socketPath,
	)

	select {
	case <-ctx.Done():
		logger.Info("signal received, closing")
		return c.Close()
	case <-c.Done():
		logger.Info("shell connection closed, exiting")
		return nil
	}
}

// registerBuiltins installs the demo's built-in message handlers.
// Answers go back to the shell as events carrying the ".reply" suffix;
// windows cannot be the target of a correlated request.
func registerBuiltins(c *client.Client, role ref.Role, logger *slog.Logger, startedAt time.Time) {
	c.Handle("mullion.echo", func(ctx fabric.Context, args []any) {
		logger.Info("echo", "origin", ctx.Origin, "args", args)
		ctx.Sender.Send("mullion.echo.reply", args...)
	})

	c.Handle("mullion.window.info", func(ctx fabric.Context, args []any) {
		info := map[string]any{
			"window":         c.Window().String(),
			"role":           role.String(),
			"instance":       c.Instance(),
			"pid":            os.Getpid(),
			"uptime_seconds": int64(time.Since(startedAt) / time.Second),
		}
		logger.Info("window info requested", "origin", ctx.Origin)
		ctx.Sender.Send("mullion.window.info.reply", info)
	})
}

// parseLogLevel maps a level name to its slog level.
func parseLogLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("--log-level must be debug, info, warn, or error; got %q", name)
	}
}
