// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mullion-foundation/mullion/client"
	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/config"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/lib/service"
	"github.com/mullion-foundation/mullion/lib/version"
	"github.com/mullion-foundation/mullion/shell"
)

// flushTimeout bounds the delivery fence after a fire-and-forget
// operation. A healthy shell answers in microseconds; a shell that
// takes longer than this is not going to flush our frame either.
const flushTimeout = 3 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Default()

	flagSet := pflag.NewFlagSet("mullion-send", pflag.ContinueOnError)
	socketPath := flagSet.String("socket", defaults.Paths.Socket, "window socket of the shell")
	diagnosticsPath := flagSet.String("diagnostics-socket", defaults.Paths.DiagnosticsSocket, "diagnostics socket of the shell (for --status)")
	windowFlag := flagSet.String("window", fmt.Sprintf("send-%d", os.Getpid()), "window id to connect as")
	excludeSelf := flagSet.Bool("exclude-self", false, "leave this connection out of broadcast-all delivery")
	timeout := flagSet.Duration("timeout", 5*time.Second, "reply deadline for request; 0 waits until interrupted")
	statusFlag := flagSet.Bool("status", false, "print the shell's status snapshot and exit")
	verbose := flagSet.Bool("verbose", false, "log connection details to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("mullion-send")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *statusFlag {
		return printStatus(ctx, *diagnosticsPath)
	}

	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(flagSet)
		return errors.New("an operation is required")
	}
	operation := args[0]
	rest := args[1:]

	window, err := ref.ParseWindowID(*windowFlag)
	if err != nil {
		return fmt.Errorf("invalid --window: %w", err)
	}

	c, err := client.Dial(ctx, client.Options{
		SocketPath: *socketPath,
		Window:     window,
		Role:       ref.RoleUtility,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("connecting to shell at %s: %w", *socketPath, err)
	}
	defer c.Close()

	switch operation {
	case "broadcast":
		message, payload, err := messageArgs(rest)
		if err != nil {
			return fmt.Errorf("broadcast: %w", err)
		}
		if err := c.BroadcastWindows(message, payload...); err != nil {
			return err
		}
		return awaitFlush(ctx, c)

	case "broadcast-all":
		message, payload, err := messageArgs(rest)
		if err != nil {
			return fmt.Errorf("broadcast-all: %w", err)
		}
		options := fabric.BroadcastOptions{ExcludeSelf: *excludeSelf}
		if err := c.BroadcastAll(options, message, payload...); err != nil {
			return err
		}
		return awaitFlush(ctx, c)

	case "send-main":
		message, payload, err := messageArgs(rest)
		if err != nil {
			return fmt.Errorf("send-main: %w", err)
		}
		if err := c.SendToMain(message, payload...); err != nil {
			return err
		}
		return awaitFlush(ctx, c)

	case "send-panel":
		if len(rest) == 0 {
			return errors.New("send-panel: a panel id is required")
		}
		panel, err := ref.ParsePanelID(rest[0])
		if err != nil {
			return fmt.Errorf("send-panel: %w", err)
		}
		message, payload, err := messageArgs(rest[1:])
		if err != nil {
			return fmt.Errorf("send-panel: %w", err)
		}
		if err := c.SendToPanel(panel, message, payload...); err != nil {
			return err
		}
		return awaitFlush(ctx, c)

	case "request":
		message, payload, err := messageArgs(rest)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		return performRequest(ctx, c, message, payload, *timeout)

	default:
		return fmt.Errorf("unknown operation %q (want broadcast, broadcast-all, send-main, send-panel, or request)", operation)
	}
}

// messageArgs splits an operation's trailing arguments into the message
// name and its payload. Payload arguments travel as strings; parties
// that want structure agree on it at a higher layer.
func messageArgs(args []string) (ref.MessageName, []any, error) {
	if len(args) == 0 {
		return "", nil, errors.New("a message name is required")
	}
	message, err := ref.ParseMessageName(args[0])
	if err != nil {
		return "", nil, err
	}
	payload := make([]any, len(args)-1)
	for index, arg := range args[1:] {
		payload[index] = arg
	}
	return message, payload, nil
}

// awaitFlush confirms a queued fire-and-forget frame reached the shell
// before the process exits. Close tears the connection down without
// draining the outbound queue, so sending and immediately closing can
// lose the frame. The queue is written in order by a single goroutine,
// which makes any completed round trip queued behind the frame proof
// of delivery; even a no-listener failure is such a round trip, so the
// fence works against shells that never registered the ping handler.
func awaitFlush(ctx context.Context, c *client.Client) error {
	fenceCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	_, err := c.Call(fenceCtx, "mullion.shell.ping")
	var requestErr *client.RequestError
	if err == nil || errors.As(err, &requestErr) {
		return nil
	}
	return fmt.Errorf("confirming delivery: %w", err)
}

// performRequest runs one correlated request and prints each reply
// argument as a JSON line on stdout.
func performRequest(ctx context.Context, c *client.Client, message ref.MessageName, payload []any, timeout time.Duration) error {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply, err := c.Call(callCtx, message, payload...)
	switch {
	case err == nil:
	case client.IsNoListener(err):
		return fmt.Errorf("shell has no handler for %s", message)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("no reply to %s within %s", message, timeout)
	default:
		return err
	}

	for _, arg := range reply {
		encoded, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("encoding reply argument: %w", err)
		}
		fmt.Println(string(encoded))
	}
	return nil
}

// printStatus queries the diagnostics socket and renders the snapshot
// in a human-readable layout.
func printStatus(ctx context.Context, socketPath string) error {
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	diag := service.NewClient(socketPath)
	var status shell.Status
	if err := diag.Call(callCtx, "status", nil, &status); err != nil {
		return fmt.Errorf("querying shell status at %s: %w", socketPath, err)
	}

	uptime := time.Duration(status.UptimeSeconds) * time.Second
	fmt.Printf("shell %s, up %s\n", status.Version, uptime)

	fmt.Printf("windows (%d):\n", len(status.Windows))
	for _, window := range status.Windows {
		marker := ""
		if window.Main {
			marker = "  [main]"
		}
		fmt.Printf("  %-20s %-10s connected %s%s\n",
			window.ID, window.Role,
			window.ConnectedAt.Format(time.RFC3339), marker)
		for _, panel := range window.Panels {
			fmt.Printf("    panel %s\n", panel)
		}
	}

	if len(status.Panels) > 0 {
		fmt.Printf("panels (%d):\n", len(status.Panels))
		for _, panel := range status.Panels {
			owner := "unclaimed"
			if !panel.Owner.IsZero() {
				owner = "owned by " + panel.Owner.String()
			}
			fmt.Printf("  %-24s %-10s %s\n", panel.ID, panel.Kind, owner)
		}
	}

	if len(status.Handlers) > 0 {
		fmt.Printf("shell handlers: %s\n", strings.Join(status.Handlers, ", "))
	}

	fmt.Printf("frames: %d in, %d out, %d dropped; connections total %d; pending sessions %d\n",
		status.Counters.FramesIn, status.Counters.FramesOut,
		status.Counters.FramesDropped, status.Counters.ConnectionsTotal,
		status.PendingSessions)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Mullion send — perform one fabric operation against a running shell.

The tool connects as a short-lived utility window, performs the
operation, waits for the shell to acknowledge delivery, and exits.
Payload arguments after the message name are sent as strings.

Usage:
  mullion-send [flags] broadcast <message> [args...]
  mullion-send [flags] broadcast-all <message> [args...]
  mullion-send [flags] send-main <message> [args...]
  mullion-send [flags] send-panel <panel> <message> [args...]
  mullion-send [flags] request <message> [args...]
  mullion-send --status

Examples:
  # Tell every window the theme changed.
  mullion-send broadcast app.theme.changed dark

  # Ask the main window to open a file.
  mullion-send send-main app.file.open /tmp/notes.txt

  # Address the outline panel, wherever it is hosted.
  mullion-send send-panel editor.outline outline.refresh

  # Probe the shell and print its version reply.
  mullion-send request mullion.shell.ping

  # Inspect connected windows and frame counters.
  mullion-send --status

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
