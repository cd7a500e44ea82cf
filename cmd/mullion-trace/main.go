// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/mullion-foundation/mullion/lib/config"
	"github.com/mullion-foundation/mullion/lib/netutil"
	"github.com/mullion-foundation/mullion/lib/service"
	"github.com/mullion-foundation/mullion/lib/traceui"
	"github.com/mullion-foundation/mullion/lib/version"
	"github.com/mullion-foundation/mullion/shell"
)

// entryBuffer is the channel capacity between the stream pump and the
// model. The shell's subscriber buffer absorbs bursts on the far side;
// this one only has to cover the model's redraw latency.
const entryBuffer = 256

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Default()

	flagSet := pflag.NewFlagSet("mullion-trace", pflag.ContinueOnError)
	diagnosticsPath := flagSet.String("diagnostics-socket", defaults.Paths.DiagnosticsSocket, "diagnostics socket of the shell")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("mullion-trace")
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
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := service.NewClient(*diagnosticsPath).Stream(ctx, "trace", nil)
	if err != nil {
		return err
	}
	defer reader.Close()

	// The pump decodes wire entries and feeds the model. Closing the
	// channel is how the model learns the stream is over; the error, if
	// any, is reported after the program exits so it does not fight the
	// alt screen for the terminal.
	entries := make(chan traceui.Entry, entryBuffer)
	var streamErr error
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		defer close(entries)
		for {
			var entry shell.TraceEntry
			if err := reader.Next(&entry); err != nil {
				if !errors.Is(err, io.EOF) && !netutil.IsExpectedCloseError(err) {
					streamErr = err
				}
				return
			}
			select {
			case entries <- viewEntry(entry):
			case <-ctx.Done():
				return
			}
		}
	}()

	program := tea.NewProgram(traceui.NewModel(entries), tea.WithAltScreen())
	_, runErr := program.Run()

	cancel()
	reader.Close()
	<-pumpDone

	if runErr != nil {
		return runErr
	}
	if streamErr != nil {
		return fmt.Errorf("trace stream: %w", streamErr)
	}
	return nil
}

// viewEntry converts a wire trace entry into the model's view type.
func viewEntry(entry shell.TraceEntry) traceui.Entry {
	return traceui.Entry{
		Sequence:  entry.Sequence,
		Timestamp: entry.Timestamp,
		Direction: entry.Direction.String(),
		Window:    entry.Window,
		Kind:      entry.Kind,
		Message:   entry.Message,
		Panel:     entry.Panel,
		Session:   entry.Session,
		Args:      entry.Args,
		Error:     entry.Error,
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Mullion trace — live terminal viewer for the shell's frame trace.

Subscribes to the trace stream on the diagnostics socket. The view
starts with the shell's retained backlog and follows new entries as
they arrive. Envelopes only; payloads are never traced.

Keys:
  j/k, arrows   move the cursor (moving up parks follow mode)
  G, end        jump to newest and resume following
  space         pause; buffered entries are applied on resume
  /             filter entries by substring (esc clears)
  enter         toggle the detail view for the selected entry
  q, ctrl+c     quit

Usage:
  mullion-trace [flags]

Examples:
  # Watch the default shell.
  mullion-trace

  # Watch a shell with a non-default diagnostics socket.
  mullion-trace --diagnostics-socket /tmp/mullion-dev/diag.sock

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
