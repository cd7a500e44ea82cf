// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/clock"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/lib/service"
	"github.com/mullion-foundation/mullion/transport"
)

// defaultTraceRingSize bounds the trace ring when Options does not say
// otherwise.
const defaultTraceRingSize = 1024

// Options configures a broker.
type Options struct {
	// SocketPath is the Unix socket window processes connect to.
	// Required.
	SocketPath string

	// DiagnosticsSocketPath is the Unix socket for the diagnostics
	// action protocol (status, trace). Empty disables diagnostics.
	DiagnosticsSocketPath string

	// PanelKinds is the declared panel table, typically from
	// manifest.Load. May be nil when the application has no panels.
	PanelKinds map[ref.PanelID]fabric.PanelKind

	// ManifestPath, when non-empty, is watched for changes and
	// reloaded into the panel table. Independent of PanelKinds so
	// callers control the initial load and its error handling.
	ManifestPath string

	// QueueSize bounds each window connection's outbound queue. Zero
	// selects the transport default.
	QueueSize int

	// Compression selects the frame compression algorithm.
	Compression transport.CompressionTag

	// CompressThreshold is the minimum payload size for compression.
	// Zero selects the transport default.
	CompressThreshold int

	// WriteTimeout bounds each frame write on window connections.
	// Zero selects the transport default.
	WriteTimeout time.Duration

	// TraceRingSize bounds the retained trace entries. Zero selects
	// defaultTraceRingSize.
	TraceRingSize int

	// Logger receives the broker's diagnostics. Nil selects
	// slog.Default().
	Logger *slog.Logger

	// Clock supplies timestamps for traces, uptime, and transport
	// deadlines. Nil selects the real clock.
	Clock clock.Clock
}

// Broker is the shell's message hub: it owns the window socket, the
// registry, the panel table, the fabric, and the trace ring, and runs
// the per-connection intake loops that feed window frames into the
// fabric.
//
// Lifecycle: NewBroker, register shell handlers on Fabric(), Listen,
// then Serve until the context is cancelled.
type Broker struct {
	options Options
	logger  *slog.Logger
	clk     clock.Clock

	registry *Registry
	panels   *PanelTable
	fabric   *fabric.Fabric
	tracer   *Tracer
	listener *transport.Listener
	diag     *service.SocketServer

	startedAt time.Time

	connectionsTotal atomic.Uint64
	framesIn         atomic.Uint64
	framesOut        atomic.Uint64
	framesDropped    atomic.Uint64
}

// NewBroker assembles a broker from options. Nothing is bound yet;
// call Listen.
func NewBroker(options Options) *Broker {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	ringSize := options.TraceRingSize
	if ringSize == 0 {
		ringSize = defaultTraceRingSize
	}

	b := &Broker{
		options:  options,
		logger:   logger,
		clk:      clk,
		registry: NewRegistry(logger),
		panels:   NewPanelTable(options.PanelKinds, logger),
		tracer:   NewTracer(ringSize, clk),
	}
	b.fabric = fabric.New(b.registry, b.panels, logger)
	b.listener = transport.NewListener(options.SocketPath, transport.Options{
		Logger:            logger,
		Clock:             clk,
		QueueSize:         options.QueueSize,
		Compression:       options.Compression,
		CompressThreshold: options.CompressThreshold,
		WriteTimeout:      options.WriteTimeout,
	}, logger)

	if options.DiagnosticsSocketPath != "" {
		b.diag = service.NewSocketServer(options.DiagnosticsSocketPath, logger)
		b.registerDiagnostics()
	}
	return b
}

// Fabric returns the broker's fabric: the shell-side API surface.
// Shell code registers handlers and sends through it exactly as window
// code uses its client, minus the socket.
func (b *Broker) Fabric() *fabric.Fabric {
	return b.fabric
}

// Listen binds the window socket. Callers may connect as soon as
// Listen returns; frames are processed once Serve runs.
func (b *Broker) Listen() error {
	return b.listener.Listen()
}

// Serve accepts and serves window connections until ctx is cancelled,
// then drains them. The diagnostics socket and the manifest watcher,
// when configured, run for the same span; a diagnostics failure is
// logged but does not stop the broker.
func (b *Broker) Serve(ctx context.Context) error {
	b.startedAt = b.clk.Now()

	var aux sync.WaitGroup
	if b.diag != nil {
		aux.Add(1)
		go func() {
			defer aux.Done()
			if err := b.diag.Serve(ctx); err != nil {
				b.logger.Error("diagnostics socket failed", "error", err)
			}
		}()
	}
	if b.options.ManifestPath != "" {
		aux.Add(1)
		go func() {
			defer aux.Done()
			b.watchManifest(ctx)
		}()
	}

	err := b.listener.Serve(ctx, b.acceptConnection)
	aux.Wait()
	return err
}

// traceFrame records one frame crossing a window connection.
func (b *Broker) traceFrame(direction Direction, window ref.WindowID, frame transport.Frame) {
	b.tracer.Record(TraceEntry{
		Direction: direction,
		Window:    window,
		Kind:      frame.Type.String(),
		Message:   frame.Message,
		Panel:     frame.Panel,
		Session:   frame.Session,
		Args:      len(frame.Args),
		Error:     frame.Error,
	})
}
