// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mullion-foundation/mullion/lib/netutil"
)

// dialTimeout bounds both the startup probe and each per-connection
// dial of the diagnostics socket.
const dialTimeout = 5 * time.Second

// Bridge forwards TCP connections to a diagnostics Unix socket.
type Bridge struct {
	// ListenAddr is the TCP address to listen on, for example
	// "127.0.0.1:8650". Keep it on loopback unless you mean to expose
	// the shell's diagnostics to the network.
	ListenAddr string

	// SocketPath is the diagnostics socket connections are forwarded to.
	SocketPath string

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-connection events are logged at Debug level; lifecycle
	// events and failures at Info/Error.
	Logger *slog.Logger

	listener    net.Listener
	cancel      context.CancelFunc
	done        chan struct{}
	connections sync.WaitGroup
}

// logger returns the configured logger or the default.
func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Start probes the diagnostics socket, binds the TCP listener, and
// begins forwarding in the background. It returns once the listener is
// accepting. The bridge runs until Stop is called or the context is
// cancelled; either closes the listener and drains the in-flight
// connections.
func (b *Bridge) Start(ctx context.Context) error {
	if b.ListenAddr == "" {
		return fmt.Errorf("bridge: ListenAddr is required")
	}
	if b.SocketPath == "" {
		return fmt.Errorf("bridge: SocketPath is required")
	}

	// Fail at startup when the shell is not there, instead of on the
	// first client.
	probe, err := net.DialTimeout("unix", b.SocketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("bridge: diagnostics socket %s not reachable: %w", b.SocketPath, err)
	}
	probe.Close()

	listener, err := net.Listen("tcp", b.ListenAddr)
	if err != nil {
		return fmt.Errorf("bridge: failed to listen on %s: %w", b.ListenAddr, err)
	}
	b.listener = listener

	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})

	// Cancellation reaches the accept loop by closing the listener;
	// Accept has no context form.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	go func() {
		defer close(b.done)
		b.acceptLoop(ctx)
	}()

	b.logger().Info("diagnostics bridge started",
		"listen_addr", b.ListenAddr,
		"socket_path", b.SocketPath,
	)
	return nil
}

// Addr returns the listener's address, useful when binding to port 0.
// Returns nil if the bridge has not been started.
func (b *Bridge) Addr() net.Addr {
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Stop shuts the bridge down and waits for the in-flight connections
// to drain. Safe to call more than once.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.done != nil {
		<-b.done
	}
}

// Wait blocks until the bridge has stopped.
func (b *Bridge) Wait() {
	if b.done != nil {
		<-b.done
	}
}

// acceptLoop accepts TCP connections and forwards each onto its own
// diagnostics connection. It waits for the in-flight forwarders before
// returning, so that closing the done channel signals full quiescence.
func (b *Bridge) acceptLoop(ctx context.Context) {
	var connectionCount int64

	for {
		connection, err := b.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				b.connections.Wait()
				return
			default:
				b.logger().Error("accept failed", "error", err)
				continue
			}
		}

		connectionCount++
		connectionID := connectionCount
		b.connections.Add(1)
		go func() {
			defer b.connections.Done()
			b.forward(connection, connectionID)
		}()
	}
}

// forward splices one TCP connection onto a fresh diagnostics
// connection. BridgeConnections closes both legs when either finishes,
// which matches the diagnostics protocol: the server answers from the
// request's own framing and never waits for a client half-close.
func (b *Bridge) forward(tcpConnection net.Conn, connectionID int64) {
	logger := b.logger().With("connection_id", connectionID)
	logger.Debug("connection accepted", "remote_addr", tcpConnection.RemoteAddr())

	unixConnection, err := net.DialTimeout("unix", b.SocketPath, dialTimeout)
	if err != nil {
		logger.Error("diagnostics socket unreachable", "error", err)
		tcpConnection.Close()
		return
	}

	if err := netutil.BridgeConnections(tcpConnection, unixConnection); err != nil {
		logger.Debug("forwarding ended with error", "error", err)
	}
	logger.Debug("connection closed")
}
