// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
)

// Listener accepts window connections on the shell's Unix socket.
// Each accepted connection gets a peer credential check, then is
// wrapped in a Conn and handed to the accept callback on its own
// goroutine.
type Listener struct {
	socketPath string
	options    Options
	logger     *slog.Logger

	listener    net.Listener
	connections sync.WaitGroup
}

// NewListener creates a listener for socketPath. Accepted connections
// inherit options. Call Listen to bind, then Serve.
func NewListener(socketPath string, options Options, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Logger == nil {
		options.Logger = logger
	}
	return &Listener{
		socketPath: socketPath,
		options:    options,
		logger:     logger,
	}
}

// Listen binds the Unix socket, removing any stale socket file left
// behind by a previous shell process. Returns once the socket is
// accepting, so callers may connect as soon as Listen returns even if
// Serve has not started draining yet.
func (l *Listener) Listen() error {
	if err := os.Remove(l.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", l.socketPath, err)
	}
	listener, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.socketPath, err)
	}
	l.listener = listener
	l.logger.Info("listening", "path", l.socketPath)
	return nil
}

// Serve accepts connections and dispatches each to accept on its own
// goroutine. Blocks until ctx is cancelled, then stops accepting and
// waits for the per-connection goroutines to finish. The socket file
// is removed on return.
//
// The accept callback owns the connection: handshake, read loop, and
// Close. Serve's drain only waits for accept to return, so accept
// must not outlive its connection.
func (l *Listener) Serve(ctx context.Context, accept func(ctx context.Context, conn *Conn)) error {
	if l.listener == nil {
		return fmt.Errorf("serve called before listen")
	}
	defer func() {
		l.listener.Close()
		os.Remove(l.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		l.listener.Close()
	}()

	for {
		netConn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			l.logger.Error("accept failed", "error", err)
			continue
		}

		if err := checkPeerCredentials(netConn); err != nil {
			l.logger.Warn("rejecting connection", "error", err)
			netConn.Close()
			continue
		}

		l.connections.Add(1)
		go func() {
			defer l.connections.Done()
			accept(ctx, NewConn(netConn, l.options))
		}()
	}

	l.connections.Wait()
	return nil
}
