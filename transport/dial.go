// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// handshakeTimeout bounds each side's wait for the peer's handshake
// frame. A shell that accepts but never welcomes (or a client that
// connects and says nothing) is cut off here rather than holding the
// connection open indefinitely.
const handshakeTimeout = 10 * time.Second

// Hello identifies the connecting window to the shell.
type Hello struct {
	// Window is the window's identity, the routing key for targeted
	// sends. Must be unique among live windows; the shell rejects
	// duplicates.
	Window ref.WindowID

	// Role is the window's role claim.
	Role ref.Role

	// Instance distinguishes this process instance from earlier
	// holders of the same window id, for logs and traces. Typically a
	// UUID minted at connect time.
	Instance string

	// Panels lists the panel ids this window hosts.
	Panels []ref.PanelID
}

// Dial connects to the shell socket and performs the hello/welcome
// handshake. On success the returned connection is in regular
// service: the caller starts its ReadLoop and sends through Send.
func Dial(ctx context.Context, socketPath string, hello Hello, options Options) (*Conn, error) {
	if hello.Window.IsZero() {
		return nil, fmt.Errorf("dial: hello has no window id")
	}
	if hello.Role.IsZero() {
		return nil, fmt.Errorf("dial: hello has no role")
	}

	var dialer net.Dialer
	netConn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial shell socket %s: %w", socketPath, err)
	}
	conn := NewConn(netConn, options)

	if err := conn.WriteFrame(Frame{
		Type:     FrameHello,
		Window:   hello.Window,
		Role:     hello.Role,
		Instance: hello.Instance,
		Panels:   hello.Panels,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	welcome, err := conn.ReadFrame(handshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	if welcome.Type != FrameWelcome {
		conn.Close()
		return nil, errUnexpectedFrame(welcome.Type, FrameWelcome)
	}
	if !welcome.OK {
		conn.Close()
		return nil, fmt.Errorf("shell rejected connection: %s", welcome.Error)
	}
	return conn, nil
}

// errUnexpectedFrame builds the error for a handshake frame of the
// wrong type.
func errUnexpectedFrame(got, want FrameType) error {
	return fmt.Errorf("unexpected %s frame during handshake, want %s", got, want)
}
