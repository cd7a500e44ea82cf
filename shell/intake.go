// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"errors"
	"time"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/transport"
)

// helloTimeout bounds the wait for a new connection's hello frame. A
// process that connects and says nothing is cut off.
const helloTimeout = 10 * time.Second

// errHelloNoWindowID is the welcome rejection for a hello frame
// missing its window identity.
var errHelloNoWindowID = errors.New("hello has no window id")

// acceptConnection runs one window connection from handshake to
// disconnect: validate the hello, register the endpoint, claim its
// panels, welcome it, then feed its frames into the fabric until the
// connection ends. Registration is undone on the way out regardless of
// how the connection ended.
func (b *Broker) acceptConnection(ctx context.Context, conn *transport.Conn) {
	defer conn.Close()
	b.connectionsTotal.Add(1)

	// Tear the connection down on shutdown so the read loop returns.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-conn.Done():
		}
	}()

	hello, err := conn.ReadFrame(helloTimeout)
	if err != nil {
		b.logger.Warn("connection closed before hello", "error", err)
		return
	}
	if hello.Type != transport.FrameHello {
		b.logger.Warn("first frame was not hello, closing connection",
			"type", hello.Type,
		)
		return
	}

	endpoint, err := b.registerWindow(conn, hello)
	if err != nil {
		b.logger.Warn("rejecting window",
			"window", hello.Window,
			"instance", hello.Instance,
			"error", err,
		)
		conn.WriteFrame(transport.Frame{
			Type:  transport.FrameWelcome,
			Error: err.Error(),
		})
		return
	}
	defer b.registry.Remove(endpoint.id)
	defer b.panels.Release(endpoint.id)

	if err := conn.WriteFrame(transport.Frame{
		Type: transport.FrameWelcome,
		OK:   true,
	}); err != nil {
		b.logger.Warn("welcome write failed",
			"window", endpoint.id,
			"error", err,
		)
		return
	}

	b.logger.Info("window connected",
		"window", endpoint.id,
		"role", hello.Role,
		"instance", hello.Instance,
		"panels", len(hello.Panels),
	)

	err = conn.ReadLoop(func(frame transport.Frame) {
		b.handleFrame(endpoint, frame)
	})
	if err != nil {
		b.logger.Warn("window connection failed",
			"window", endpoint.id,
			"error", err,
		)
	}
	b.logger.Info("window disconnected",
		"window", endpoint.id,
		"dropped_frames", conn.Dropped(),
	)
}

// registerWindow validates a hello and enters the window into the
// registry and panel table. The returned error is the welcome
// rejection reason.
func (b *Broker) registerWindow(conn *transport.Conn, hello transport.Frame) (*windowEndpoint, error) {
	if hello.Window.IsZero() {
		return nil, errHelloNoWindowID
	}
	role, err := ref.ParseRole(hello.Role.String())
	if err != nil {
		return nil, err
	}

	endpoint := &windowEndpoint{id: hello.Window, conn: conn, broker: b}
	info := WindowInfo{
		ID:          hello.Window,
		Role:        role,
		Instance:    hello.Instance,
		ConnectedAt: b.clk.Now(),
		Panels:      hello.Panels,
	}
	if err := b.registry.Add(endpoint, info); err != nil {
		return nil, err
	}
	for _, panel := range hello.Panels {
		b.panels.Claim(panel, endpoint)
	}
	return endpoint, nil
}

// handleFrame translates one inbound frame into a fabric operation.
// Runs on the connection's read goroutine, so a window's frames apply
// in the order it sent them.
func (b *Broker) handleFrame(origin *windowEndpoint, frame transport.Frame) {
	b.framesIn.Add(1)
	b.traceFrame(DirectionInbound, origin.id, frame)

	if _, err := ref.ParseMessageName(frame.Message.String()); err != nil {
		b.logger.Warn("frame with invalid message name dropped",
			"type", frame.Type,
			"window", origin.id,
			"error", err,
		)
		return
	}

	switch frame.Type {
	case transport.FrameBroadcastWindows:
		b.fabric.HandleBroadcastWindows(origin, frame.Message, frame.Args,
			fabric.BroadcastOptions{ExcludeSelf: frame.ExcludeSelf})
	case transport.FrameBroadcastAll:
		b.fabric.HandleBroadcastAll(origin, frame.Message, frame.Args,
			fabric.BroadcastOptions{ExcludeSelf: frame.ExcludeSelf})
	case transport.FrameSendMain:
		b.fabric.HandleSendToMain(origin, frame.Message, frame.Args)
	case transport.FrameSendPanel:
		b.fabric.HandleSendToPanel(origin, frame.Panel, frame.Message, frame.Args)
	case transport.FrameEvent:
		b.fabric.HandleEvent(origin, frame.Message, frame.Args)
	case transport.FrameRequest:
		b.fabric.HandleRequest(origin, frame.Session, frame.Message, frame.Args)
	default:
		b.logger.Warn("unroutable frame dropped",
			"type", frame.Type,
			"window", origin.id,
		)
	}
}
