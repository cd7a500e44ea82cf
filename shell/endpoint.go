// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/transport"
)

// windowEndpoint adapts one window connection to fabric.Endpoint:
// envelopes the fabric routes to this window become frames on its
// connection. Deliver inherits the connection's contract — it never
// blocks, and drops when the window's outbound queue is full.
type windowEndpoint struct {
	id     ref.WindowID
	conn   *transport.Conn
	broker *Broker
}

func (e *windowEndpoint) ID() ref.WindowID { return e.id }

func (e *windowEndpoint) Deliver(envelope fabric.Envelope) {
	frame, ok := frameFromEnvelope(envelope)
	if !ok {
		e.broker.logger.Error("undeliverable envelope dropped",
			"kind", envelope.Kind,
			"window", e.id,
		)
		return
	}
	e.broker.traceFrame(DirectionOutbound, e.id, frame)
	if e.conn.Send(frame) {
		e.broker.framesOut.Add(1)
	} else {
		e.broker.framesDropped.Add(1)
	}
}

// frameFromEnvelope maps a routed envelope to its wire frame. Only the
// delivery kinds map; the shell never sends requests to windows, so a
// request envelope here is a routing bug and reports false.
func frameFromEnvelope(envelope fabric.Envelope) (transport.Frame, bool) {
	switch envelope.Kind {
	case fabric.KindEvent:
		return transport.Frame{
			Type:    transport.FrameEvent,
			Window:  envelope.Origin,
			Message: envelope.Message,
			Args:    envelope.Args,
		}, true
	case fabric.KindPanelEvent:
		return transport.Frame{
			Type:    transport.FramePanelEvent,
			Window:  envelope.Origin,
			Message: envelope.Message,
			Panel:   envelope.Panel,
			Args:    envelope.Args,
		}, true
	case fabric.KindReply:
		frame := transport.Frame{
			Type:    transport.FrameReply,
			Window:  envelope.Origin,
			Message: envelope.Message,
			Session: envelope.Session,
			Args:    envelope.Args,
		}
		if envelope.Error != "" {
			frame.Error = envelope.Error
			frame.NoListener = true
		}
		return frame, true
	}
	return transport.Frame{}, false
}
