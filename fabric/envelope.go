// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"fmt"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// Kind discriminates the envelope variants the fabric delivers to an
// endpoint.
type Kind uint8

const (
	// KindEvent is a fire-and-forget message: a broadcast leg or a
	// targeted send. Carries Message and Args.
	KindEvent Kind = iota + 1

	// KindPanelEvent is a message addressed to a composite panel. It
	// carries the panel identifier alongside Message and Args so the
	// receiving window can demultiplex to the correct panel instance.
	KindPanelEvent

	// KindRequest is one half of a correlated exchange. Carries
	// Message, Session, and Args; the receiver owes the origin exactly
	// one KindReply for the session.
	KindRequest

	// KindReply completes a request. Carries Session and Args, plus
	// Error when the request could not be dispatched (no listener
	// registered for the message).
	KindReply
)

// String returns the lowercase name of the kind, as it appears in
// trace output.
func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindPanelEvent:
		return "panel-event"
	case KindRequest:
		return "request"
	case KindReply:
		return "reply"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Envelope is the logical unit the fabric delivers to an endpoint.
// Which fields are meaningful depends on Kind; unused fields hold
// their zero value.
//
// Envelopes are value types. The fabric never retains a delivered
// envelope, but Args is a shared slice: receivers must not mutate it.
type Envelope struct {
	// Kind selects the variant.
	Kind Kind

	// Message names the message for events, panel events, and
	// requests. Zero for replies, which correlate by session alone.
	Message ref.MessageName

	// Panel is the destination panel for KindPanelEvent.
	Panel ref.PanelID

	// Session correlates KindRequest and KindReply envelopes. Zero for
	// fire-and-forget kinds.
	Session ref.SessionID

	// Origin is the window the message originated from, zero when the
	// shell originated it. Receivers see it as Context.Origin;
	// provenance only, never a routing key.
	Origin ref.WindowID

	// Error reports a routing failure on KindReply: the request
	// reached the shell but no listener was registered for its
	// message. Empty on successful replies.
	Error string

	// Args is the ordered positional payload.
	Args []any
}

// Endpoint is an addressable window-hosted process. The fabric holds
// endpoint references only transiently — for the duration of a single
// routing call — and compares endpoints by ID.
type Endpoint interface {
	// ID returns the window identity. Used only for equality and
	// sender exclusion; the registry guarantees uniqueness among live
	// windows.
	ID() ref.WindowID

	// Deliver hands an envelope to the window without blocking the
	// caller. Delivery is best-effort: implementations drop on
	// overflow or a dead connection rather than block or fail.
	Deliver(envelope Envelope)
}

// WindowRegistry is the live window collection, owned outside the
// core. The core only enumerates it, never mutates it.
type WindowRegistry interface {
	// Windows returns a snapshot of the current membership. The
	// returned slice is owned by the caller; the registry must not
	// retain or mutate it after return.
	Windows() []Endpoint

	// MainWindow returns the distinguished main endpoint, or false
	// when no window currently holds the main role. Absence is a
	// normal transient state during startup and shutdown.
	MainWindow() (Endpoint, bool)
}

// PanelKind distinguishes how a panel receives messages.
type PanelKind uint8

const (
	// PanelSimple panels receive the raw message: the owning window
	// hosts exactly one instance and needs no demultiplexing.
	PanelSimple PanelKind = iota + 1

	// PanelComposite panels receive a panel-event envelope carrying
	// the panel identifier, so the owning window can route it to the
	// correct panel instance locally.
	PanelComposite
)

// String returns the manifest spelling of the kind.
func (k PanelKind) String() string {
	switch k {
	case PanelSimple:
		return "simple"
	case PanelComposite:
		return "composite"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParsePanelKind parses the manifest spelling of a panel kind.
func ParsePanelKind(raw string) (PanelKind, error) {
	switch raw {
	case "simple":
		return PanelSimple, nil
	case "composite":
		return PanelComposite, nil
	}
	return 0, fmt.Errorf("unknown panel kind %q (want simple or composite)", raw)
}

// PanelRoute is the resolution of a panel identifier: the window
// currently hosting the panel and how the panel wants its messages
// shaped.
type PanelRoute struct {
	Owner Endpoint
	Kind  PanelKind
}

// PanelResolver looks up panel routes. Lookup fails (returns false)
// for panels that are not declared, or declared but not currently
// hosted by a connected window; the router drops such sends silently,
// since panels close with their windows.
type PanelResolver interface {
	Lookup(panel ref.PanelID) (PanelRoute, bool)
}
