// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"log/slog"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// BroadcastOptions modifies broadcast delivery. It is a separate
// parameter, never smuggled inside the argument list, so an ordinary
// trailing argument can never be mistaken for an option.
type BroadcastOptions struct {
	// ExcludeSelf removes the sending endpoint from the delivery set:
	// the originating window for window-originated broadcasts, the
	// shell's own handlers for shell-originated ones. No effect when
	// the sender is not in the destination set.
	ExcludeSelf bool
}

// Router resolves a logical destination — all windows, the main
// window, a named panel, the shell itself — into concrete deliveries.
// It consumes the window registry and panel resolver read-only and
// owns no state of its own.
//
// Every method takes the originating endpoint, nil when the shell
// itself is the sender. The origin is provenance and exclusion
// identity only; the router never delivers differently based on who
// asks, except where ExcludeSelf says so.
type Router struct {
	registry   WindowRegistry
	panels     PanelResolver
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewRouter creates a router delivering local dispatch through
// dispatcher and remote delivery through the endpoints of registry and
// panels.
func NewRouter(registry WindowRegistry, panels PanelResolver, dispatcher *Dispatcher, logger *slog.Logger) *Router {
	return &Router{
		registry:   registry,
		panels:     panels,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// BroadcastWindows delivers an event to every live window. The
// membership is snapshotted at call start: windows registered or
// removed during delivery are neither guaranteed nor denied delivery,
// and a removed window never causes a fault. Each delivery is
// independent — one dead endpoint does not block the rest.
func (r *Router) BroadcastWindows(origin Endpoint, message ref.MessageName, args []any, options BroadcastOptions) {
	envelope := Envelope{
		Kind:    KindEvent,
		Message: message,
		Origin:  originID(origin),
		Args:    args,
	}
	for _, window := range r.registry.Windows() {
		if options.ExcludeSelf && origin != nil && window.ID() == origin.ID() {
			continue
		}
		window.Deliver(envelope)
	}
}

// BroadcastAll delivers an event to every live window and to the
// shell's own handlers. With ExcludeSelf, a window sender is removed
// from the window leg and a shell sender (nil origin) skips the local
// leg; either way the rest of the fan-out is unaffected.
func (r *Router) BroadcastAll(origin Endpoint, message ref.MessageName, args []any, options BroadcastOptions) {
	r.BroadcastWindows(origin, message, args, options)
	if options.ExcludeSelf && origin == nil {
		return
	}
	r.Dispatch(origin, message, args)
}

// SendToMain delivers an event to the main window. When no window
// holds the main role the message is dropped with a warning: absence
// of the main window is an expected transient state during startup and
// shutdown, and callers of a fire-and-forget send have nothing useful
// to do with the failure.
func (r *Router) SendToMain(origin Endpoint, message ref.MessageName, args []any) {
	main, ok := r.registry.MainWindow()
	if !ok {
		r.logger.Warn("no main window, message dropped",
			"message", message,
			"origin", originID(origin),
		)
		return
	}
	main.Deliver(Envelope{
		Kind:    KindEvent,
		Message: message,
		Origin:  originID(origin),
		Args:    args,
	})
}

// SendToPanel delivers an event to the window hosting panel. An
// unresolvable panel (undeclared, unclaimed, or its window gone) is
// dropped silently at debug level: panels close with their windows,
// and senders race that lifecycle.
//
// A simple panel receives the raw event; a composite panel receives a
// panel-event envelope carrying the panel identifier so the owning
// window can demultiplex to the correct panel instance.
func (r *Router) SendToPanel(origin Endpoint, panel ref.PanelID, message ref.MessageName, args []any) {
	route, ok := r.panels.Lookup(panel)
	if !ok {
		r.logger.Debug("panel not resolvable, message dropped",
			"panel", panel,
			"message", message,
			"origin", originID(origin),
		)
		return
	}
	envelope := Envelope{
		Kind:    KindEvent,
		Message: message,
		Origin:  originID(origin),
		Args:    args,
	}
	if route.Kind == PanelComposite {
		envelope.Kind = KindPanelEvent
		envelope.Panel = panel
	}
	route.Owner.Deliver(envelope)
}

// Dispatch delivers an event to the shell's own handlers,
// synchronously and in the caller's execution step. Reports whether at
// least one handler was registered.
//
// The handler context's Sender loops back toward the origin: for a
// shell-originated dispatch it re-enters Dispatch, so shell handlers
// can emit further messages without distinguishing "I am both sender
// and destination"; for a window-originated message it sends an event
// frame back to that window.
func (r *Router) Dispatch(origin Endpoint, message ref.MessageName, args []any) bool {
	return r.dispatcher.Emit(r.localContext(origin), message, args)
}

// localContext builds the handler context for shell-side dispatch of
// a message from origin.
func (r *Router) localContext(origin Endpoint) Context {
	if origin == nil {
		return Context{Sender: selfSender{router: r}}
	}
	return Context{
		Origin: origin.ID(),
		Sender: endpointSender{endpoint: origin},
	}
}

// originID extracts the window identity of an endpoint, zero for the
// shell itself.
func originID(origin Endpoint) ref.WindowID {
	if origin == nil {
		return ref.WindowID{}
	}
	return origin.ID()
}

// selfSender is the Sender for shell-local dispatch: Send re-enters
// local dispatch, unhandled messages are dropped (a broadcast to
// nobody is not an error).
type selfSender struct {
	router *Router
}

func (s selfSender) Send(message ref.MessageName, args ...any) {
	s.router.Dispatch(nil, message, args)
}

// endpointSender is the Sender for messages that arrived from a
// window: Send delivers an event back to that window.
type endpointSender struct {
	endpoint Endpoint
}

func (s endpointSender) Send(message ref.MessageName, args ...any) {
	s.endpoint.Deliver(Envelope{
		Kind:    KindEvent,
		Message: message,
		Args:    args,
	})
}
