// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// Sender is the loop-back send capability injected into a handler's
// context. For shell-local dispatch it re-enters local dispatch, so a
// shell handler can emit further messages without distinguishing "I am
// both sender and destination"; for messages that arrived from a
// window it sends an event back to that window.
type Sender interface {
	Send(message ref.MessageName, args ...any)
}

// ReplyFunc answers a request. It may be called at most once per
// request; a second call returns ErrReplyAlreadySent and delivers
// nothing.
type ReplyFunc func(args ...any) error

// Context carries the per-delivery capabilities and provenance handed
// to a handler.
type Context struct {
	// Origin is the window the message arrived from. Zero for
	// shell-local dispatch (the shell talking to itself).
	Origin ref.WindowID

	// Sender loops a message back toward the origin. Never nil.
	Sender Sender

	// Reply answers the request that invoked this handler. Nil for
	// fire-and-forget deliveries.
	Reply ReplyFunc
}

// Handler processes one delivered message. Handlers run synchronously
// inside the delivering call and may re-enter the dispatcher: sending
// further messages, replying, and registering new handlers from inside
// a handler are all legal.
type Handler func(ctx Context, args []any)

// Dispatcher is a local publish/subscribe registry mapping message
// names to ordered handler lists. It serves messages destined for the
// owning process itself: the shell's handlers on the shell side, a
// window's event handlers on the client side.
//
// Dispatch is synchronous: Emit invokes every handler registered for
// the message, in registration order, before returning. A handler that
// panics is recovered at the dispatcher boundary, logged, and does not
// prevent the remaining handlers from running.
//
// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[ref.MessageName][]Handler
}

// NewDispatcher creates an empty dispatcher that reports handler
// failures to logger.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		handlers: make(map[ref.MessageName][]Handler),
	}
}

// Register appends handler to the list for message. Handlers fire in
// registration order. There is no deregistration: handler sets are
// fixed topology, established at process startup, and live for the
// process lifetime.
func (d *Dispatcher) Register(message ref.MessageName, handler Handler) {
	if message.IsZero() {
		d.logger.Error("handler registration with empty message name dropped")
		return
	}
	if handler == nil {
		d.logger.Error("nil handler registration dropped", "message", message)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[message] = append(d.handlers[message], handler)
}

// Emit synchronously invokes all handlers registered for message, in
// registration order, and reports whether at least one handler was
// registered. Callers use the return to detect "no listener"
// conditions and report them rather than fail silently.
//
// The handler list is snapshotted before invocation, so a handler that
// registers further handlers for the same message does not see them
// fire during the current emit.
func (d *Dispatcher) Emit(ctx Context, message ref.MessageName, args []any) bool {
	d.mu.Lock()
	registered := d.handlers[message]
	snapshot := make([]Handler, len(registered))
	copy(snapshot, registered)
	d.mu.Unlock()

	if len(snapshot) == 0 {
		return false
	}
	for _, handler := range snapshot {
		d.invoke(ctx, message, handler, args)
	}
	return true
}

// invoke runs one handler with panic containment. A panicking handler
// is a bug in the handler, not a fabric failure: the panic is logged
// and swallowed so the remaining handlers still run and the delivering
// call survives.
func (d *Dispatcher) invoke(ctx Context, message ref.MessageName, handler Handler, args []any) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("handler panicked",
				"message", message,
				"origin", ctx.Origin,
				"panic", recovered,
			)
		}
	}()
	handler(ctx, args)
}

// Names returns the sorted message names with at least one registered
// handler. Used by diagnostics and for did-you-mean suggestions on
// unhandled requests.
func (d *Dispatcher) Names() []ref.MessageName {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]ref.MessageName, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
