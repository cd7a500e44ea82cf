// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/agnivade/levenshtein"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// Fabric is the shell-side assembly of the messaging core: the shell's
// own handler dispatcher, the session manager for shell-originated
// requests, and the router over the live window registry. The shell's
// broker owns one Fabric and feeds it both the shell's local calls and
// the decoded frames arriving from window connections.
type Fabric struct {
	dispatcher *Dispatcher
	sessions   *SessionManager
	router     *Router
	logger     *slog.Logger
}

// New assembles a fabric over the given collaborators. The registry
// and resolver are consumed read-only; logger receives the fabric's
// diagnostics and must not be nil.
func New(registry WindowRegistry, panels PanelResolver, logger *slog.Logger) *Fabric {
	dispatcher := NewDispatcher(logger)
	return &Fabric{
		dispatcher: dispatcher,
		sessions:   NewSessionManager(logger),
		router:     NewRouter(registry, panels, dispatcher, logger),
		logger:     logger,
	}
}

// Handle registers a handler for message on the shell's dispatcher.
// Handlers receive broadcasts that include the shell, events addressed
// to the shell, and requests (with Context.Reply set).
func (f *Fabric) Handle(message ref.MessageName, handler Handler) {
	f.dispatcher.Register(message, handler)
}

// HandlerNames returns the sorted message names the shell currently
// handles. Diagnostics only.
func (f *Fabric) HandlerNames() []ref.MessageName {
	return f.dispatcher.Names()
}

// PendingSessions returns the number of shell-originated requests
// awaiting a reply. Diagnostics only.
func (f *Fabric) PendingSessions() int {
	return f.sessions.PendingCount()
}

// ---- Shell-originated operations (origin: the shell itself) ----

// BroadcastWindows sends an event to every live window.
func (f *Fabric) BroadcastWindows(message ref.MessageName, args ...any) error {
	if message.IsZero() {
		f.logger.Error("broadcast with empty message name rejected")
		return ErrInvalidMessageName
	}
	f.router.BroadcastWindows(nil, message, args, BroadcastOptions{})
	return nil
}

// BroadcastAll sends an event to every live window and to the shell's
// own handlers. With options.ExcludeSelf the shell's local leg is
// skipped.
func (f *Fabric) BroadcastAll(options BroadcastOptions, message ref.MessageName, args ...any) error {
	if message.IsZero() {
		f.logger.Error("broadcast with empty message name rejected")
		return ErrInvalidMessageName
	}
	f.router.BroadcastAll(nil, message, args, options)
	return nil
}

// SendToMain sends an event to the main window. When no main window is
// registered the message is dropped with a warning and SendToMain
// still returns nil: main-window absence is window lifecycle, not a
// caller error, and this fire-and-forget surface deliberately does not
// report it.
func (f *Fabric) SendToMain(message ref.MessageName, args ...any) error {
	if message.IsZero() {
		f.logger.Error("send with empty message name rejected")
		return ErrInvalidMessageName
	}
	f.router.SendToMain(nil, message, args)
	return nil
}

// SendToPanel sends an event to the window hosting panel, shaped for
// the panel's kind. Unresolvable panels are dropped silently.
func (f *Fabric) SendToPanel(panel ref.PanelID, message ref.MessageName, args ...any) error {
	if message.IsZero() {
		f.logger.Error("send with empty message name rejected")
		return ErrInvalidMessageName
	}
	if panel.IsZero() {
		f.logger.Error("send with empty panel ID rejected", "message", message)
		return ErrInvalidPanelID
	}
	f.router.SendToPanel(nil, panel, message, args)
	return nil
}

// Dispatch delivers an event to the shell's own handlers and reports
// whether at least one was registered.
func (f *Fabric) Dispatch(message ref.MessageName, args ...any) bool {
	return f.router.Dispatch(nil, message, args)
}

// Request starts a correlated exchange against the shell's own
// handlers and returns the pending handle. The handle is returned
// unconditionally once the session is registered, so the caller can
// cancel even before observing any reply — though with synchronous
// local dispatch the reply (or the no-listener failure) is typically
// already buffered on Done() when Request returns.
func (f *Fabric) Request(message ref.MessageName, args ...any) (*Pending, error) {
	if message.IsZero() {
		f.logger.Error("request with empty message name rejected")
		return nil, ErrInvalidMessageName
	}

	id := f.sessions.Allocate()
	pending := f.sessions.Register(id)
	if pending == nil {
		// Unreachable under correct sequencing: ids are single-use.
		return nil, ErrSessionExists
	}

	reply := f.newReplyFunc(id, message, func(args []any) {
		f.sessions.Fire(id, Reply{Args: args})
	})
	ctx := f.router.localContext(nil)
	ctx.Reply = reply

	if !f.dispatcher.Emit(ctx, message, args) {
		f.failUnhandled(id, message, func(failure Reply) {
			f.sessions.Fire(id, failure)
		})
	}
	return pending, nil
}

// Call is the blocking convenience over Request: it awaits the reply
// or ctx cancellation, cancelling the session on the way out. The
// fabric itself imposes no timeout — an unanswered request waits until
// ctx says otherwise.
func (f *Fabric) Call(ctx context.Context, message ref.MessageName, args ...any) ([]any, error) {
	pending, err := f.Request(message, args...)
	if err != nil {
		return nil, err
	}
	select {
	case reply := <-pending.Done():
		return reply.Args, reply.Err
	case <-ctx.Done():
		pending.Cancel()
		return nil, ctx.Err()
	}
}

// CancelRequest abandons a pending shell-originated request. A reply
// arriving afterward is a harmless no-op.
func (f *Fabric) CancelRequest(id ref.SessionID) {
	f.sessions.Cancel(id)
}

// ---- Inbound frames from window connections ----

// HandleBroadcastWindows routes a window's broadcast-to-windows frame.
func (f *Fabric) HandleBroadcastWindows(origin Endpoint, message ref.MessageName, args []any, options BroadcastOptions) {
	f.router.BroadcastWindows(origin, message, args, options)
}

// HandleBroadcastAll routes a window's broadcast-to-all frame.
func (f *Fabric) HandleBroadcastAll(origin Endpoint, message ref.MessageName, args []any, options BroadcastOptions) {
	f.router.BroadcastAll(origin, message, args, options)
}

// HandleSendToMain routes a window's send-to-main frame.
func (f *Fabric) HandleSendToMain(origin Endpoint, message ref.MessageName, args []any) {
	f.router.SendToMain(origin, message, args)
}

// HandleSendToPanel routes a window's send-to-panel frame.
func (f *Fabric) HandleSendToPanel(origin Endpoint, panel ref.PanelID, message ref.MessageName, args []any) {
	f.router.SendToPanel(origin, panel, message, args)
}

// HandleEvent dispatches a window's shell-addressed event to the
// shell's handlers. An event nobody listens for is dropped quietly;
// unlike requests, events carry no channel to report the absence on.
func (f *Fabric) HandleEvent(origin Endpoint, message ref.MessageName, args []any) {
	if !f.router.Dispatch(origin, message, args) {
		f.logger.Debug("no handler for event",
			"message", message,
			"origin", originID(origin),
		)
	}
}

// HandleRequest dispatches a window's request to the shell's handlers,
// injecting a single-fire reply function bound to (origin, session).
// When no handler is registered, a reply envelope carrying the
// no-listener error goes straight back to the origin, so the window's
// pending session fails explicitly instead of hanging forever.
func (f *Fabric) HandleRequest(origin Endpoint, session ref.SessionID, message ref.MessageName, args []any) {
	if session.IsZero() {
		f.logger.Error("request frame without session ID dropped",
			"message", message,
			"origin", originID(origin),
		)
		return
	}

	reply := f.newReplyFunc(session, message, func(args []any) {
		origin.Deliver(Envelope{
			Kind:    KindReply,
			Session: session,
			Args:    args,
		})
	})
	ctx := f.router.localContext(origin)
	ctx.Reply = reply

	if !f.dispatcher.Emit(ctx, message, args) {
		f.failUnhandled(session, message, func(failure Reply) {
			origin.Deliver(Envelope{
				Kind:    KindReply,
				Session: session,
				Message: message,
				Error:   failure.Err.Error(),
			})
		})
	}
}

// newReplyFunc builds the single-fire reply wrapper for one request.
// The wrapper enforces at-most-once independently of the session
// manager: it guards the handler's usage, which lives in different
// code than the session owner. A second invocation is reported and
// discarded, never delivered.
func (f *Fabric) newReplyFunc(session ref.SessionID, message ref.MessageName, deliver func(args []any)) ReplyFunc {
	var fired atomic.Bool
	return func(args ...any) error {
		if !fired.CompareAndSwap(false, true) {
			f.logger.Error("duplicate reply discarded",
				"session", session,
				"message", message,
			)
			return ErrReplyAlreadySent
		}
		deliver(args)
		return nil
	}
}

// failUnhandled reports an unhandled request back through deliver,
// with a did-you-mean suggestion when a registered name is close.
func (f *Fabric) failUnhandled(session ref.SessionID, message ref.MessageName, deliver func(Reply)) {
	failure := &NoListenerError{
		Message:    message,
		Suggestion: f.suggest(message),
	}
	f.logger.Warn("request has no listener",
		"message", message,
		"session", session,
		"suggestion", failure.Suggestion,
	)
	deliver(Reply{Err: failure})
}

// suggestThreshold is the maximum edit distance for a did-you-mean
// suggestion. Three catches transpositions, dropped characters, and
// extra characters without suggesting unrelated names.
const suggestThreshold = 3

// suggest returns the registered message name closest to unknown, or
// zero when nothing is within the typo threshold.
func (f *Fabric) suggest(unknown ref.MessageName) ref.MessageName {
	var best ref.MessageName
	bestDistance := suggestThreshold + 1
	for _, name := range f.dispatcher.Names() {
		distance := levenshtein.ComputeDistance(string(unknown), string(name))
		if distance < bestDistance {
			bestDistance = distance
			best = name
		}
	}
	return best
}
