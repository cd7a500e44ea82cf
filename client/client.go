// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/clock"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/transport"
)

// Options configures a window's connection to the shell.
type Options struct {
	// SocketPath is the shell's listening socket.
	SocketPath string

	// Window is the identity this process claims. Required, and
	// unique among live windows; the shell rejects duplicates.
	Window ref.WindowID

	// Role is the window's role claim. A main claim may be demoted to
	// secondary by the shell when the slot is already held.
	Role ref.Role

	// Panels lists the panel ids this window hosts. Panels the
	// manifest does not declare are recorded but not routed until a
	// manifest reload declares them.
	Panels []ref.PanelID

	// QueueSize, Compression, CompressThreshold, and WriteTimeout
	// configure the underlying connection. Zero values select the
	// transport defaults.
	QueueSize         int
	Compression       transport.CompressionTag
	CompressThreshold int
	WriteTimeout      time.Duration

	// Logger receives the client's diagnostics. Nil selects
	// slog.Default().
	Logger *slog.Logger

	// Clock supplies connection deadlines. Nil selects the real clock.
	Clock clock.Clock
}

// Client is one window's live connection to the shell. Its outbound
// methods are safe for concurrent use and never block: frames ride the
// connection's bounded queue, and a queue that fills drops rather than
// stalls. Inbound traffic is dispatched synchronously on the read
// loop to handlers registered with Handle and HandlePanel.
type Client struct {
	logger   *slog.Logger
	conn     *transport.Conn
	window   ref.WindowID
	instance string

	dispatcher *fabric.Dispatcher
	sessions   *fabric.SessionManager

	panelMu       sync.Mutex
	panelHandlers map[ref.PanelID][]PanelHandler
}

// PanelHandler processes one message delivered to a composite panel.
// Unlike Handler it receives the message name: a composite panel's
// window demultiplexes by panel first and message second.
type PanelHandler func(ctx fabric.Context, message ref.MessageName, args []any)

// Dial connects to the shell, performs the hello/welcome handshake,
// and starts the read loop. The instance id sent with the hello is a
// fresh UUID, distinguishing this process from earlier holders of the
// same window id in logs and traces.
func Dial(ctx context.Context, options Options) (*Client, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	instance := uuid.NewString()

	conn, err := transport.Dial(ctx, options.SocketPath, transport.Hello{
		Window:   options.Window,
		Role:     options.Role,
		Instance: instance,
		Panels:   options.Panels,
	}, transport.Options{
		Logger:            logger,
		Clock:             options.Clock,
		QueueSize:         options.QueueSize,
		Compression:       options.Compression,
		CompressThreshold: options.CompressThreshold,
		WriteTimeout:      options.WriteTimeout,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger:        logger,
		conn:          conn,
		window:        options.Window,
		instance:      instance,
		dispatcher:    fabric.NewDispatcher(logger),
		sessions:      fabric.NewSessionManager(logger),
		panelHandlers: make(map[ref.PanelID][]PanelHandler),
	}
	logger.Info("connected to shell",
		"window", options.Window,
		"role", options.Role,
		"instance", instance,
	)
	go c.readLoop()
	return c, nil
}

// Window returns the window identity this client connected as.
func (c *Client) Window() ref.WindowID { return c.window }

// Instance returns the instance id minted at dial time.
func (c *Client) Instance() string { return c.instance }

// PendingRequests returns the number of requests awaiting a reply.
// Diagnostics only.
func (c *Client) PendingRequests() int { return c.sessions.PendingCount() }

// Close tears down the connection. Idempotent; pending requests fail
// with ErrConnectionLost once the read loop observes the close.
func (c *Client) Close() error { return c.conn.Close() }

// Done returns a channel closed when the connection is down, whether
// by Close or by the shell going away. There is no reconnection:
// windows are children of the shell process, and a lost shell means
// the application is coming down.
func (c *Client) Done() <-chan struct{} { return c.conn.Done() }

// ---- Registration ----

// Handle registers a handler for inbound events named message:
// broadcasts, sends targeted at this window, and events for its
// simple-kind panels, which arrive as plain events. Handlers fire in
// registration order, synchronously on the read loop.
func (c *Client) Handle(message ref.MessageName, handler fabric.Handler) {
	c.dispatcher.Register(message, handler)
}

// HandlePanel registers a handler for every message addressed to the
// composite panel. Simple-kind panels never produce panel envelopes;
// their messages arrive through Handle.
func (c *Client) HandlePanel(panel ref.PanelID, handler PanelHandler) {
	if panel.IsZero() {
		c.logger.Error("panel handler registration with empty panel id dropped")
		return
	}
	if handler == nil {
		c.logger.Error("nil panel handler registration dropped", "panel", panel)
		return
	}
	c.panelMu.Lock()
	defer c.panelMu.Unlock()
	c.panelHandlers[panel] = append(c.panelHandlers[panel], handler)
}

// ---- Fire-and-forget sends ----

// BroadcastWindows sends an event to every live window, this one
// included.
func (c *Client) BroadcastWindows(message ref.MessageName, args ...any) error {
	if err := c.checkMessage("broadcast", message); err != nil {
		return err
	}
	return c.deliver(transport.Frame{
		Type:    transport.FrameBroadcastWindows,
		Message: message,
		Args:    args,
	})
}

// BroadcastAll sends an event to every live window and to the shell's
// handlers. With options.ExcludeSelf the sending window is removed
// from the delivery set; the shell's local leg always runs.
func (c *Client) BroadcastAll(options fabric.BroadcastOptions, message ref.MessageName, args ...any) error {
	if err := c.checkMessage("broadcast", message); err != nil {
		return err
	}
	return c.deliver(transport.Frame{
		Type:        transport.FrameBroadcastAll,
		Message:     message,
		ExcludeSelf: options.ExcludeSelf,
		Args:        args,
	})
}

// SendToMain sends an event to the main window. When no main window is
// registered the shell drops the message with a warning; this surface
// is fire-and-forget and does not report it.
func (c *Client) SendToMain(message ref.MessageName, args ...any) error {
	if err := c.checkMessage("send", message); err != nil {
		return err
	}
	return c.deliver(transport.Frame{
		Type:    transport.FrameSendMain,
		Message: message,
		Args:    args,
	})
}

// SendToPanel sends an event to the window hosting panel, shaped for
// the panel's kind by the shell. Unclaimed and undeclared panels are
// dropped at the shell.
func (c *Client) SendToPanel(panel ref.PanelID, message ref.MessageName, args ...any) error {
	if err := c.checkMessage("send", message); err != nil {
		return err
	}
	if panel.IsZero() {
		c.logger.Error("send with empty panel ID rejected", "message", message)
		return fabric.ErrInvalidPanelID
	}
	return c.deliver(transport.Frame{
		Type:    transport.FrameSendPanel,
		Panel:   panel,
		Message: message,
		Args:    args,
	})
}

// SendToShell sends a fire-and-forget event to the shell's handlers.
// An event the shell has no handler for is dropped there; callers that
// need that failure reported use Request instead.
func (c *Client) SendToShell(message ref.MessageName, args ...any) error {
	if err := c.checkMessage("send", message); err != nil {
		return err
	}
	return c.deliver(transport.Frame{
		Type:    transport.FrameEvent,
		Message: message,
		Args:    args,
	})
}

// ---- Correlated requests ----

// Request starts a correlated exchange against the shell's handlers
// and returns the pending handle. The reply, or an explicit
// no-listener failure, fires the handle's Done channel at most once;
// there is no implicit timeout, and cancellation only suppresses the
// local continuation. A request frame the outbound queue does not
// accept fails immediately with ErrRequestNotSent rather than pending
// forever.
func (c *Client) Request(message ref.MessageName, args ...any) (*fabric.Pending, error) {
	if err := c.checkMessage("request", message); err != nil {
		return nil, err
	}

	id := c.sessions.Allocate()
	pending := c.sessions.Register(id)
	if pending == nil {
		// Unreachable under correct sequencing: ids are single-use.
		return nil, fabric.ErrSessionExists
	}
	if !c.conn.Send(transport.Frame{
		Type:    transport.FrameRequest,
		Session: id,
		Message: message,
		Args:    args,
	}) {
		pending.Cancel()
		return nil, ErrRequestNotSent
	}
	return pending, nil
}

// Call is the blocking convenience over Request: it awaits the reply
// or ctx cancellation, cancelling the session on the way out. Reply
// failures surface as *RequestError.
func (c *Client) Call(ctx context.Context, message ref.MessageName, args ...any) ([]any, error) {
	pending, err := c.Request(message, args...)
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

// CancelRequest abandons a pending request. A reply arriving afterward
// is a harmless no-op.
func (c *Client) CancelRequest(id ref.SessionID) {
	c.sessions.Cancel(id)
}

// ---- Internals ----

// checkMessage validates a message name before it goes on the wire, so
// misuse surfaces synchronously at the caller instead of as a silent
// drop at the shell's intake.
func (c *Client) checkMessage(op string, message ref.MessageName) error {
	if _, err := ref.ParseMessageName(string(message)); err != nil {
		c.logger.Error(op+" with invalid message name rejected", "error", err)
		return err
	}
	return nil
}

// deliver queues a fire-and-forget frame. A closed connection is
// reported; queue overflow is not — the transport drops and counts it,
// which is the best-effort delivery contract.
func (c *Client) deliver(frame transport.Frame) error {
	select {
	case <-c.conn.Done():
		return ErrConnectionLost
	default:
	}
	c.conn.Send(frame)
	return nil
}

// readLoop pulls frames until the connection ends, then fails every
// pending request: no reply can arrive on a dead connection.
func (c *Client) readLoop() {
	err := c.conn.ReadLoop(c.handleFrame)
	if err != nil {
		c.logger.Warn("shell connection failed", "window", c.window, "error", err)
	} else {
		c.logger.Info("shell connection closed", "window", c.window)
	}
	c.sessions.FailAll(ErrConnectionLost)
}

// handleFrame dispatches one inbound frame. Dispatch is synchronous:
// handlers for earlier frames complete before later frames are
// decoded, preserving per-sender delivery order end to end.
func (c *Client) handleFrame(frame transport.Frame) {
	switch frame.Type {
	case transport.FrameEvent:
		c.dispatchEvent(frame)
	case transport.FramePanelEvent:
		c.dispatchPanelEvent(frame)
	case transport.FrameReply:
		c.fireReply(frame)
	default:
		c.logger.Warn("unexpected frame from shell dropped", "type", frame.Type)
	}
}

func (c *Client) dispatchEvent(frame transport.Frame) {
	ctx := fabric.Context{Origin: frame.Window, Sender: shellSender{client: c}}
	if !c.dispatcher.Emit(ctx, frame.Message, frame.Args) {
		c.logger.Debug("no handler for event",
			"message", frame.Message,
			"origin", frame.Window,
		)
	}
}

func (c *Client) dispatchPanelEvent(frame transport.Frame) {
	c.panelMu.Lock()
	registered := c.panelHandlers[frame.Panel]
	snapshot := make([]PanelHandler, len(registered))
	copy(snapshot, registered)
	c.panelMu.Unlock()

	if len(snapshot) == 0 {
		c.logger.Debug("no handler for panel event",
			"panel", frame.Panel,
			"message", frame.Message,
		)
		return
	}
	ctx := fabric.Context{Origin: frame.Window, Sender: shellSender{client: c}}
	for _, handler := range snapshot {
		c.invokePanelHandler(ctx, frame, handler)
	}
}

// invokePanelHandler runs one panel handler with panic containment,
// mirroring the dispatcher's policy: a panicking handler is logged and
// swallowed so later handlers and later frames still run.
func (c *Client) invokePanelHandler(ctx fabric.Context, frame transport.Frame, handler PanelHandler) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("panel handler panicked",
				"panel", frame.Panel,
				"message", frame.Message,
				"panic", recovered,
			)
		}
	}()
	handler(ctx, frame.Message, frame.Args)
}

// fireReply completes the pending session a reply frame names. An
// unknown session is expected traffic, not an error: the request was
// cancelled, or a duplicate reply lost the at-most-once race.
func (c *Client) fireReply(frame transport.Frame) {
	reply := fabric.Reply{Args: frame.Args}
	if frame.Error != "" {
		reply.Args = nil
		reply.Err = &RequestError{
			Message:    frame.Message,
			Reason:     frame.Error,
			NoListener: frame.NoListener,
		}
	}
	if !c.sessions.Fire(frame.Session, reply) {
		c.logger.Debug("reply for unknown session dropped", "session", frame.Session)
	}
}

// shellSender is the Sender injected into window-side handler
// contexts. Windows cannot address each other directly, so the
// loop-back capability points at the one counterparty a window has:
// the shell's handlers.
type shellSender struct {
	client *Client
}

func (s shellSender) Send(message ref.MessageName, args ...any) {
	if err := s.client.SendToShell(message, args...); err != nil {
		s.client.logger.Warn("handler send failed", "message", message, "error", err)
	}
}
