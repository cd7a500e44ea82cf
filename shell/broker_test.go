// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/lib/testutil"
	"github.com/mullion-foundation/mullion/transport"
)

// startBroker runs a broker on a fresh socket pair until test cleanup.
func startBroker(t *testing.T, mutate func(*Options)) (*Broker, Options) {
	t.Helper()

	dir := testutil.SocketDir(t)
	options := Options{
		SocketPath: filepath.Join(dir, "shell.sock"),
		PanelKinds: testKinds(),
		Logger:     testutil.NewTestLogger(t),
	}
	if mutate != nil {
		mutate(&options)
	}

	broker := NewBroker(options)
	if err := broker.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- broker.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "broker did not shut down"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return broker, options
}

// testWindow is an in-test window process: a dialed connection with
// its inbound frames buffered for assertions.
type testWindow struct {
	t      *testing.T
	id     ref.WindowID
	conn   *transport.Conn
	frames chan transport.Frame
}

func connectWindow(t *testing.T, socketPath, id string, role ref.Role, panels ...ref.PanelID) *testWindow {
	t.Helper()
	conn, err := dialWindow(t, socketPath, id, role, panels...)
	if err != nil {
		t.Fatalf("dial %s: %v", id, err)
	}
	return watchConn(t, id, conn)
}

func dialWindow(t *testing.T, socketPath, id string, role ref.Role, panels ...ref.PanelID) (*transport.Conn, error) {
	t.Helper()
	return transport.Dial(context.Background(), socketPath, transport.Hello{
		Window:   ref.MustParseWindowID(id),
		Role:     role,
		Instance: testutil.UniqueID("instance"),
		Panels:   panels,
	}, transport.Options{Logger: testutil.NewTestLogger(t)})
}

func watchConn(t *testing.T, id string, conn *transport.Conn) *testWindow {
	t.Helper()
	w := &testWindow{
		t:      t,
		id:     ref.MustParseWindowID(id),
		conn:   conn,
		frames: make(chan transport.Frame, 64),
	}
	go conn.ReadLoop(func(frame transport.Frame) {
		w.frames <- frame
	})
	t.Cleanup(func() { conn.Close() })
	return w
}

func (w *testWindow) send(frame transport.Frame) {
	w.t.Helper()
	if !w.conn.Send(frame) {
		w.t.Fatalf("window %s: send failed", w.id)
	}
}

func (w *testWindow) expectFrame() transport.Frame {
	w.t.Helper()
	return testutil.RequireReceive(w.t, w.frames, 5*time.Second,
		"window %s received no frame", w.id)
}

func (w *testWindow) expectNoFrame() {
	w.t.Helper()
	select {
	case frame := <-w.frames:
		w.t.Fatalf("window %s received unexpected %s frame (message %q)",
			w.id, frame.Type, frame.Message)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBroadcastWindowsFanOut(t *testing.T) {
	_, options := startBroker(t, nil)
	sender := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	second := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)
	third := connectWindow(t, options.SocketPath, "terminal", ref.RoleSecondary)

	sender.send(transport.Frame{
		Type:    transport.FrameBroadcastWindows,
		Message: "theme.changed",
		Args:    []any{"dark"},
	})

	// Every window receives the event, the sender included, each
	// carrying the sender's identity as origin.
	for _, w := range []*testWindow{sender, second, third} {
		frame := w.expectFrame()
		if frame.Type != transport.FrameEvent {
			t.Fatalf("window %s got %s frame, want event", w.id, frame.Type)
		}
		if frame.Message != "theme.changed" {
			t.Errorf("window %s got message %q, want theme.changed", w.id, frame.Message)
		}
		if frame.Window != sender.id {
			t.Errorf("window %s sees origin %q, want %q", w.id, frame.Window, sender.id)
		}
		if len(frame.Args) != 1 || frame.Args[0] != "dark" {
			t.Errorf("window %s got args %v, want [dark]", w.id, frame.Args)
		}
	}
}

func TestBroadcastWindowsExcludeSelf(t *testing.T) {
	_, options := startBroker(t, nil)
	sender := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	other := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	sender.send(transport.Frame{
		Type:        transport.FrameBroadcastWindows,
		Message:     "cursor.moved",
		ExcludeSelf: true,
	})

	if frame := other.expectFrame(); frame.Message != "cursor.moved" {
		t.Fatalf("other window got message %q, want cursor.moved", frame.Message)
	}
	sender.expectNoFrame()
}

func TestBroadcastAllReachesShellHandlers(t *testing.T) {
	broker, options := startBroker(t, nil)

	received := make(chan []any, 1)
	broker.Fabric().Handle("workspace.saved", func(ctx fabric.Context, args []any) {
		if ctx.Origin.String() != "editor" {
			t.Errorf("handler origin = %q, want editor", ctx.Origin)
		}
		received <- args
	})

	sender := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	other := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	sender.send(transport.Frame{
		Type:    transport.FrameBroadcastAll,
		Message: "workspace.saved",
		Args:    []any{"workspace-1"},
	})

	args := testutil.RequireReceive(t, received, 5*time.Second, "shell handler not invoked")
	if len(args) != 1 || args[0] != "workspace-1" {
		t.Errorf("handler args = %v, want [workspace-1]", args)
	}
	if frame := other.expectFrame(); frame.Message != "workspace.saved" {
		t.Errorf("other window got %q, want workspace.saved", frame.Message)
	}
	if frame := sender.expectFrame(); frame.Message != "workspace.saved" {
		t.Errorf("sender got %q, want workspace.saved", frame.Message)
	}
}

func TestBroadcastAllExcludeSelfStillReachesShell(t *testing.T) {
	broker, options := startBroker(t, nil)

	received := make(chan []any, 1)
	broker.Fabric().Handle("workspace.saved", func(ctx fabric.Context, args []any) {
		received <- args
	})

	sender := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	sender.send(transport.Frame{
		Type:        transport.FrameBroadcastAll,
		Message:     "workspace.saved",
		ExcludeSelf: true,
	})

	// ExcludeSelf removes the sending window, not the shell.
	testutil.RequireReceive(t, received, 5*time.Second, "shell handler not invoked")
	sender.expectNoFrame()
}

func TestSendToMain(t *testing.T) {
	_, options := startBroker(t, nil)
	main := connectWindow(t, options.SocketPath, "main-window", ref.RoleMain)
	sender := connectWindow(t, options.SocketPath, "palette", ref.RoleUtility)

	sender.send(transport.Frame{
		Type:    transport.FrameSendMain,
		Message: "file.open",
		Args:    []any{"/tmp/notes.txt"},
	})

	frame := main.expectFrame()
	if frame.Type != transport.FrameEvent {
		t.Fatalf("main got %s frame, want event", frame.Type)
	}
	if frame.Message != "file.open" {
		t.Errorf("message = %q, want file.open", frame.Message)
	}
	if frame.Window != sender.id {
		t.Errorf("origin = %q, want %q", frame.Window, sender.id)
	}
	sender.expectNoFrame()
}

func TestSendToMainWithoutMainIsDropped(t *testing.T) {
	_, options := startBroker(t, nil)
	sender := connectWindow(t, options.SocketPath, "palette", ref.RoleUtility)
	bystander := connectWindow(t, options.SocketPath, "inspector", ref.RoleSecondary)

	sender.send(transport.Frame{
		Type:    transport.FrameSendMain,
		Message: "file.open",
	})

	sender.expectNoFrame()
	bystander.expectNoFrame()

	// The drop is not a fault: the connection keeps working.
	sender.send(transport.Frame{
		Type:    transport.FrameBroadcastWindows,
		Message: "still.alive",
	})
	if frame := bystander.expectFrame(); frame.Message != "still.alive" {
		t.Errorf("follow-up message = %q, want still.alive", frame.Message)
	}
}

func TestMainConflictDemotesSecondClaim(t *testing.T) {
	broker, options := startBroker(t, nil)
	first := connectWindow(t, options.SocketPath, "main-window", ref.RoleMain)
	pretender := connectWindow(t, options.SocketPath, "pretender", ref.RoleMain)
	sender := connectWindow(t, options.SocketPath, "palette", ref.RoleUtility)

	sender.send(transport.Frame{
		Type:    transport.FrameSendMain,
		Message: "file.open",
	})
	if frame := first.expectFrame(); frame.Message != "file.open" {
		t.Fatalf("first main got %q, want file.open", frame.Message)
	}
	pretender.expectNoFrame()

	// The holder leaving vacates the slot; the demoted window is not
	// promoted into it.
	first.conn.Close()
	awaitWindowGone(t, broker, "main-window")

	sender.send(transport.Frame{
		Type:    transport.FrameSendMain,
		Message: "file.open",
	})
	pretender.expectNoFrame()
}

// awaitWindowGone waits until the broker has processed the named
// window's disconnect, observed by its id leaving the registry. A
// dial probe cannot observe this without claiming the id itself and
// leaving a fresh disconnect behind for the caller to race against.
func awaitWindowGone(t *testing.T, broker *Broker, id string) {
	t.Helper()
	window := ref.MustParseWindowID(id)
	deadline := time.Now().Add(5 * time.Second)
	for {
		registered := false
		for _, info := range broker.registry.Snapshot() {
			if info.ID == window {
				registered = true
				break
			}
		}
		if !registered {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("window %s still registered after disconnect", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendToPanelSimple(t *testing.T) {
	_, options := startBroker(t, nil)
	owner := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary, outlinePanel)
	sender := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	sender.send(transport.Frame{
		Type:    transport.FrameSendPanel,
		Panel:   outlinePanel,
		Message: "outline.refresh",
	})

	// Simple panels receive the raw event: no panel id to demux on.
	frame := owner.expectFrame()
	if frame.Type != transport.FrameEvent {
		t.Fatalf("owner got %s frame, want event", frame.Type)
	}
	if !frame.Panel.IsZero() {
		t.Errorf("simple panel event carries panel id %q", frame.Panel)
	}
	if frame.Message != "outline.refresh" {
		t.Errorf("message = %q, want outline.refresh", frame.Message)
	}
}

func TestSendToPanelComposite(t *testing.T) {
	_, options := startBroker(t, nil)
	owner := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary, terminalPanel)
	sender := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	sender.send(transport.Frame{
		Type:    transport.FrameSendPanel,
		Panel:   terminalPanel,
		Message: "terminal.clear",
	})

	frame := owner.expectFrame()
	if frame.Type != transport.FramePanelEvent {
		t.Fatalf("owner got %s frame, want panel-event", frame.Type)
	}
	if frame.Panel != terminalPanel {
		t.Errorf("panel = %q, want %q", frame.Panel, terminalPanel)
	}
	if frame.Window != sender.id {
		t.Errorf("origin = %q, want %q", frame.Window, sender.id)
	}
}

func TestSendToUnclaimedPanelIsDropped(t *testing.T) {
	_, options := startBroker(t, nil)
	sender := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)
	bystander := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)

	sender.send(transport.Frame{
		Type:    transport.FrameSendPanel,
		Panel:   outlinePanel,
		Message: "outline.refresh",
	})

	sender.expectNoFrame()
	bystander.expectNoFrame()
}

func TestRequestReplyRoundTrip(t *testing.T) {
	broker, options := startBroker(t, nil)

	broker.Fabric().Handle("config.get", func(ctx fabric.Context, args []any) {
		if len(args) != 1 {
			t.Errorf("handler args = %v, want one key", args)
		}
		if err := ctx.Reply("dark", "14pt"); err != nil {
			t.Errorf("Reply: %v", err)
		}
	})

	window := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	window.send(transport.Frame{
		Type:    transport.FrameRequest,
		Session: 42,
		Message: "config.get",
		Args:    []any{"appearance"},
	})

	frame := window.expectFrame()
	if frame.Type != transport.FrameReply {
		t.Fatalf("got %s frame, want reply", frame.Type)
	}
	if frame.Session != 42 {
		t.Errorf("session = %d, want 42", frame.Session)
	}
	if frame.Error != "" || frame.NoListener {
		t.Errorf("reply carries error %q (no_listener=%t)", frame.Error, frame.NoListener)
	}
	if len(frame.Args) != 2 || frame.Args[0] != "dark" || frame.Args[1] != "14pt" {
		t.Errorf("reply args = %v, want [dark 14pt]", frame.Args)
	}
}

func TestRequestWithoutListenerFailsExplicitly(t *testing.T) {
	broker, options := startBroker(t, nil)
	broker.Fabric().Handle("window.minimize", func(fabric.Context, []any) {})

	window := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	window.send(transport.Frame{
		Type:    transport.FrameRequest,
		Session: 7,
		Message: "window.minimise",
	})

	frame := window.expectFrame()
	if frame.Type != transport.FrameReply {
		t.Fatalf("got %s frame, want reply", frame.Type)
	}
	if frame.Session != 7 {
		t.Errorf("session = %d, want 7", frame.Session)
	}
	if !frame.NoListener {
		t.Error("reply not marked no_listener")
	}
	if frame.Message != "window.minimise" {
		t.Errorf("reply message = %q, want the request's name echoed", frame.Message)
	}
	if !strings.Contains(frame.Error, `did you mean "window.minimize"`) {
		t.Errorf("error %q carries no suggestion", frame.Error)
	}
}

func TestPerSenderFrameOrder(t *testing.T) {
	_, options := startBroker(t, nil)
	sender := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	receiver := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	const count = 20
	for i := 0; i < count; i++ {
		sender.send(transport.Frame{
			Type:    transport.FrameBroadcastWindows,
			Message: "tick.tock",
			Args:    []any{fmt.Sprintf("%d", i)},
			// The sender's own copies would interleave with the
			// asserted stream, so skip them.
			ExcludeSelf: true,
		})
	}
	for i := 0; i < count; i++ {
		frame := receiver.expectFrame()
		if want := fmt.Sprintf("%d", i); frame.Args[0] != want {
			t.Fatalf("frame %d carries %v, want [%s]", i, frame.Args, want)
		}
	}
}

func TestDuplicateWindowIDRejected(t *testing.T) {
	_, options := startBroker(t, nil)
	connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)

	_, err := dialWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	if err == nil {
		t.Fatal("second connection with the same window id was accepted")
	}
	if !strings.Contains(err.Error(), "already connected") {
		t.Errorf("error %q does not name the conflict", err)
	}
}

func TestInvalidRoleRejected(t *testing.T) {
	_, options := startBroker(t, nil)

	_, err := transport.Dial(context.Background(), options.SocketPath, transport.Hello{
		Window:   ref.MustParseWindowID("editor"),
		Role:     ref.Role("supervisor"),
		Instance: testutil.UniqueID("instance"),
	}, transport.Options{Logger: testutil.NewTestLogger(t)})
	if err == nil {
		t.Fatal("hello with unknown role was accepted")
	}
	if !strings.Contains(err.Error(), "unknown window role") {
		t.Errorf("error %q does not name the bad role", err)
	}
}

func TestDisconnectFreesIDAndPanels(t *testing.T) {
	broker, options := startBroker(t, nil)
	first := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary, outlinePanel)
	sender := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	sender.send(transport.Frame{
		Type:    transport.FrameSendPanel,
		Panel:   outlinePanel,
		Message: "outline.refresh",
	})
	first.expectFrame()

	first.conn.Close()
	awaitWindowGone(t, broker, "editor")

	// The id and the panel claim are both free for a successor.
	successor := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary, outlinePanel)
	sender.send(transport.Frame{
		Type:    transport.FrameSendPanel,
		Panel:   outlinePanel,
		Message: "outline.refresh",
	})
	if frame := successor.expectFrame(); frame.Message != "outline.refresh" {
		t.Errorf("successor got %q, want outline.refresh", frame.Message)
	}
}

func TestShellOriginatedBroadcast(t *testing.T) {
	broker, options := startBroker(t, nil)
	first := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	second := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	if err := broker.Fabric().BroadcastWindows("app.quitting", "save-prompt"); err != nil {
		t.Fatalf("BroadcastWindows: %v", err)
	}

	for _, w := range []*testWindow{first, second} {
		frame := w.expectFrame()
		if frame.Message != "app.quitting" {
			t.Errorf("window %s got %q, want app.quitting", w.id, frame.Message)
		}
		if !frame.Window.IsZero() {
			t.Errorf("shell-originated frame carries origin %q", frame.Window)
		}
	}
}

func TestHandlerSenderLoopsBackToOrigin(t *testing.T) {
	broker, options := startBroker(t, nil)

	broker.Fabric().Handle("ping", func(ctx fabric.Context, args []any) {
		ctx.Sender.Send("pong")
	})

	window := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	window.send(transport.Frame{
		Type:    transport.FrameEvent,
		Message: "ping",
	})

	if frame := window.expectFrame(); frame.Message != "pong" {
		t.Errorf("loop-back message = %q, want pong", frame.Message)
	}
}

func TestInvalidMessageNameDropped(t *testing.T) {
	_, options := startBroker(t, nil)
	sender := connectWindow(t, options.SocketPath, "editor", ref.RoleSecondary)
	receiver := connectWindow(t, options.SocketPath, "inspector", ref.RoleUtility)

	// A message name with whitespace fails boundary validation.
	sender.send(transport.Frame{
		Type:    transport.FrameBroadcastWindows,
		Message: "bad name",
	})
	receiver.expectNoFrame()

	sender.send(transport.Frame{
		Type:    transport.FrameBroadcastWindows,
		Message: "good.name",
	})
	if frame := receiver.expectFrame(); frame.Message != "good.name" {
		t.Errorf("follow-up message = %q, want good.name", frame.Message)
	}
}
