// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the window-side library: everything a
// window-hosted process needs to participate in the messaging fabric.
//
// A window dials the shell socket with its identity, role, and panel
// claims:
//
//	c, err := client.Dial(ctx, client.Options{
//		SocketPath: socket,
//		Window:     ref.MustParseWindowID("editor"),
//		Role:       ref.RoleSecondary,
//		Panels:     []ref.PanelID{ref.MustParsePanelID("editor.outline")},
//	})
//
// Outbound, the client exposes the fabric's caller surface: broadcasts
// (BroadcastWindows, BroadcastAll), targeted sends (SendToMain,
// SendToPanel, SendToShell), and correlated requests against the
// shell's handlers (Request, Call, CancelRequest). Sends are
// fire-and-forget and never block; requests fire their pending handle
// at most once and carry no implicit timeout.
//
// Inbound, handlers registered with Handle receive events addressed to
// this window, and HandlePanel receives the demultiplexed envelopes of
// a composite panel. Dispatch is synchronous on the read loop, in
// frame order, so per-sender delivery order is preserved end to end.
// Register handlers before traffic is expected; an event nobody
// handles is dropped.
//
// The client never reconnects: windows are children of the shell
// process, and a vanished shell means the application is coming down.
// Done is closed when the connection ends, at which point every
// pending request fails with ErrConnectionLost.
package client
