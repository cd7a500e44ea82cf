// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package shell composes the coordinating process of a Mullion
// application: the broker that owns the window socket, the live window
// registry, the panel routing table, and the fabric that routes
// messages between all of them.
//
// A [Broker] is constructed from [Options], bound with Listen, and run
// with Serve. Window processes connect to the Unix socket, identify
// themselves with a hello frame, and from then on every frame they
// send is translated into a fabric operation: broadcasts fan out to
// the other windows, targeted sends resolve through the registry and
// panel table, and requests dispatch to the shell's handlers with a
// reply routed back to the origin.
//
// Shell-side code participates through the broker's Fabric: Handle
// registers request and event handlers, and the Broadcast/Send/Request
// methods mirror the surface window clients get, minus the socket.
//
// The broker optionally exposes a diagnostics socket (see
// [Broker.Fabric], [Status], and shell/diag.go) speaking the
// lib/service action protocol: a status snapshot and a live trace
// stream of frame traffic, consumed by mullion-send --status and
// mullion-trace.
package shell
