// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge provides a TCP-to-Unix socket forwarder for the
// shell's diagnostics socket.
//
// The diagnostics socket is a filesystem object: it is unreachable
// from outside its mount namespace (a containerized shell) and from
// other machines. The bridge solves this by listening on a TCP port
// bound to 127.0.0.1 and forwarding every accepted connection to the
// diagnostics socket, so mullion-trace and mullion-send --status can
// attach from the host side or through an SSH tunnel:
//
//	ssh -L 8650:127.0.0.1:8650 devbox
//	mullion-trace --diagnostics-socket ... # via a local forwarder
//
// [Bridge] is the single type. Start validates that the diagnostics
// socket is reachable, binds the TCP listener, and accepts in a
// background goroutine. Each connection is spliced with a
// bidirectional copy; the diagnostics protocol is length-framed CBOR
// with no half-close signalling, so a pair is torn down as soon as
// either leg closes. Stop shuts the listener down and drains in-flight
// connections; Wait blocks until that has happened. Addr returns the
// bound address, which may use an ephemeral port if port 0 was
// requested.
package bridge
