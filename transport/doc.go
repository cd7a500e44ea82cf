// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries frames between the shell and its window
// processes: CBOR payloads over Unix domain sockets, with tagged
// compression above a size threshold and a bounded outbound queue per
// connection.
//
// The package is organized around the connection data flow:
//
//   - frame.go: the Frame wire type and the framed read/write format
//   - compress.go: tagged payload compression (none, lz4, zstd)
//   - conn.go: connection wrapper (writer queue, reader loop)
//   - listener.go: shell-side Unix socket accept loop
//   - dial.go: window-side connect and hello/welcome handshake
//   - peercred.go: same-user peer credential check on accept
//   - memory.go: in-process connection pair for tests
//
// The fabric core never imports this package. The shell composes the
// two, translating inbound frames into fabric operations at intake and
// fabric envelopes into outbound frames at delivery.
package transport
