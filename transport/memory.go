// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "net"

// NewMemoryPair returns two connected Conns backed by an in-process
// pipe, no sockets involved: frames sent on one side arrive on the
// other. For tests that exercise framing, queueing, and intake logic
// without a filesystem socket. The pipe is synchronous, so a stalled
// reader exercises the write-deadline and queue-overflow paths
// realistically.
func NewMemoryPair(shellOptions, windowOptions Options) (shellSide, windowSide *Conn) {
	shellEnd, windowEnd := net.Pipe()
	return NewConn(shellEnd, shellOptions), NewConn(windowEnd, windowOptions)
}
