// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"io"
	"net"
)

// BridgeConnections copies bytes bidirectionally between two
// connections until either side stops. Both connections are closed
// before returning, which unblocks the surviving direction's copy.
//
// There is no half-close propagation: the first direction to finish
// tears the pair down. That suits length-framed protocols, where a
// response is triggered by a complete frame rather than by EOF.
//
// Returns the error from the direction that terminated first, or nil
// when that termination was ordinary teardown (EOF, closed connection,
// reset, broken pipe).
func BridgeConnections(a, b net.Conn) error {
	firstDone := make(chan error, 2)

	splice := func(dst, src net.Conn) {
		_, err := io.Copy(dst, src)
		firstDone <- err
	}
	go splice(b, a)
	go splice(a, b)

	err := <-firstDone
	a.Close()
	b.Close()
	<-firstDone

	if err != nil && !IsExpectedCloseError(err) {
		return err
	}
	return nil
}
