// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// checkPeerCredentials verifies that the peer on an accepted Unix
// socket connection runs as the same user as this process. The socket
// lives in a user-owned runtime directory, so in the normal case this
// never fires; it is a hygiene check against misconfigured socket
// permissions, not authentication.
func checkPeerCredentials(conn net.Conn) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("peer credentials: not a unix connection (%T)", conn)
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return fmt.Errorf("peer credentials: %w", err)
	}

	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return fmt.Errorf("peer credentials: %w", err)
	}
	if credErr != nil {
		return fmt.Errorf("peer credentials: %w", credErr)
	}

	if int(cred.Uid) != os.Getuid() {
		return fmt.Errorf("peer uid %d does not match process uid %d (pid %d)", cred.Uid, os.Getuid(), cred.Pid)
	}
	return nil
}
