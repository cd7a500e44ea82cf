// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Mullion-bridge forwards loopback TCP connections to a shell's
// diagnostics Unix socket, so trace and status tooling can reach a
// shell across a mount-namespace or machine boundary. Supports
// standalone mode (listen and forward until interrupted) and exec mode
// (start the bridge, run a child command, stop when it exits).
package main
