// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Mullion-send performs one fabric operation against a running shell
// and exits: broadcast, broadcast-all, send-main, send-panel, or
// request. It connects as a short-lived utility window, so everything
// it sends is ordinary window traffic, visible in mullion-trace like
// any other. With --status it skips the window socket entirely and
// prints the shell's diagnostics snapshot.
package main
