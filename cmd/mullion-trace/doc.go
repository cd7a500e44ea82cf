// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Mullion-trace is a terminal viewer for a running shell's frame
// trace. It subscribes to the diagnostics socket's trace stream and
// renders the entries in a scrolling table: newest-first follow mode,
// pause with buffering, substring filtering, and a detail view for a
// selected entry. The shell traces envelopes only, so the viewer shows
// who said what to whom and never payload contents.
//
// The screen is drawn by lib/traceui; this binary owns the connection,
// decodes the wire entries, and feeds the model's channel.
package main
