// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package traceui implements the interactive trace viewer: a bubbletea
// model over the shell's diagnostics trace stream.
//
// The model consumes Entry values from a channel (fed by whatever
// decodes the stream), renders them as a scrolling table, and layers
// the interactive affordances on top: follow mode pinned to the newest
// entry, pause/resume with buffering, a substring filter over the
// routable fields, and a detail view of the selected entry.
//
// The package draws the screen; it does not own the connection.
// Closing the entry channel tells the viewer the stream is over.
package traceui
