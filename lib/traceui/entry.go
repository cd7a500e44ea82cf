// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package traceui

import (
	"time"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// Entry is one traced frame as shown by the viewer. The caller decodes
// records off the shell's diagnostics stream and converts them before
// handing them to the model, so this package never touches the wire.
type Entry struct {
	// Sequence is the shell-assigned position in the trace, strictly
	// increasing per broker. A gap means the subscriber fell behind
	// and the ring dropped entries.
	Sequence uint64

	// Timestamp is when the shell recorded the frame.
	Timestamp time.Time

	// Direction is "in" (window to shell) or "out" (shell to window).
	Direction string

	// Window is the counterparty window for this frame.
	Window ref.WindowID

	// Kind is the frame kind, for example "request" or
	// "broadcast-windows".
	Kind string

	Message ref.MessageName
	Panel   ref.PanelID
	Session ref.SessionID

	// Args counts the frame's arguments. Payloads are never traced.
	Args int

	// Error is the error text a failure reply carried, empty
	// otherwise.
	Error string
}
