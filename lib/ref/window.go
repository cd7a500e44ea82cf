// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// WindowID is a validated window identifier (e.g., "main",
// "settings", "dev-tools-2").
//
// Every window process announces its ID in the hello frame when it
// connects to the shell, and the ID becomes the routing key for
// targeted sends for as long as the connection lives. IDs are slugs:
// lowercase letters, digits, and hyphens, at most 64 characters.
//
// WindowID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type WindowID struct {
	id string
}

// ParseWindowID validates and wraps a raw window identifier.
func ParseWindowID(raw string) (WindowID, error) {
	if err := validateSlug(raw, "window ID"); err != nil {
		return WindowID{}, err
	}
	return WindowID{id: raw}, nil
}

// MustParseWindowID is ParseWindowID that panics on error. For
// constants and tests where the input is known valid.
func MustParseWindowID(raw string) WindowID {
	w, err := ParseWindowID(raw)
	if err != nil {
		panic(err)
	}
	return w
}

// String returns the window ID string.
func (w WindowID) String() string { return w.id }

// IsZero reports whether the WindowID is the zero value (uninitialized).
func (w WindowID) IsZero() bool { return w.id == "" }

// MarshalText implements encoding.TextMarshaler. A zero-value WindowID
// marshals as the empty string, which the shell uses in trace records
// for frames that carry no target.
func (w WindowID) MarshalText() ([]byte, error) {
	return []byte(w.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value, mirroring MarshalText.
func (w *WindowID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*w = WindowID{}
		return nil
	}
	parsed, err := ParseWindowID(string(data))
	if err != nil {
		return fmt.Errorf("unmarshal window ID: %w", err)
	}
	*w = parsed
	return nil
}
