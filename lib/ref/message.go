// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// maxMessageNameLength bounds message names. Names appear in every
// envelope and every trace record; the bound catches payloads pasted
// into the name field by mistake.
const maxMessageNameLength = 128

// MessageName identifies a message on the fabric (e.g.,
// "mullion.window.info", "editor.save-all").
//
// Names are dot-namespaced by convention, but the fabric does not
// interpret the segments: any printable ASCII without whitespace is
// accepted. Handlers register by exact name and routing matches by
// exact name. Constants for built-in messages live in the packages
// that define them.
//
// MessageName is a named string type rather than a struct wrapper:
// handler tables key on it directly and literals like
// MessageName("editor.save-all") read naturally at registration sites.
// Parse it at process boundaries; inside a process the type carries
// the guarantee.
type MessageName string

// ParseMessageName validates a raw message name: non-empty, at most
// 128 characters, printable ASCII, no whitespace.
func ParseMessageName(raw string) (MessageName, error) {
	if raw == "" {
		return "", fmt.Errorf("message name is empty")
	}
	if len(raw) > maxMessageNameLength {
		return "", fmt.Errorf("message name %q is %d characters, maximum is %d", raw, len(raw), maxMessageNameLength)
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c <= ' ' || c > '~' {
			return "", fmt.Errorf("message name %q: invalid character at position %d (printable ASCII only, no whitespace)", raw, i)
		}
	}
	return MessageName(raw), nil
}

// String returns the message name string.
func (m MessageName) String() string { return string(m) }

// IsZero reports whether the MessageName is empty.
func (m MessageName) IsZero() bool { return m == "" }
