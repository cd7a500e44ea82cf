// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "strconv"

// SessionID correlates a request with its eventual reply or
// cancellation. IDs are allocated by the requesting process, start at
// 1000, and increase monotonically for the life of that process; zero
// means "no session" and marks fire-and-forget envelopes.
//
// Correlation is scoped to the connection that allocated the ID, so
// two windows may use the same numeric ID without colliding.
type SessionID uint64

// String returns the decimal form of the session ID.
func (s SessionID) String() string { return strconv.FormatUint(uint64(s), 10) }

// IsZero reports whether the SessionID marks a fire-and-forget
// envelope.
func (s SessionID) IsZero() bool { return s == 0 }
