// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// ErrConnectionLost is the failure delivered to every pending request
// when the shell connection ends, and the synchronous result of
// fire-and-forget sends on a closed client.
var ErrConnectionLost = errors.New("connection to shell lost")

// ErrRequestNotSent reports a request frame the outbound queue did not
// accept: the connection is closed or the queue is full. The session
// is cancelled before Request returns; no reply will ever fire.
var ErrRequestNotSent = errors.New("request not sent: connection closed or outbound queue full")

// RequestError is the failure a reply frame carries when the exchange
// failed at the shell rather than in transit. It arrives as the Err of
// the fired Reply, so both Call and Pending.Done observers see it.
type RequestError struct {
	// Message is the request's message name, echoed by the shell on
	// failure replies.
	Message ref.MessageName

	// Reason is the shell's diagnostic text.
	Reason string

	// NoListener reports that the shell had no handler registered for
	// the message.
	NoListener bool
}

func (e *RequestError) Error() string {
	if e.Message.IsZero() {
		return fmt.Sprintf("request failed: %s", e.Reason)
	}
	return fmt.Sprintf("request %s failed: %s", e.Message, e.Reason)
}

// IsNoListener reports whether err is a reply failure for a message
// the shell has no handler for.
func IsNoListener(err error) bool {
	var requestErr *RequestError
	return errors.As(err, &requestErr) && requestErr.NoListener
}
