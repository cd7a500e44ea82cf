// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"errors"
	"fmt"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// ErrInvalidMessageName is returned by send and request operations
// when the message name is empty. Reported synchronously to the
// caller; nothing is routed.
var ErrInvalidMessageName = errors.New("invalid message name")

// ErrInvalidPanelID is returned by SendToPanel when the panel ID is
// empty. Reported synchronously to the caller; nothing is routed.
var ErrInvalidPanelID = errors.New("invalid panel ID")

// ErrReplyAlreadySent is returned by a request's reply function on the
// second and subsequent invocations. The duplicate reply is discarded,
// never delivered; the session owner has already received the first.
var ErrReplyAlreadySent = errors.New("reply already sent for this session")

// ErrSessionExists reports a session ID collision during request
// registration. Allocate hands out single-use ids, so this indicates
// a caller registering an ID it did not allocate.
var ErrSessionExists = errors.New("session already registered")

// NoListenerError reports that a request reached the shell but no
// handler was registered for its message. It travels back to the
// requester inside the reply envelope, so an unanswerable request
// fails explicitly instead of hanging forever.
type NoListenerError struct {
	// Message is the request's message name.
	Message ref.MessageName

	// Suggestion is a registered message name within typo distance of
	// Message, when one exists. Zero otherwise.
	Suggestion ref.MessageName
}

func (e *NoListenerError) Error() string {
	if !e.Suggestion.IsZero() {
		return fmt.Sprintf("listener not registered for %q (did you mean %q?)", e.Message, e.Suggestion)
	}
	return fmt.Sprintf("listener not registered for %q", e.Message)
}

// IsNoListener reports whether err indicates an unhandled request and
// returns the detail. Shell-local callers check their Reply.Err with
// this; windows receive the rendered text inside the reply frame and
// surface it through the client package's typed error instead.
func IsNoListener(err error) (*NoListenerError, bool) {
	var noListener *NoListenerError
	if errors.As(err, &noListener) {
		return noListener, true
	}
	return nil, false
}
