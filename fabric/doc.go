// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package fabric implements the routing and correlation core of the
// Mullion messaging fabric: resolving logical destinations into
// concrete deliveries, dispatching messages to local handlers, and
// pairing requests with their replies.
//
// The fabric moves three kinds of traffic:
//
//   - Broadcasts: fire-and-forget delivery to every live window, or to
//     every window plus the shell's own handlers, optionally excluding
//     the sender.
//   - Targeted sends: fire-and-forget delivery to the main window, to
//     a named panel, or to the shell itself.
//   - Requests: correlated request/reply with explicit cancellation.
//     A request is paired with exactly one eventual reply; the
//     continuation fires at most once no matter how many reply
//     envelopes arrive, and cancellation guarantees it never fires.
//
// Delivery is best-effort and at most once. There is no retry, no
// persistence, and no implicit request timeout: an unanswered request
// stays pending until it is cancelled. Callers needing reliability
// build it above this layer.
//
// The core stays transport-agnostic. It speaks [Envelope] values to
// [Endpoint] implementations and consumes its collaborators through
// narrow interfaces: [WindowRegistry] for the live window collection
// (including the optional main-window slot) and [PanelResolver] for
// panel ownership lookups. The shell package composes this core with
// the Unix socket transport; the client package reuses [Dispatcher]
// and [SessionManager] for the window-side half of the protocol.
//
// Every broadcast operates on a snapshot of the registry membership
// taken at call start, so windows closing mid-broadcast neither
// receive guaranteed delivery nor cause a fault. Unreachable
// destinations (no main window, unknown panel) are logged and dropped,
// never surfaced as errors: destinations come and go with window
// lifecycle, and their absence is an expected transient state.
package fabric
