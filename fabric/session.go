// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"log/slog"
	"sync"

	"github.com/mullion-foundation/mullion/lib/ref"
)

// firstSessionID is where allocation starts. The offset keeps session
// ids visually distinct from small counters in logs and traces.
const firstSessionID = 1000

// Reply is the payload delivered when a pending session fires.
type Reply struct {
	// Args is the positional payload the responder passed to its
	// reply function.
	Args []any

	// Err is non-nil when the exchange failed at the routing layer:
	// the request reached the shell but no listener was registered
	// for its message. A handler that runs but declines to reply
	// produces no Reply at all — the session stays pending until
	// cancelled.
	Err error
}

// Pending is the caller's handle on one outstanding request. The
// session manager fulfills it at most once, ever: the first Fire wins,
// and cancellation guarantees it never fires.
type Pending struct {
	id       ref.SessionID
	done     chan Reply
	sessions *SessionManager
}

// ID returns the session identifier, usable with
// SessionManager.Cancel (or the owning client's CancelRequest) even
// before any reply is observed.
func (p *Pending) ID() ref.SessionID { return p.id }

// Done returns the one-shot channel the reply arrives on. The channel
// receives at most one value and is never closed: after Cancel it
// stays silent forever.
func (p *Pending) Done() <-chan Reply { return p.done }

// Cancel abandons the session. Idempotent; a reply arriving after
// Cancel is a silent no-op. Cancellation cannot retract a request
// already delivered to the remote handler — it only guarantees the
// local continuation never fires.
func (p *Pending) Cancel() { p.sessions.Cancel(p.id) }

// SessionManager allocates session identifiers and holds at most one
// pending reply slot per session. It is the sole owner of the pending
// table; no other component reads or writes it.
//
// The at-most-once invariant holds for any interleaving of Fire and
// Cancel calls: whichever removes the pending entry first wins, and
// every later event for the same id is a no-op.
type SessionManager struct {
	logger *slog.Logger

	mu      sync.Mutex
	next    uint64
	pending map[ref.SessionID]chan Reply
}

// NewSessionManager creates a session manager with no pending
// sessions. Allocation starts at 1000.
func NewSessionManager(logger *slog.Logger) *SessionManager {
	return &SessionManager{
		logger:  logger,
		next:    firstSessionID,
		pending: make(map[ref.SessionID]chan Reply),
	}
}

// Allocate returns a fresh session id. Ids are unique and strictly
// increasing for the lifetime of the process and are never reused, so
// a stale reply can never match a newer session. Allocation has no
// side effect beyond advancing the counter.
func (m *SessionManager) Allocate() ref.SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := ref.SessionID(m.next)
	m.next++
	return id
}

// Register creates the pending slot for id and returns its handle.
// Returns nil if id already has a pending slot — that cannot happen
// under correct sequencing, since ids are single-use; it is logged as
// an error and the existing slot is left untouched.
func (m *SessionManager) Register(id ref.SessionID) *Pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pending[id]; exists {
		m.logger.Error("session already registered", "session", id)
		return nil
	}
	// Buffer of one: Fire completes the channel without blocking even
	// when nobody is receiving yet.
	done := make(chan Reply, 1)
	m.pending[id] = done
	return &Pending{id: id, done: done, sessions: m}
}

// Fire fulfills the pending session id with reply and reports whether
// a pending slot existed. The slot is removed from the table before
// the channel is completed, so any side effect of receiving the reply —
// including a re-entrant Fire or Cancel for the same id — observes an
// already-empty slot. Firing an unknown, already-fired, or cancelled
// id is a silent no-op: duplicate and late replies are expected
// hazards, not errors.
func (m *SessionManager) Fire(id ref.SessionID, reply Reply) bool {
	m.mu.Lock()
	done, exists := m.pending[id]
	if exists {
		delete(m.pending, id)
	}
	m.mu.Unlock()
	if !exists {
		return false
	}
	done <- reply
	return true
}

// Cancel removes the pending slot for id, discarding it without
// firing. Idempotent; a subsequent Fire for id becomes a no-op.
func (m *SessionManager) Cancel(id ref.SessionID) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// FailAll fires every pending session with Reply{Err: err} and empties
// the table. Used when the transport underneath the requests is gone
// and no reply can ever arrive; callers blocked on Pending.Done
// unblock with the error instead of waiting forever.
func (m *SessionManager) FailAll(err error) {
	m.mu.Lock()
	failed := m.pending
	m.pending = make(map[ref.SessionID]chan Reply)
	m.mu.Unlock()
	for id, done := range failed {
		m.logger.Debug("pending session failed", "session", id, "error", err)
		done <- Reply{Err: err}
	}
}

// PendingCount returns the number of sessions awaiting a reply.
// Diagnostics only.
func (m *SessionManager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
