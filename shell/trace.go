// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"sync"
	"time"

	"github.com/mullion-foundation/mullion/lib/clock"
	"github.com/mullion-foundation/mullion/lib/ref"
)

// Direction marks which way a traced frame crossed the shell boundary.
type Direction uint8

const (
	// DirectionInbound is a frame arriving from a window.
	DirectionInbound Direction = iota + 1

	// DirectionOutbound is a frame the shell delivered (or attempted
	// to deliver) to a window.
	DirectionOutbound
)

// String returns "in" or "out", the spelling trace views use.
func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "in"
	case DirectionOutbound:
		return "out"
	default:
		return "?"
	}
}

// TraceEntry is one observed frame crossing a window connection. It
// records routing metadata only, never payload contents: trace
// consumers see that a message moved, not what it said.
type TraceEntry struct {
	// Sequence numbers entries monotonically from 1 for the broker's
	// lifetime. Gaps in a subscriber's view mean its channel
	// overflowed.
	Sequence uint64 `cbor:"sequence"`

	// Timestamp is when the broker recorded the entry.
	Timestamp time.Time `cbor:"timestamp"`

	// Direction is inbound (window to shell) or outbound (shell to
	// window).
	Direction Direction `cbor:"direction"`

	// Window is the counterparty: the origin for inbound entries, the
	// destination for outbound ones.
	Window ref.WindowID `cbor:"window,omitempty"`

	// Kind is the frame type's lowercase name.
	Kind string `cbor:"kind"`

	// Message is the message name, when the frame carries one.
	Message ref.MessageName `cbor:"message,omitempty"`

	// Panel is the panel id on panel-addressed frames.
	Panel ref.PanelID `cbor:"panel,omitempty"`

	// Session is the correlation id on request and reply frames.
	Session ref.SessionID `cbor:"session,omitempty"`

	// Args is the number of payload arguments.
	Args int `cbor:"args,omitempty"`

	// Error is the error text on failed replies.
	Error string `cbor:"error,omitempty"`
}

// subscriberBuffer is each subscriber's channel capacity. A consumer
// that falls further behind than this loses entries, never slows the
// broker.
const subscriberBuffer = 64

// Tracer keeps a bounded ring of recent frame-traffic entries and fans
// new entries out to live subscribers. Recording is cheap and never
// blocks: the ring overwrites its oldest entry and slow subscribers
// drop.
//
// Tracer is safe for concurrent use.
type Tracer struct {
	clk clock.Clock

	mu            sync.Mutex
	entries       []TraceEntry
	capacity      int
	writePosition int
	totalWritten  uint64
	subscribers   map[chan TraceEntry]struct{}
}

// NewTracer creates a tracer retaining the last capacity entries.
// Capacity must be positive.
func NewTracer(capacity int, clk clock.Clock) *Tracer {
	if capacity <= 0 {
		panic("tracer capacity must be positive")
	}
	return &Tracer{
		clk:         clk,
		entries:     make([]TraceEntry, capacity),
		capacity:    capacity,
		subscribers: make(map[chan TraceEntry]struct{}),
	}
}

// Record stamps entry with the next sequence number and the current
// time, stores it in the ring, and offers it to every subscriber.
func (t *Tracer) Record(entry TraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry.Sequence = t.totalWritten + 1
	entry.Timestamp = t.clk.Now()

	t.entries[t.writePosition] = entry
	t.writePosition = (t.writePosition + 1) % t.capacity
	t.totalWritten++

	for subscriber := range t.subscribers {
		select {
		case subscriber <- entry:
		default:
			// Subscriber full; it sees the gap in sequence numbers.
		}
	}
}

// Snapshot returns the retained entries, oldest first.
func (t *Tracer) Snapshot() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalWritten < uint64(t.capacity) {
		snapshot := make([]TraceEntry, t.totalWritten)
		copy(snapshot, t.entries[:t.totalWritten])
		return snapshot
	}
	snapshot := make([]TraceEntry, 0, t.capacity)
	snapshot = append(snapshot, t.entries[t.writePosition:]...)
	snapshot = append(snapshot, t.entries[:t.writePosition]...)
	return snapshot
}

// Subscribe registers a live feed of entries recorded after this call.
// The channel is buffered; entries beyond the buffer are dropped for
// this subscriber only. The subscription ends and the channel closes
// when ctx is cancelled.
func (t *Tracer) Subscribe(ctx context.Context) <-chan TraceEntry {
	subscriber := make(chan TraceEntry, subscriberBuffer)

	t.mu.Lock()
	t.subscribers[subscriber] = struct{}{}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subscribers, subscriber)
		close(subscriber)
		t.mu.Unlock()
	}()

	return subscriber
}

// SubscriberCount returns the number of live subscribers. Diagnostics
// only.
func (t *Tracer) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}
