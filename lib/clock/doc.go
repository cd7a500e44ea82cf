// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of
// calling time.Now or time.After directly. In production, Real()
// provides the standard library behavior. In tests, Fake() provides a
// deterministic clock that advances only when Advance is called.
//
// The fabric uses the clock for connection write deadlines, trace
// record timestamps, shell uptime, and the manifest watcher's debounce
// delay. The interface is deliberately small: Now and After cover
// everything the fabric does with time. Code that needs a periodic
// ticker or a cancellable timer should grow the interface then, not
// work around it.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time:
//
//	type Broker struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	b := &Broker{clock: clock.Real()}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	b := &Broker{clock: c}
//	// ... start goroutines ...
//	c.WaitForTimers(1)                // wait for a goroutine to call After
//	c.Advance(250 * time.Millisecond) // fire it deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls After on a FakeClock, it registers a pending
// waiter. Use WaitForTimers to block until a specific number of
// waiters are registered before calling Advance. This eliminates the
// race between waiter registration and time advancement that plagues
// tests using time.Sleep for synchronization.
package clock
