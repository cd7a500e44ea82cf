// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now()
// when tests need unique identifiers for window IDs, message names, or
// payload values that must be distinguishable in shared trace output.
//
//	windowID := testutil.UniqueID("window")  // "window-1", "window-2", ...
//	payload := testutil.UniqueID("hello")    // "hello-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
