// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Mullion packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets. This exists because Unix domain sockets have a
// 108-byte path limit (sun_path in sockaddr_un), and CI systems set
// TMPDIR to deeply nested paths that exceed this limit, making
// t.TempDir() unsuitable for socket files. The directory is
// automatically removed when the test completes.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. These are
// the only place in the test suite where real wall-clock timeouts are
// used; everything else goes through lib/clock.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// window IDs, message names, or payload values distinguishable in
// shared trace output.
//
// [NewTestLogger] returns a slog.Logger routed through t.Logf so that
// a package's log output is interleaved with its test output and
// suppressed for passing tests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Mullion-internal dependencies.
package testutil
