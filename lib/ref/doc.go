// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identifiers for the
// pieces of a Mullion deployment: windows, panels, message names,
// sessions, and window roles.
//
// Identifiers cross process boundaries inside CBOR envelopes and show
// up in log lines, socket paths, and diagnostic output, so every type
// here validates on construction and keeps its canonical string form.
// Once constructed a ref is immutable; the zero value is never valid
// and IsZero reports it.
//
// All string-backed refs implement encoding.TextMarshaler and
// encoding.TextUnmarshaler, so they can be used directly as struct
// fields in CBOR and JSON payloads: serialized as the canonical string,
// deserialized by re-validating that string.
package ref
