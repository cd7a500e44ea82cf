// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Mullion's standard CBOR encoding configuration.
//
// Mullion uses two serialization formats with a clear boundary:
//
//   - JSON (with comments) for files humans edit: the shell config and
//     panel manifests.
//   - CBOR for the wire: every envelope between the shell and a window
//     process, and the diagnostics socket protocol.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Mullion process encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, which keeps trace output and test fixtures stable.
//
// For buffer-oriented operations (frame payloads):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the diagnostics socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. Examples:
//     wire envelopes, handshake frames, diagnostics requests.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor` tags
//     are absent, so a single `json` tag controls field naming and
//     omitempty for both formats. Examples: status reports that the
//     diagnostics CLI also prints as JSON.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract.
package codec
