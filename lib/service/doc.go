// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the CBOR action protocol spoken on the
// shell's diagnostics socket.
//
// The protocol is one request per connection: the client writes a
// CBOR map carrying an "action" field plus action-specific fields,
// the server writes a [Response], and the connection closes.
// Streaming actions extend this: after a success response the server
// keeps the connection open and pushes a plain CBOR sequence of
// values until the client disconnects.
//
//   - [SocketServer] -- the server side, with [ActionFunc] and
//     [StreamFunc] registration
//   - [Client] -- the caller side, with Call and Stream
//
// The shell registers its diagnostics actions on a SocketServer;
// mullion-send and mullion-trace are Clients.
//
// # Authentication
//
// There is none at the protocol level. The diagnostics socket lives
// in the user's runtime directory and the filesystem boundary is the
// access control, the same trust model as the fabric socket itself.
package service
