// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mullion-foundation/mullion/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// diagnostics socket. This is separate from the server's read/write
// timeouts; it covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the server to
// send a response after writing the request. Matched to the server's
// readTimeout + writeTimeout to account for handler execution time.
const responseReadTimeout = 45 * time.Second

// maxResponseSize is the maximum size of a single CBOR response.
// Matches the server's maxRequestSize for symmetry.
const maxResponseSize = 1024 * 1024

// ServiceError is returned by Call and Stream when the server
// responds with ok=false. It wraps the server's error message and the
// action that failed.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// Client sends CBOR requests to a diagnostics socket. Each Call opens
// a new connection (matching the server's one-request-per-connection
// model), sends the request, reads the response, and closes the
// connection. Stream keeps the connection open and decodes the
// streamed values that follow the response.
//
// The diagnostics socket trusts the filesystem boundary: it is
// reachable only by the owning user, so requests carry no credentials.
type Client struct {
	socketPath string
}

// NewClient creates a client for the diagnostics socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends a CBOR request to the service and decodes the response.
//
// The fields parameter may contain any handler-specific request
// fields; the client adds "action" automatically. Pass nil for
// actions that take no additional parameters. The caller must not
// include an "action" key in the fields map.
//
// On success (response ok=true), if result is non-nil and the
// response contains data, the data is CBOR-decoded into result.
//
// On failure (response ok=false), returns a *ServiceError containing
// the server's error message. Connection and encoding errors are
// returned as plain errors (not *ServiceError).
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	conn, _, response, err := c.send(ctx, action, fields, false)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	defer conn.Close()

	if !response.OK {
		return &ServiceError{
			Action:  action,
			Message: response.Error,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}

	return nil
}

// Stream sends a request for a streaming action and returns a reader
// over the values the server pushes after its success response. The
// returned StreamReader must be closed. Cancelling ctx closes the
// underlying connection, which unblocks a pending Next.
//
// If the server rejects the request (ok=false), returns a
// *ServiceError and no reader.
func (c *Client) Stream(ctx context.Context, action string, fields map[string]any) (*StreamReader, error) {
	conn, decoder, response, err := c.send(ctx, action, fields, true)
	if err != nil {
		return nil, fmt.Errorf("opening stream %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		conn.Close()
		return nil, &ServiceError{
			Action:  action,
			Message: response.Error,
		}
	}

	// Streams idle between values; reads are unbounded and ctx is the
	// only way out.
	conn.SetReadDeadline(time.Time{})

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	return &StreamReader{
		conn:      conn,
		decoder:   decoder,
		watchDone: watchDone,
	}, nil
}

// StreamReader decodes the CBOR values of one server stream.
type StreamReader struct {
	conn      net.Conn
	decoder   *codec.Decoder
	watchDone chan struct{}
}

// Next decodes the next streamed value into result. Blocks until a
// value arrives, the server closes the stream (io.EOF), or the
// stream's context is cancelled.
func (r *StreamReader) Next(result any) error {
	return r.decoder.Decode(result)
}

// Close releases the connection. Safe to call more than once.
func (r *StreamReader) Close() error {
	select {
	case <-r.watchDone:
	default:
		close(r.watchDone)
	}
	return r.conn.Close()
}

// send connects to the socket, writes the request, and reads the
// response envelope. The connection and its decoder are returned
// still open; the caller owns them. The decoder must be reused for
// any streamed values that follow the response, since it may have
// buffered past the envelope. On error the connection is already
// closed.
//
// One-shot calls cap the response at maxResponseSize; streams read
// the bare connection, since a stream's total volume is unbounded and
// the server shares the caller's uid.
func (c *Client) send(ctx context.Context, action string, fields map[string]any, stream bool) (net.Conn, *codec.Decoder, *Response, error) {
	request := buildRequest(action, fields)

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting: %w", err)
	}

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		conn.Close()
		return nil, nil, nil, fmt.Errorf("writing request: %w", err)
	}

	var reader io.Reader = conn
	if !stream {
		reader = io.LimitReader(conn, maxResponseSize)
	}
	decoder := codec.NewDecoder(reader)

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := decoder.Decode(&response); err != nil {
		conn.Close()
		return nil, nil, nil, fmt.Errorf("reading response: %w", err)
	}

	return conn, decoder, &response, nil
}

// buildRequest constructs the CBOR request map: the caller's fields
// (if any) plus the "action" field.
func buildRequest(action string, fields map[string]any) map[string]any {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	return request
}
