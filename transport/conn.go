// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mullion-foundation/mullion/lib/clock"
	"github.com/mullion-foundation/mullion/lib/netutil"
)

// defaultQueueSize bounds the outbound frame queue. A window that
// stops draining its socket costs at most this many in-flight frames
// before the shell starts dropping; it can never stall the router.
const defaultQueueSize = 256

// defaultWriteTimeout bounds a single frame write. A peer that
// accepts the connection but never reads leaves the kernel buffer
// full; the deadline turns that into a connection failure instead of
// a wedged writer goroutine.
const defaultWriteTimeout = 10 * time.Second

// Options configures a connection. The zero value selects defaults.
type Options struct {
	// Logger receives queue-overflow and write-failure diagnostics.
	// Nil selects slog.Default().
	Logger *slog.Logger

	// Clock supplies deadline timestamps. Nil selects the real clock.
	Clock clock.Clock

	// QueueSize bounds the outbound queue. Zero selects
	// defaultQueueSize.
	QueueSize int

	// Compression is the algorithm for outbound payloads at or above
	// CompressThreshold. CompressionNone disables compression.
	Compression CompressionTag

	// CompressThreshold is the minimum payload size for compression.
	// Zero selects DefaultCompressThreshold.
	CompressThreshold int

	// WriteTimeout bounds each frame write. Zero selects
	// defaultWriteTimeout.
	WriteTimeout time.Duration
}

// Conn is one framed connection between shell and window. Outbound
// frames pass through a bounded queue drained by a single writer
// goroutine, so Send never blocks and per-sender frame order is
// preserved. The read side is pulled by the owner: ReadFrame during
// the handshake, then ReadLoop for the connection's lifetime.
type Conn struct {
	netConn net.Conn
	reader  *bufio.Reader
	logger  *slog.Logger
	clk     clock.Clock

	compression  CompressionTag
	threshold    int
	writeTimeout time.Duration

	outbound  chan Frame
	closed    chan struct{}
	closeOnce sync.Once

	dropped atomic.Uint64
}

// NewConn wraps netConn and starts its writer goroutine. The caller
// owns the read side and must eventually call Close (closing the
// Conn closes netConn).
func NewConn(netConn net.Conn, options Options) *Conn {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	queueSize := options.QueueSize
	if queueSize == 0 {
		queueSize = defaultQueueSize
	}
	threshold := options.CompressThreshold
	if threshold == 0 {
		threshold = DefaultCompressThreshold
	}
	writeTimeout := options.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}

	c := &Conn{
		netConn:      netConn,
		reader:       bufio.NewReader(netConn),
		logger:       logger,
		clk:          clk,
		compression:  options.Compression,
		threshold:    threshold,
		writeTimeout: writeTimeout,
		outbound:     make(chan Frame, queueSize),
		closed:       make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send queues frame for transmission and reports whether it was
// accepted. Send never blocks: a full queue or a closed connection
// drops the frame. Dropping is the contract — delivery is best
// effort, and a stalled receiver must not stall its senders.
func (c *Conn) Send(frame Frame) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.outbound <- frame:
		return true
	default:
		c.dropped.Add(1)
		c.logger.Warn("outbound queue full, frame dropped",
			"type", frame.Type,
			"message", frame.Message,
		)
		return false
	}
}

// WriteFrame writes frame synchronously, bypassing the outbound
// queue. Handshake use only, before the connection enters regular
// service; once Send is in use all writes must go through the queue
// to keep a single writer on the socket.
func (c *Conn) WriteFrame(frame Frame) error {
	c.netConn.SetWriteDeadline(c.clk.Now().Add(c.writeTimeout))
	defer c.netConn.SetWriteDeadline(time.Time{})
	return WriteFrame(c.netConn, frame, c.compression, c.threshold)
}

// ReadFrame reads one frame, failing if it does not arrive within
// timeout. Handshake use only; once ReadLoop is running it owns the
// read side.
func (c *Conn) ReadFrame(timeout time.Duration) (Frame, error) {
	c.netConn.SetReadDeadline(c.clk.Now().Add(timeout))
	defer c.netConn.SetReadDeadline(time.Time{})
	return ReadFrame(c.reader)
}

// ReadLoop decodes inbound frames and hands each to handler, on the
// caller's goroutine, until the connection closes or fails. Handler
// calls are strictly sequential in arrival order; a slow handler
// applies backpressure to this connection's inbound side only.
//
// Returns nil on clean close (EOF or local Close), the decode or
// socket error otherwise. The connection is closed on return either
// way.
func (c *Conn) ReadLoop(handler func(Frame)) error {
	defer c.Close()
	for {
		frame, err := ReadFrame(c.reader)
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) || netutil.IsExpectedCloseError(err) {
				return nil
			}
			return err
		}
		handler(frame)
	}
}

// writeLoop drains the outbound queue to the socket. A write failure
// tears the connection down; queued frames behind the failure are
// discarded with it.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.outbound:
			c.netConn.SetWriteDeadline(c.clk.Now().Add(c.writeTimeout))
			if err := WriteFrame(c.netConn, frame, c.compression, c.threshold); err != nil {
				if !netutil.IsExpectedCloseError(err) {
					c.logger.Warn("frame write failed, closing connection",
						"type", frame.Type,
						"error", err,
					)
				}
				c.Close()
				return
			}
		}
	}
}

// Close tears the connection down: the socket is closed, the writer
// goroutine stops, and Done is signalled. Idempotent and safe from
// any goroutine.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.netConn.Close()
	})
	return nil
}

// Done returns a channel closed when the connection is torn down,
// whether by Close, a write failure, or the peer disconnecting (via
// the ReadLoop observing it).
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// Dropped returns the number of outbound frames dropped on queue
// overflow. Diagnostics only.
func (c *Conn) Dropped() uint64 {
	return c.dropped.Load()
}
