// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mullion-foundation/mullion/lib/codec"
	"github.com/mullion-foundation/mullion/lib/ref"
)

// FrameType discriminates the wire frame variants. The values are
// protocol constants shared by shell and windows.
type FrameType uint8

const (
	// FrameHello is the first frame on a new connection, window to
	// shell: window identity, role, instance UUID, and the panel ids
	// the window hosts.
	FrameHello FrameType = iota + 1

	// FrameWelcome answers the hello, shell to window: acceptance or
	// a rejection reason. The connection carries no other frames
	// until the welcome is on the wire.
	FrameWelcome

	// FrameBroadcastWindows asks the shell to fan an event out to
	// every connected window. Honors ExcludeSelf.
	FrameBroadcastWindows

	// FrameBroadcastAll asks the shell to fan an event out to every
	// connected window and to the shell's own handlers. Honors
	// ExcludeSelf.
	FrameBroadcastAll

	// FrameSendMain asks the shell to deliver an event to the main
	// window.
	FrameSendMain

	// FrameSendPanel asks the shell to deliver an event to the window
	// hosting Panel.
	FrameSendPanel

	// FrameEvent is a delivered fire-and-forget message: a broadcast
	// leg or targeted send arriving at a window, or a window's
	// shell-addressed event arriving at the shell.
	FrameEvent

	// FramePanelEvent is a delivered message for a composite panel:
	// an event carrying the panel id so the receiving window can
	// demultiplex to the right panel instance.
	FramePanelEvent

	// FrameRequest is a window's correlated request to the shell.
	// Session correlates the eventual reply.
	FrameRequest

	// FrameReply answers a request, shell to window. Carries the
	// session, the reply args, and on routing failure the error text
	// plus the no-listener marker.
	FrameReply
)

// String returns the lowercase name of the frame type, as it appears
// in trace output.
func (t FrameType) String() string {
	switch t {
	case FrameHello:
		return "hello"
	case FrameWelcome:
		return "welcome"
	case FrameBroadcastWindows:
		return "broadcast-windows"
	case FrameBroadcastAll:
		return "broadcast-all"
	case FrameSendMain:
		return "send-main"
	case FrameSendPanel:
		return "send-panel"
	case FrameEvent:
		return "event"
	case FramePanelEvent:
		return "panel-event"
	case FrameRequest:
		return "request"
	case FrameReply:
		return "reply"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Frame is the single wire type for all shell/window traffic. Which
// fields are meaningful depends on Type; unused fields are omitted
// from the encoding.
type Frame struct {
	// Type selects the variant.
	Type FrameType `cbor:"type"`

	// Window is the connecting window's identity (hello) or, on
	// frames delivered to a window, the originating window (zero when
	// the shell originated the message).
	Window ref.WindowID `cbor:"window,omitempty"`

	// Role is the window's role claim: main, secondary, or utility.
	// Hello only.
	Role ref.Role `cbor:"role,omitempty"`

	// Instance is the window process's instance UUID, minted fresh
	// for each connection. Distinguishes a restarted window from a
	// duplicate id claim in shell logs. Hello only.
	Instance string `cbor:"instance,omitempty"`

	// Panels lists the panel ids the window hosts. Hello only.
	Panels []ref.PanelID `cbor:"panels,omitempty"`

	// OK reports handshake acceptance. Welcome only.
	OK bool `cbor:"ok,omitempty"`

	// Error carries the rejection reason on a welcome, or the routing
	// failure on a reply.
	Error string `cbor:"error,omitempty"`

	// NoListener marks a reply whose Error is the no-listener
	// condition, so the client can surface a typed error rather than
	// string-matching. Reply only.
	NoListener bool `cbor:"no_listener,omitempty"`

	// Message names the message for sends, broadcasts, events, and
	// requests. On error replies it echoes the request's message name.
	Message ref.MessageName `cbor:"message,omitempty"`

	// Panel is the destination panel for send-panel and the
	// demultiplexing key on panel-event.
	Panel ref.PanelID `cbor:"panel,omitempty"`

	// Session correlates request and reply. Zero on fire-and-forget
	// frames.
	Session ref.SessionID `cbor:"session,omitempty"`

	// ExcludeSelf removes the sender from the delivery set on
	// broadcast frames.
	ExcludeSelf bool `cbor:"exclude_self,omitempty"`

	// Args is the ordered positional payload.
	Args []any `cbor:"args,omitempty"`
}

// frameHeaderLength is the fixed size of the frame header: 1 byte
// compression tag, 4 bytes encoded payload length, 4 bytes raw
// payload length (both big-endian uint32). The raw length is needed
// up front by lz4 block decode and cross-checks the other tags.
const frameHeaderLength = 9

// MaxFrameLength is the maximum allowed payload size, compressed or
// raw: 16 MiB. Window messages are UI-scale traffic; anything larger
// indicates a protocol error or a hostile peer.
const MaxFrameLength = 16 * 1024 * 1024

// WriteFrame encodes frame and writes it to w as one framed message:
// [1 byte compression tag] [4 bytes encoded length] [4 bytes raw
// length] [payload]. Payloads of at least threshold bytes are
// compressed with algorithm; incompressible payloads and payloads
// below the threshold go out uncompressed. A threshold of 0 selects
// DefaultCompressThreshold.
func WriteFrame(w io.Writer, frame Frame, algorithm CompressionTag, threshold int) error {
	payload, err := codec.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	rawLength := len(payload)
	if rawLength > MaxFrameLength {
		return fmt.Errorf("frame payload %d bytes exceeds maximum %d", rawLength, MaxFrameLength)
	}
	if threshold == 0 {
		threshold = DefaultCompressThreshold
	}

	tag := CompressionNone
	if algorithm != CompressionNone && rawLength >= threshold {
		compressed, err := compress(payload, algorithm)
		switch {
		case err == nil:
			payload = compressed
			tag = algorithm
		case isIncompressible(err):
			// Send raw.
		default:
			return fmt.Errorf("compress frame: %w", err)
		}
	}

	var header [frameHeaderLength]byte
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[5:9], uint32(rawLength))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one framed message from r and decodes it. Returns
// an error if the stream is malformed, a length exceeds
// MaxFrameLength, or the compression tag is unknown.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		// Propagate EOF unwrapped: a clean EOF between frames is how
		// connection close is detected.
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}

	tag := CompressionTag(header[0])
	encodedLength := binary.BigEndian.Uint32(header[1:5])
	rawLength := binary.BigEndian.Uint32(header[5:9])
	if encodedLength > MaxFrameLength {
		return Frame{}, fmt.Errorf("frame encoded length %d exceeds maximum %d", encodedLength, MaxFrameLength)
	}
	if rawLength > MaxFrameLength {
		return Frame{}, fmt.Errorf("frame raw length %d exceeds maximum %d", rawLength, MaxFrameLength)
	}

	payload := make([]byte, encodedLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("read frame payload: %w", err)
	}

	payload, err := decompress(payload, tag, int(rawLength))
	if err != nil {
		return Frame{}, err
	}

	var frame Frame
	if err := codec.Unmarshal(payload, &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Type == 0 {
		return Frame{}, fmt.Errorf("frame has no type")
	}
	return frame, nil
}
