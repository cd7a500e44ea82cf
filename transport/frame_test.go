// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/mullion-foundation/mullion/lib/ref"
)

func TestFrameRoundTrip(t *testing.T) {
	original := Frame{
		Type:    FrameRequest,
		Window:  ref.MustParseWindowID("editor"),
		Message: "config.get",
		Session: 1042,
		Args:    []any{"theme", "font"},
	}

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, original, CompressionNone, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !reflect.DeepEqual(got, original) {
		t.Fatalf("round trip = %+v, want %+v", got, original)
	}
}

func TestFrameRoundTripHello(t *testing.T) {
	original := Frame{
		Type:     FrameHello,
		Window:   ref.MustParseWindowID("settings"),
		Role:     ref.RoleSecondary,
		Instance: "4930cf74-2f63-4d3c-b998-07accb41ba0d",
		Panels: []ref.PanelID{
			ref.MustParsePanelID("settings.appearance"),
			ref.MustParsePanelID("settings.keymap"),
		},
	}

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, original, CompressionNone, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !reflect.DeepEqual(got, original) {
		t.Fatalf("round trip = %+v, want %+v", got, original)
	}
}

func TestFrameRoundTripZeroFieldsStayZero(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, Frame{Type: FrameEvent, Message: "ping"}, CompressionNone, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !got.Window.IsZero() {
		t.Fatalf("window = %q, want zero", got.Window)
	}
	if !got.Panel.IsZero() {
		t.Fatalf("panel = %q, want zero", got.Panel)
	}
	if !got.Session.IsZero() {
		t.Fatalf("session = %v, want zero", got.Session)
	}
	if got.Error != "" || got.NoListener || got.ExcludeSelf || got.OK {
		t.Fatalf("flag fields not zero: %+v", got)
	}
}

func TestFrameCompressionApplied(t *testing.T) {
	// Well above the threshold and highly compressible.
	payload := strings.Repeat("all work and no play makes a dull window ", 1024)
	frame := Frame{Type: FrameEvent, Message: "document.sync", Args: []any{payload}}

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, frame, CompressionZstd, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	wire := buffer.Bytes()
	if got, want := CompressionTag(wire[0]), CompressionZstd; got != want {
		t.Fatalf("wire compression tag = %v, want %v", got, want)
	}
	encodedLength := binary.BigEndian.Uint32(wire[1:5])
	rawLength := binary.BigEndian.Uint32(wire[5:9])
	if encodedLength >= rawLength {
		t.Fatalf("encoded length %d not smaller than raw %d", encodedLength, rawLength)
	}

	got, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !reflect.DeepEqual(got.Args, []any{payload}) {
		t.Fatal("payload did not survive the compression round trip")
	}
}

func TestFrameCompressionLZ4(t *testing.T) {
	payload := strings.Repeat("scrollback line with repetitive content\n", 512)
	frame := Frame{Type: FrameEvent, Message: "terminal.append", Args: []any{payload}}

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, frame, CompressionLZ4, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if got, want := CompressionTag(buffer.Bytes()[0]), CompressionLZ4; got != want {
		t.Fatalf("wire compression tag = %v, want %v", got, want)
	}
	got, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !reflect.DeepEqual(got.Args, []any{payload}) {
		t.Fatal("payload did not survive the compression round trip")
	}
}

func TestFrameBelowThresholdUncompressed(t *testing.T) {
	frame := Frame{Type: FrameEvent, Message: "ping", Args: []any{"small"}}

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, frame, CompressionZstd, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if got, want := CompressionTag(buffer.Bytes()[0]), CompressionNone; got != want {
		t.Fatalf("wire compression tag = %v, want %v for a small frame", got, want)
	}
	if _, err := ReadFrame(&buffer); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
}

func TestFrameIncompressibleFallsBackToNone(t *testing.T) {
	// High-entropy bytes from a fixed-seed generator: compression
	// cannot shrink them, so the frame must go out untagged.
	noise := make([]byte, 8192)
	state := uint64(0x9e3779b97f4a7c15)
	for i := range noise {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		noise[i] = byte(state)
	}
	frame := Frame{Type: FrameEvent, Message: "blob.push", Args: []any{noise}}

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, frame, CompressionZstd, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if got, want := CompressionTag(buffer.Bytes()[0]), CompressionNone; got != want {
		t.Fatalf("wire compression tag = %v, want %v for incompressible data", got, want)
	}
	got, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	gotNoise, ok := got.Args[0].([]byte)
	if !ok || !bytes.Equal(gotNoise, noise) {
		t.Fatal("payload did not survive the round trip")
	}
}

func TestReadFrameRejectsOversizedLengths(t *testing.T) {
	for _, which := range []string{"encoded", "raw"} {
		var header [frameHeaderLength]byte
		header[0] = byte(CompressionNone)
		if which == "encoded" {
			binary.BigEndian.PutUint32(header[1:5], MaxFrameLength+1)
			binary.BigEndian.PutUint32(header[5:9], 16)
		} else {
			binary.BigEndian.PutUint32(header[1:5], 16)
			binary.BigEndian.PutUint32(header[5:9], MaxFrameLength+1)
		}
		_, err := ReadFrame(bytes.NewReader(header[:]))
		if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
			t.Fatalf("%s length: error = %v, want a maximum-exceeded error", which, err)
		}
	}
}

func TestReadFrameRejectsUnknownCompressionTag(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, Frame{Type: FrameEvent, Message: "ping"}, CompressionNone, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	wire := buffer.Bytes()
	wire[0] = 0x7f

	_, err := ReadFrame(bytes.NewReader(wire))
	if err == nil || !strings.Contains(err.Error(), "unsupported compression tag") {
		t.Fatalf("error = %v, want an unsupported-tag error", err)
	}
}

func TestReadFrameEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("error = %v, want io.EOF for an empty stream", err)
	}
}

func TestReadFrameRejectsMissingType(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, Frame{Message: "ping"}, CompressionNone, 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	_, err := ReadFrame(&buffer)
	if err == nil || !strings.Contains(err.Error(), "no type") {
		t.Fatalf("error = %v, want a missing-type error", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	frame := Frame{Type: FrameEvent, Message: "blob.push", Args: []any{make([]byte, MaxFrameLength+1024)}}
	err := WriteFrame(io.Discard, frame, CompressionNone, 0)
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("error = %v, want a maximum-exceeded error", err)
	}
}

func TestFrameTypeString(t *testing.T) {
	cases := []struct {
		frameType FrameType
		want      string
	}{
		{FrameHello, "hello"},
		{FrameWelcome, "welcome"},
		{FrameBroadcastWindows, "broadcast-windows"},
		{FrameBroadcastAll, "broadcast-all"},
		{FrameSendMain, "send-main"},
		{FrameSendPanel, "send-panel"},
		{FrameEvent, "event"},
		{FramePanelEvent, "panel-event"},
		{FrameRequest, "request"},
		{FrameReply, "reply"},
		{FrameType(42), "unknown(42)"},
	}
	for _, c := range cases {
		if got := c.frameType.String(); got != c.want {
			t.Errorf("FrameType(%d).String() = %q, want %q", uint8(c.frameType), got, c.want)
		}
	}
}
