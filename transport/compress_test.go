// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("window state serialized as repetitive text ", 256))

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		compressed, err := compress(data, tag)
		if err != nil {
			t.Fatalf("%v compress: %v", tag, err)
		}
		if len(compressed) >= len(data) {
			t.Fatalf("%v: compressed %d bytes not smaller than %d", tag, len(compressed), len(data))
		}
		restored, err := decompress(compressed, tag, len(data))
		if err != nil {
			t.Fatalf("%v decompress: %v", tag, err)
		}
		if !bytes.Equal(restored, data) {
			t.Fatalf("%v: round trip corrupted the data", tag)
		}
	}
}

func TestCompressNonePassesThrough(t *testing.T) {
	data := []byte("unchanged")
	out, err := compress(data, CompressionNone)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("CompressionNone modified the data")
	}
	restored, err := decompress(out, CompressionNone, len(data))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(restored, data) {
		t.Fatal("CompressionNone round trip corrupted the data")
	}
}

func TestCompressIncompressible(t *testing.T) {
	// High-entropy bytes from a fixed-seed generator.
	noise := make([]byte, 4096)
	state := uint64(0x2545f4914f6cdd1d)
	for i := range noise {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		noise[i] = byte(state)
	}

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		_, err := compress(noise, tag)
		if !isIncompressible(err) {
			t.Fatalf("%v: error = %v, want errIncompressible", tag, err)
		}
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := []byte(strings.Repeat("predictable ", 512))

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		compressed, err := compress(data, tag)
		if err != nil {
			t.Fatalf("%v compress: %v", tag, err)
		}
		if _, err := decompress(compressed, tag, len(data)+1); err == nil {
			t.Fatalf("%v: decompress with wrong raw size succeeded", tag)
		}
	}

	if _, err := decompress(data, CompressionNone, len(data)-1); err == nil {
		t.Fatal("CompressionNone: decompress with wrong raw size succeeded")
	}
}

func TestCompressionTagStrings(t *testing.T) {
	cases := []struct {
		tag  CompressionTag
		want string
	}{
		{CompressionNone, "none"},
		{CompressionLZ4, "lz4"},
		{CompressionZstd, "zstd"},
		{CompressionTag(9), "unknown(9)"},
	}
	for _, c := range cases {
		if got := c.tag.String(); got != c.want {
			t.Errorf("CompressionTag(%d).String() = %q, want %q", uint8(c.tag), got, c.want)
		}
	}
}

func TestParseCompressionTag(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		tag, err := ParseCompressionTag(name)
		if err != nil {
			t.Fatalf("ParseCompressionTag(%q): %v", name, err)
		}
		if got := tag.String(); got != name {
			t.Fatalf("ParseCompressionTag(%q).String() = %q", name, got)
		}
	}
	if _, err := ParseCompressionTag("gzip"); err == nil {
		t.Fatal("ParseCompressionTag accepted an unknown name")
	}
}
