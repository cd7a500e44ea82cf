// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// NewTestLogger returns a slog.Logger that writes each record through
// t.Logf, so log output is attached to the test that produced it and
// only shown when the test fails or runs with -v.
func NewTestLogger(t interface{ Logf(format string, args ...any) }) *slog.Logger {
	return slog.New(&testLogHandler{t: t})
}

type testLogHandler struct {
	t     interface{ Logf(format string, args ...any) }
	mu    sync.Mutex
	attrs []slog.Attr
}

func (h *testLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *testLogHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Level.String())
	sb.WriteString(" ")
	sb.WriteString(record.Message)
	h.mu.Lock()
	for _, attr := range h.attrs {
		sb.WriteString(" ")
		sb.WriteString(attr.String())
	}
	h.mu.Unlock()
	record.Attrs(func(attr slog.Attr) bool {
		sb.WriteString(" ")
		sb.WriteString(attr.String())
		return true
	})
	h.t.Logf("%s", sb.String())
	return nil
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	combined := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	combined = append(combined, h.attrs...)
	h.mu.Unlock()
	combined = append(combined, attrs...)
	return &testLogHandler{t: h.t, attrs: combined}
}

func (h *testLogHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened; the test log is for humans, not parsers.
	return h
}
