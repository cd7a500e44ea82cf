// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"time"

	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/lib/service"
	"github.com/mullion-foundation/mullion/lib/version"
)

// Status is the "status" action's response payload: a point-in-time
// snapshot of the broker.
type Status struct {
	Version         string         `cbor:"version"`
	StartedAt       time.Time      `cbor:"started_at"`
	UptimeSeconds   int64          `cbor:"uptime_seconds"`
	Windows         []StatusWindow `cbor:"windows,omitempty"`
	Panels          []StatusPanel  `cbor:"panels,omitempty"`
	Counters        StatusCounters `cbor:"counters"`
	PendingSessions int            `cbor:"pending_sessions"`
	Handlers        []string       `cbor:"handlers,omitempty"`
}

// StatusWindow describes one connected window.
type StatusWindow struct {
	ID          ref.WindowID  `cbor:"id"`
	Role        ref.Role      `cbor:"role"`
	Instance    string        `cbor:"instance,omitempty"`
	ConnectedAt time.Time     `cbor:"connected_at"`
	Panels      []ref.PanelID `cbor:"panels,omitempty"`
	Main        bool          `cbor:"main,omitempty"`
}

// StatusPanel describes one declared or claimed panel.
type StatusPanel struct {
	ID    ref.PanelID  `cbor:"id"`
	Kind  string       `cbor:"kind,omitempty"`
	Owner ref.WindowID `cbor:"owner,omitempty"`
}

// StatusCounters are the broker's frame-traffic totals since start.
type StatusCounters struct {
	ConnectionsTotal uint64 `cbor:"connections_total"`
	FramesIn         uint64 `cbor:"frames_in"`
	FramesOut        uint64 `cbor:"frames_out"`
	FramesDropped    uint64 `cbor:"frames_dropped"`
}

// registerDiagnostics wires the broker's actions onto the diagnostics
// socket.
func (b *Broker) registerDiagnostics() {
	b.diag.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return b.statusSnapshot(), nil
	})

	// trace streams the retained entries, then live traffic until the
	// client disconnects. Subscribing before snapshotting closes the
	// gap between the two: an entry recorded in between appears in
	// both, and the sequence check skips the duplicate.
	b.diag.HandleStream("trace", func(ctx context.Context, raw []byte, stream *service.Stream) error {
		live := b.tracer.Subscribe(ctx)

		var lastSent uint64
		for _, entry := range b.tracer.Snapshot() {
			if err := stream.Send(entry); err != nil {
				return err
			}
			lastSent = entry.Sequence
		}

		for {
			select {
			case entry, ok := <-live:
				if !ok {
					return nil
				}
				if entry.Sequence <= lastSent {
					continue
				}
				if err := stream.Send(entry); err != nil {
					return err
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// statusSnapshot assembles the status response from the broker's live
// state.
func (b *Broker) statusSnapshot() Status {
	mainID := b.registry.MainID()
	infos := b.registry.Snapshot()
	windows := make([]StatusWindow, 0, len(infos))
	for _, info := range infos {
		windows = append(windows, StatusWindow{
			ID:          info.ID,
			Role:        info.Role,
			Instance:    info.Instance,
			ConnectedAt: info.ConnectedAt,
			Panels:      info.Panels,
			Main:        info.ID == mainID,
		})
	}

	panelStatuses := b.panels.Snapshot()
	panels := make([]StatusPanel, 0, len(panelStatuses))
	for _, status := range panelStatuses {
		entry := StatusPanel{ID: status.ID, Owner: status.Owner}
		if status.Kind != 0 {
			entry.Kind = status.Kind.String()
		}
		panels = append(panels, entry)
	}

	names := b.fabric.HandlerNames()
	handlers := make([]string, len(names))
	for i, name := range names {
		handlers[i] = name.String()
	}

	return Status{
		Version:       version.Info(),
		StartedAt:     b.startedAt,
		UptimeSeconds: int64(b.clk.Now().Sub(b.startedAt) / time.Second),
		Windows:       windows,
		Panels:        panels,
		Counters: StatusCounters{
			ConnectionsTotal: b.connectionsTotal.Load(),
			FramesIn:         b.framesIn.Load(),
			FramesOut:        b.framesOut.Load(),
			FramesDropped:    b.framesDropped.Load(),
		},
		PendingSessions: b.fabric.PendingSessions(),
		Handlers:        handlers,
	}
}
