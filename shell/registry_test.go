// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"strings"
	"testing"
	"time"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
	"github.com/mullion-foundation/mullion/lib/testutil"
)

// fakeEndpoint records deliveries for registry and panel table tests.
type fakeEndpoint struct {
	id        ref.WindowID
	delivered chan fabric.Envelope
}

func newFakeEndpoint(id string) *fakeEndpoint {
	return &fakeEndpoint{
		id:        ref.MustParseWindowID(id),
		delivered: make(chan fabric.Envelope, 16),
	}
}

func (e *fakeEndpoint) ID() ref.WindowID { return e.id }

func (e *fakeEndpoint) Deliver(envelope fabric.Envelope) {
	select {
	case e.delivered <- envelope:
	default:
	}
}

func addWindow(t *testing.T, registry *Registry, endpoint *fakeEndpoint, role ref.Role, panels ...ref.PanelID) {
	t.Helper()
	err := registry.Add(endpoint, WindowInfo{
		ID:          endpoint.id,
		Role:        role,
		Instance:    testutil.UniqueID("instance"),
		ConnectedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Panels:      panels,
	})
	if err != nil {
		t.Fatalf("Add(%s): %v", endpoint.id, err)
	}
}

func TestRegistryAddAndWindows(t *testing.T) {
	registry := NewRegistry(testutil.NewTestLogger(t))

	first := newFakeEndpoint("editor")
	second := newFakeEndpoint("inspector")
	third := newFakeEndpoint("terminal")
	addWindow(t, registry, first, ref.RoleSecondary)
	addWindow(t, registry, second, ref.RoleUtility)
	addWindow(t, registry, third, ref.RoleSecondary)

	windows := registry.Windows()
	if len(windows) != 3 {
		t.Fatalf("Windows() returned %d endpoints, want 3", len(windows))
	}
	for i, want := range []*fakeEndpoint{first, second, third} {
		if windows[i].ID() != want.id {
			t.Errorf("windows[%d] = %s, want %s", i, windows[i].ID(), want.id)
		}
	}

	if _, ok := registry.MainWindow(); ok {
		t.Error("MainWindow() reported a main window, none registered")
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	registry := NewRegistry(testutil.NewTestLogger(t))
	addWindow(t, registry, newFakeEndpoint("editor"), ref.RoleSecondary)

	err := registry.Add(newFakeEndpoint("editor"), WindowInfo{
		ID:   ref.MustParseWindowID("editor"),
		Role: ref.RoleSecondary,
	})
	if err == nil {
		t.Fatal("Add accepted a duplicate window id")
	}
	if !strings.Contains(err.Error(), "already connected") {
		t.Errorf("error %q does not mention the live window", err)
	}
	if got := len(registry.Windows()); got != 1 {
		t.Errorf("registry holds %d windows after rejected add, want 1", got)
	}
}

func TestRegistryMainConflictDemotes(t *testing.T) {
	registry := NewRegistry(testutil.NewTestLogger(t))

	first := newFakeEndpoint("main-window")
	second := newFakeEndpoint("pretender")
	addWindow(t, registry, first, ref.RoleMain)
	addWindow(t, registry, second, ref.RoleMain)

	main, ok := registry.MainWindow()
	if !ok {
		t.Fatal("MainWindow() reported no main window")
	}
	if main.ID() != first.id {
		t.Fatalf("main window = %s, want %s", main.ID(), first.id)
	}

	for _, info := range registry.Snapshot() {
		switch info.ID {
		case first.id:
			if info.Role != ref.RoleMain {
				t.Errorf("first window role = %s, want main", info.Role)
			}
		case second.id:
			if info.Role != ref.RoleSecondary {
				t.Errorf("demoted window role = %s, want secondary", info.Role)
			}
		}
	}
}

func TestRegistryRemoveVacatesMain(t *testing.T) {
	registry := NewRegistry(testutil.NewTestLogger(t))

	main := newFakeEndpoint("main-window")
	other := newFakeEndpoint("other")
	addWindow(t, registry, main, ref.RoleMain)
	addWindow(t, registry, other, ref.RoleSecondary)

	registry.Remove(main.id)

	if _, ok := registry.MainWindow(); ok {
		t.Error("main slot still occupied after holder removed")
	}
	windows := registry.Windows()
	if len(windows) != 1 || windows[0].ID() != other.id {
		t.Errorf("surviving windows = %v, want just %s", windows, other.id)
	}

	// Removing an unknown id is a no-op.
	registry.Remove(ref.MustParseWindowID("never-registered"))
	if got := len(registry.Windows()); got != 1 {
		t.Errorf("registry holds %d windows, want 1", got)
	}
}

func TestRegistrySetMain(t *testing.T) {
	registry := NewRegistry(testutil.NewTestLogger(t))

	first := newFakeEndpoint("editor")
	second := newFakeEndpoint("inspector")
	addWindow(t, registry, first, ref.RoleSecondary)
	addWindow(t, registry, second, ref.RoleSecondary)

	if err := registry.SetMain(first.id); err != nil {
		t.Fatalf("SetMain: %v", err)
	}
	main, ok := registry.MainWindow()
	if !ok || main.ID() != first.id {
		t.Fatalf("main window = %v (ok=%t), want %s", main, ok, first.id)
	}

	// Re-designating the holder is fine; claiming over it is not.
	if err := registry.SetMain(first.id); err != nil {
		t.Errorf("SetMain on current holder: %v", err)
	}
	if err := registry.SetMain(second.id); err == nil {
		t.Error("SetMain succeeded while another window holds the slot")
	}
	if err := registry.SetMain(ref.MustParseWindowID("ghost")); err == nil {
		t.Error("SetMain succeeded for an unknown window")
	}
}

func TestRegistrySnapshotIsIsolated(t *testing.T) {
	registry := NewRegistry(testutil.NewTestLogger(t))
	panel := ref.MustParsePanelID("editor.outline")
	addWindow(t, registry, newFakeEndpoint("editor"), ref.RoleSecondary, panel)

	first := registry.Snapshot()
	if len(first) != 1 || len(first[0].Panels) != 1 {
		t.Fatalf("snapshot = %+v, want one window with one panel", first)
	}
	first[0].Panels[0] = ref.MustParsePanelID("tampered.panel")

	second := registry.Snapshot()
	if second[0].Panels[0] != panel {
		t.Errorf("registry panel list changed to %s via snapshot mutation", second[0].Panels[0])
	}
}
