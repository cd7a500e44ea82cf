// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
)

// WindowInfo describes one registered window for logs and diagnostics.
type WindowInfo struct {
	// ID is the window's identity, unique among live windows.
	ID ref.WindowID

	// Role is the window's effective role. A main claim that lost the
	// main-window conflict appears here as secondary.
	Role ref.Role

	// Instance is the UUID the window minted for this connection.
	Instance string

	// ConnectedAt is when the handshake completed.
	ConnectedAt time.Time

	// Panels lists the panel ids the window claimed in its hello.
	Panels []ref.PanelID
}

// registered pairs an endpoint with its descriptive info.
type registered struct {
	endpoint fabric.Endpoint
	info     WindowInfo
}

// Registry is the live window collection, the broker's implementation
// of fabric.WindowRegistry. Windows enter on handshake completion and
// leave on disconnect.
//
// At most one window holds the main slot: the first window registered
// with the main role occupies it, later main claims are demoted to
// secondary with a warning, and the slot is vacated when its holder
// disconnects. Vacancy is a normal transient state during startup and
// shutdown; nothing is promoted to fill it.
//
// Registry is safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	windows map[ref.WindowID]*registered
	order   []ref.WindowID
	main    ref.WindowID
}

// NewRegistry creates an empty registry reporting to logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		windows: make(map[ref.WindowID]*registered),
	}
}

// Add registers endpoint under info.ID. Fails when the id is already
// held by a live window; the caller rejects the handshake with the
// returned error. A main-role claim while the main slot is occupied is
// demoted to secondary, not an error: the window still connects, it
// just does not become main.
func (r *Registry) Add(endpoint fabric.Endpoint, info WindowInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.windows[info.ID]; ok {
		return fmt.Errorf("window %q already connected (instance %s)",
			info.ID, existing.info.Instance)
	}

	if info.Role == ref.RoleMain {
		if r.main.IsZero() {
			r.main = info.ID
		} else {
			r.logger.Warn("main role already held, demoting to secondary",
				"window", info.ID,
				"main", r.main,
			)
			info.Role = ref.RoleSecondary
		}
	}

	r.windows[info.ID] = &registered{endpoint: endpoint, info: info}
	r.order = append(r.order, info.ID)
	return nil
}

// Remove unregisters the window, vacating the main slot if it held it.
// Removing an unknown id is a no-op.
func (r *Registry) Remove(id ref.WindowID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[id]; !ok {
		return
	}
	delete(r.windows, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.main == id {
		r.main = ref.WindowID{}
		r.logger.Info("main window slot vacated", "window", id)
	}
}

// SetMain designates an already-registered window as the main window.
// Fails when the window is unknown or another window holds the slot.
// The handshake path never calls this; it exists for shell-side window
// management that promotes a window after startup.
func (r *Registry) SetMain(id ref.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.windows[id]
	if !ok {
		return fmt.Errorf("window %q not connected", id)
	}
	if !r.main.IsZero() && r.main != id {
		return fmt.Errorf("main role already held by %q", r.main)
	}
	r.main = id
	entry.info.Role = ref.RoleMain
	return nil
}

// Windows returns a fresh snapshot of the live endpoints in connection
// order. The slice is the caller's; the registry retains nothing.
func (r *Registry) Windows() []fabric.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoints := make([]fabric.Endpoint, 0, len(r.order))
	for _, id := range r.order {
		endpoints = append(endpoints, r.windows[id].endpoint)
	}
	return endpoints
}

// MainWindow returns the endpoint holding the main slot, or false when
// the slot is vacant.
func (r *Registry) MainWindow() (fabric.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.main.IsZero() {
		return nil, false
	}
	return r.windows[r.main].endpoint, true
}

// MainID returns the window id holding the main slot, zero when
// vacant. Diagnostics only.
func (r *Registry) MainID() ref.WindowID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.main
}

// Snapshot returns the info of every live window in connection order.
// Panel slices are copied; the result shares nothing with the
// registry.
func (r *Registry) Snapshot() []WindowInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]WindowInfo, 0, len(r.order))
	for _, id := range r.order {
		info := r.windows[id].info
		if len(info.Panels) > 0 {
			panels := make([]ref.PanelID, len(info.Panels))
			copy(panels, info.Panels)
			info.Panels = panels
		}
		infos = append(infos, info)
	}
	return infos
}
