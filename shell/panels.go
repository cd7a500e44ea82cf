// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
)

// PanelTable maps panel ids to their kind and their current owner, the
// broker's implementation of fabric.PanelResolver.
//
// The two halves of a panel route have different lifetimes. The KIND
// comes from the static manifest and changes only on manifest reload.
// The OWNER binds when a window's hello claims the panel and unbinds
// when that window disconnects. A panel resolves only while it has
// both: a declared panel nobody hosts is unroutable, and so is a claim
// on a panel the manifest does not declare.
//
// PanelTable is safe for concurrent use.
type PanelTable struct {
	logger *slog.Logger

	mu     sync.RWMutex
	kinds  map[ref.PanelID]fabric.PanelKind
	owners map[ref.PanelID]fabric.Endpoint
}

// PanelStatus describes one declared or claimed panel for diagnostics.
type PanelStatus struct {
	ID    ref.PanelID
	Kind  fabric.PanelKind // zero when claimed but undeclared
	Owner ref.WindowID     // zero when declared but unclaimed
}

// NewPanelTable creates a table with the given declared kinds
// (typically from manifest.Load) and no owners. The kinds map is
// copied.
func NewPanelTable(kinds map[ref.PanelID]fabric.PanelKind, logger *slog.Logger) *PanelTable {
	table := &PanelTable{
		logger: logger,
		kinds:  make(map[ref.PanelID]fabric.PanelKind, len(kinds)),
		owners: make(map[ref.PanelID]fabric.Endpoint),
	}
	for id, kind := range kinds {
		table.kinds[id] = kind
	}
	return table
}

// SetKinds replaces the declared kinds, for manifest hot-reload.
// Ownership bindings persist across the swap: a window hosting a panel
// keeps hosting it, and routing resumes or stops purely based on
// whether the new manifest declares the panel.
func (t *PanelTable) SetKinds(kinds map[ref.PanelID]fabric.PanelKind) {
	replacement := make(map[ref.PanelID]fabric.PanelKind, len(kinds))
	for id, kind := range kinds {
		replacement[id] = kind
	}

	t.mu.Lock()
	t.kinds = replacement
	t.mu.Unlock()

	t.logger.Info("panel kinds replaced", "panels", len(replacement))
}

// Claim binds panel to owner. The first claim wins: a panel already
// owned by another live window stays with its current owner and the
// conflict is logged. Claims on panels the manifest does not declare
// are recorded too — they do not route until a manifest reload
// declares the panel — with a warning that names the closest declared
// id when one is within typo distance.
func (t *PanelTable) Claim(panel ref.PanelID, owner fabric.Endpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.owners[panel]; ok {
		if existing.ID() == owner.ID() {
			return
		}
		t.logger.Warn("panel already claimed, keeping first owner",
			"panel", panel,
			"owner", existing.ID(),
			"claimant", owner.ID(),
		)
		return
	}

	if _, declared := t.kinds[panel]; !declared {
		suggestion := t.suggestLocked(panel)
		if suggestion.IsZero() {
			t.logger.Warn("claim on undeclared panel",
				"panel", panel,
				"window", owner.ID(),
			)
		} else {
			t.logger.Warn("claim on undeclared panel",
				"panel", panel,
				"window", owner.ID(),
				"did_you_mean", suggestion,
			)
		}
	}

	t.owners[panel] = owner
}

// Release unbinds every panel owned by the window. Called on
// disconnect.
func (t *PanelTable) Release(owner ref.WindowID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for panel, endpoint := range t.owners {
		if endpoint.ID() == owner {
			delete(t.owners, panel)
		}
	}
}

// Lookup resolves a panel to its route. Resolution needs both halves:
// a declared kind and a live owner.
func (t *PanelTable) Lookup(panel ref.PanelID) (fabric.PanelRoute, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	kind, declared := t.kinds[panel]
	if !declared {
		return fabric.PanelRoute{}, false
	}
	owner, claimed := t.owners[panel]
	if !claimed {
		return fabric.PanelRoute{}, false
	}
	return fabric.PanelRoute{Owner: owner, Kind: kind}, true
}

// Snapshot returns every declared or claimed panel sorted by id.
// Diagnostics only.
func (t *PanelTable) Snapshot() []PanelStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[ref.PanelID]PanelStatus, len(t.kinds))
	for id, kind := range t.kinds {
		seen[id] = PanelStatus{ID: id, Kind: kind}
	}
	for id, owner := range t.owners {
		status := seen[id]
		status.ID = id
		status.Owner = owner.ID()
		seen[id] = status
	}

	statuses := make([]PanelStatus, 0, len(seen))
	for _, status := range seen {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ID.String() < statuses[j].ID.String()
	})
	return statuses
}

// claimSuggestThreshold is the maximum edit distance for a
// did-you-mean suggestion on an undeclared panel claim.
const claimSuggestThreshold = 3

// suggestLocked returns the declared panel id closest to unknown, or
// zero when nothing is within the typo threshold. Caller holds t.mu.
func (t *PanelTable) suggestLocked(unknown ref.PanelID) ref.PanelID {
	var best ref.PanelID
	bestDistance := claimSuggestThreshold + 1
	for id := range t.kinds {
		distance := levenshtein.ComputeDistance(unknown.String(), id.String())
		if distance < bestDistance {
			bestDistance = distance
			best = id
		}
	}
	return best
}
