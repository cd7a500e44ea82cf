// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest parses the panel manifest: the static declaration
// of every panel package known to the shell and the panels each one
// provides. The shell loads it at startup (and on change) to learn
// each panel's kind; which window actually hosts a panel is decided
// at runtime by connection handshakes, not by the manifest.
//
// Manifests are authored as JSONC (JSON extended with comments and
// trailing commas):
//
//	{
//	  // Panels provided by the editor package.
//	  "packages": [
//	    {
//	      "name": "editor",
//	      "panels": [
//	        {"name": "outline", "kind": "simple"},
//	        {"name": "terminal", "kind": "composite"},
//	      ],
//	    },
//	  ],
//	}
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Manifest
//  2. Table: validate entries and build the PanelID → kind table
//
// Load combines both for callers that only want the table.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
)

// Panel declares one panel within a package.
type Panel struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Package groups the panel declarations of one panel package. The
// package name is the first segment of every contained panel's ID.
type Package struct {
	Name   string  `json:"name"`
	Panels []Panel `json:"panels"`
}

// Manifest is the parsed panel manifest document.
type Manifest struct {
	Packages []Package `json:"packages"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Manifest. Structural validation
// happens in Table, not here.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var m Manifest
	if err := json.Unmarshal(stripped, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	return &m, nil
}

// ReadFile reads a JSONC manifest file from disk and parses it.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// Table validates the manifest entries and builds the panel kind
// table. Errors carry the position of the offending entry
// (e.g., `packages[1] "editor": panels[0]: ...`) so the author can
// find it in the file.
//
// A manifest with no packages is valid and yields an empty table.
func (m *Manifest) Table() (map[ref.PanelID]fabric.PanelKind, error) {
	table := make(map[ref.PanelID]fabric.PanelKind)
	packageSeen := make(map[string]int, len(m.Packages))
	panelSeen := make(map[ref.PanelID]string)

	for pkgIndex, pkg := range m.Packages {
		prefix := fmt.Sprintf("packages[%d] %q", pkgIndex, pkg.Name)

		if pkg.Name == "" {
			return nil, fmt.Errorf("packages[%d]: name is required", pkgIndex)
		}
		if firstIndex, exists := packageSeen[pkg.Name]; exists {
			return nil, fmt.Errorf("%s: duplicate package name (first declared at packages[%d])", prefix, firstIndex)
		}
		packageSeen[pkg.Name] = pkgIndex

		for panelIndex, panel := range pkg.Panels {
			position := fmt.Sprintf("%s: panels[%d]", prefix, panelIndex)

			id, err := ref.ParsePanelID(pkg.Name + "." + panel.Name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", position, err)
			}
			kind, err := fabric.ParsePanelKind(panel.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", position, panel.Name, err)
			}
			if first, exists := panelSeen[id]; exists {
				return nil, fmt.Errorf("%s: duplicate panel %q (first declared at %s)", position, id, first)
			}
			panelSeen[id] = position
			table[id] = kind
		}
	}

	return table, nil
}

// Load reads, parses, and validates a manifest file, returning the
// panel kind table. This is what the shell calls at startup and on
// manifest change.
func Load(path string) (map[ref.PanelID]fabric.PanelKind, error) {
	m, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	table, err := m.Table()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
