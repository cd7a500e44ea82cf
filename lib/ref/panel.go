// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// PanelID is a validated panel identifier in "package.panel" form
// (e.g., "editor.outline", "terminal.scrollback").
//
// The package segment names the panel package that declared the panel
// in its manifest; the panel segment names the panel within that
// package. Both segments are slugs. The shell resolves a PanelID to
// the window currently hosting that panel.
//
// PanelID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type PanelID struct {
	pkg   string
	panel string
}

// ParsePanelID validates and parses a raw "package.panel" identifier.
func ParsePanelID(raw string) (PanelID, error) {
	if raw == "" {
		return PanelID{}, fmt.Errorf("panel ID is empty")
	}
	pkg, panel, found := strings.Cut(raw, ".")
	if !found {
		return PanelID{}, fmt.Errorf("panel ID %q missing '.' separator (want package.panel)", raw)
	}
	if strings.Contains(panel, ".") {
		return PanelID{}, fmt.Errorf("panel ID %q has more than two segments (want package.panel)", raw)
	}
	if err := validateSlug(pkg, "panel package"); err != nil {
		return PanelID{}, err
	}
	if err := validateSlug(panel, "panel name"); err != nil {
		return PanelID{}, err
	}
	return PanelID{pkg: pkg, panel: panel}, nil
}

// MustParsePanelID is ParsePanelID that panics on error. For constants
// and tests where the input is known valid.
func MustParsePanelID(raw string) PanelID {
	p, err := ParsePanelID(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Package returns the package segment (e.g., "editor").
func (p PanelID) Package() string { return p.pkg }

// Panel returns the panel segment (e.g., "outline").
func (p PanelID) Panel() string { return p.panel }

// String returns the full "package.panel" identifier.
func (p PanelID) String() string {
	if p.IsZero() {
		return ""
	}
	return p.pkg + "." + p.panel
}

// IsZero reports whether the PanelID is the zero value (uninitialized).
func (p PanelID) IsZero() bool { return p.pkg == "" }

// MarshalText implements encoding.TextMarshaler. A zero-value PanelID
// marshals as the empty string — envelopes not addressed to a panel
// omit the field entirely.
func (p PanelID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value, mirroring MarshalText.
func (p *PanelID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*p = PanelID{}
		return nil
	}
	parsed, err := ParsePanelID(string(data))
	if err != nil {
		return fmt.Errorf("unmarshal panel ID: %w", err)
	}
	*p = parsed
	return nil
}
