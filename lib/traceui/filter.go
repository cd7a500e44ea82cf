// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package traceui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FilterModel implements case-insensitive substring matching across an
// entry's routable fields: kind, message, window, panel, direction,
// and error text. The filter narrows the table client-side; the stream
// keeps collecting unfiltered underneath, so clearing the filter
// brings everything back.
type FilterModel struct {
	// Input is the current filter query text.
	Input string

	// Active is true when the filter input has keyboard focus
	// (the user pressed / to start typing).
	Active bool
}

// MatchesEntry returns true if the entry matches the current filter.
// An empty filter matches everything. Matching is case-insensitive
// substring against each searchable field; if any field contains the
// query, the entry matches.
func (filter *FilterModel) MatchesEntry(entry Entry) bool {
	if filter.Input == "" {
		return true
	}

	query := strings.ToLower(filter.Input)

	// Match against frame kind.
	if strings.Contains(strings.ToLower(entry.Kind), query) {
		return true
	}

	// Match against message name.
	if strings.Contains(strings.ToLower(string(entry.Message)), query) {
		return true
	}

	// Match against the counterparty window.
	if strings.Contains(strings.ToLower(entry.Window.String()), query) {
		return true
	}

	// Match against the panel address.
	if !entry.Panel.IsZero() &&
		strings.Contains(strings.ToLower(entry.Panel.String()), query) {
		return true
	}

	// Match against direction ("in" / "out").
	if strings.Contains(strings.ToLower(entry.Direction), query) {
		return true
	}

	// Match against reply error text.
	if entry.Error != "" &&
		strings.Contains(strings.ToLower(entry.Error), query) {
		return true
	}

	return false
}

// HandleRune processes a character typed while the filter is active.
// Returns true if the input changed.
func (filter *FilterModel) HandleRune(character rune) bool {
	filter.Input += string(character)
	return true
}

// HandleBackspace removes the last character from the filter input.
// Returns true if the input changed.
func (filter *FilterModel) HandleBackspace() bool {
	if len(filter.Input) == 0 {
		return false
	}
	runes := []rune(filter.Input)
	filter.Input = string(runes[:len(runes)-1])
	return true
}

// Clear resets the filter input and deactivates it.
func (filter *FilterModel) Clear() {
	filter.Input = ""
	filter.Active = false
}

// View renders the filter bar. When active, shows the input with a
// cursor. When inactive with text, shows the filter text. When
// inactive with no text, returns empty string (hidden).
func (filter *FilterModel) View(theme Theme, width int) string {
	if !filter.Active && filter.Input == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(theme.NormalText).
		Width(width)

	if filter.Active {
		cursor := lipgloss.NewStyle().
			Foreground(theme.HeaderForeground).
			Bold(true).
			Render("▎")
		return style.Render(" / " + filter.Input + cursor)
	}

	// Inactive but has text, show the filter as a subtle indicator.
	dimStyle := lipgloss.NewStyle().
		Foreground(theme.FaintText).
		Width(width)
	return dimStyle.Render(" filter: " + filter.Input)
}
