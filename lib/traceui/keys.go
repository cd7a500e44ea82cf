// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package traceui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the trace viewer.
type KeyMap struct {
	// Table navigation. Moving off the newest row disengages follow
	// mode; End snaps back to it.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Pause freezes the table; entries arriving meanwhile are
	// buffered and flushed on resume.
	Pause key.Binding

	// Detail toggles the field view of the selected entry.
	Detail key.Binding

	// FilterActivate focuses the filter input; Back closes the
	// detail view or clears the filter.
	FilterActivate key.Binding
	Back           key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// alongside standard arrow and page keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "oldest"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "follow"),
	),
	Pause: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "pause"),
	),
	Detail: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "detail"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
