// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package traceui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the trace viewer. All colors are
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Base text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected table row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Chrome: title line, column headers, rules, help bar.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Stream state in the title line.
	StatusLive   lipgloss.Color
	StatusPaused lipgloss.Color
	StatusEnded  lipgloss.Color

	// Direction column.
	DirectionIn  lipgloss.Color
	DirectionOut lipgloss.Color

	// Frame kind groups.
	KindEvent     lipgloss.Color
	KindBroadcast lipgloss.Color
	KindSend      lipgloss.Color
	KindRequest   lipgloss.Color
	KindReply     lipgloss.Color

	// Failure replies and error text.
	ErrorText lipgloss.Color
}

// KindColor returns the color for a frame kind. Unknown kinds render
// faint so new frame types degrade gracefully in old viewers.
func (theme Theme) KindColor(kind string) lipgloss.Color {
	switch kind {
	case "event", "panel-event":
		return theme.KindEvent
	case "broadcast-windows", "broadcast-all":
		return theme.KindBroadcast
	case "send-main", "send-panel":
		return theme.KindSend
	case "request":
		return theme.KindRequest
	case "reply":
		return theme.KindReply
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"), // light gray
	FaintText:  lipgloss.Color("245"), // medium gray

	SelectedBackground: lipgloss.Color("236"), // dark gray
	SelectedForeground: lipgloss.Color("255"), // near white

	HeaderForeground: lipgloss.Color("255"), // near white
	BorderColor:      lipgloss.Color("240"), // dark gray
	HelpText:         lipgloss.Color("241"), // dim gray

	StatusLive:   lipgloss.Color("114"), // green
	StatusPaused: lipgloss.Color("220"), // amber
	StatusEnded:  lipgloss.Color("196"), // red

	DirectionIn:  lipgloss.Color("114"), // green, traffic arriving at the shell
	DirectionOut: lipgloss.Color("75"),  // blue, deliveries to windows

	KindEvent:     lipgloss.Color("252"), // light gray
	KindBroadcast: lipgloss.Color("141"), // light purple
	KindSend:      lipgloss.Color("75"),  // blue
	KindRequest:   lipgloss.Color("220"), // amber
	KindReply:     lipgloss.Color("114"), // green

	ErrorText: lipgloss.Color("196"), // red
}
