// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package traceui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Column widths for the entry table. The message column absorbs
// whatever width remains.
const (
	columnSequence = 6
	columnTime     = 12 // "15:04:05.000"
	columnDir      = 3
	columnWindow   = 12
	columnKind     = 17 // Longest kind name: "broadcast-windows".
	columnArgs     = 4

	// columnGap separates adjacent columns.
	columnGap = "  "
)

// fixedColumns is the width the fixed columns and their gaps occupy,
// before the message column.
const fixedColumns = columnSequence + columnTime + columnDir +
	columnWindow + columnKind + columnArgs + 6*len(columnGap)

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	var sections []string

	// The filter bar replaces the title line while it has text.
	filterBar := model.filter.View(model.theme, model.width)
	if filterBar != "" {
		sections = append(sections, filterBar)
	} else {
		sections = append(sections, model.renderHeader())
	}

	if model.focus == FocusDetail {
		sections = append(sections, model.renderDetail())
	} else {
		sections = append(sections, model.renderTable())
	}

	rule := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", max(model.width, 1)))
	sections = append(sections, rule)
	sections = append(sections, model.renderHelp())

	return strings.Join(sections, "\n")
}

// renderHeader renders the title line in the btop style: the viewer
// name embedded in a horizontal rule with stream status and entry
// counts on the right.
//
// Example: ─── Mullion Trace ──────────── 212 shown of 212  live ─
func (model Model) renderHeader() string {
	separatorStyle := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor)
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground)
	statsStyle := lipgloss.NewStyle().
		Foreground(model.theme.FaintText)

	sep := separatorStyle.Render("─")

	title := "Mullion Trace"
	left := sep + sep + sep + " " + titleStyle.Render(title) + " " + sep
	leftWidth := 3 + 1 + lipgloss.Width(title) + 1 + 1

	statusText, statusColor := model.streamStatus()
	statusRendered := lipgloss.NewStyle().
		Foreground(statusColor).
		Render(statusText)

	countsText := fmt.Sprintf("%d shown of %d",
		len(model.visible), len(model.all))
	countsRendered := statsStyle.Render(countsText)

	rightPortion := " " + countsRendered + "  " + statusRendered + " " + sep
	rightWidth := 1 + lipgloss.Width(countsText) + 2 +
		lipgloss.Width(statusText) + 1 + 1

	fillCount := model.width - leftWidth - rightWidth
	if fillCount < 1 {
		fillCount = 1
	}
	fill := ""
	for range fillCount {
		fill += sep
	}

	return left + fill + rightPortion
}

// streamStatus returns the stream state label for the title line and
// its color.
func (model Model) streamStatus() (string, lipgloss.Color) {
	switch {
	case model.streamEnded:
		return "stream ended", model.theme.StatusEnded
	case model.paused:
		if len(model.pending) > 0 {
			return fmt.Sprintf("paused +%d", len(model.pending)),
				model.theme.StatusPaused
		}
		return "paused", model.theme.StatusPaused
	default:
		return "live", model.theme.StatusLive
	}
}

// renderTable renders the column header and the viewport rows, padded
// to a fixed height so the bottom chrome stays anchored.
func (model Model) renderTable() string {
	lines := []string{model.renderColumnHeader()}

	height := model.tableHeight()
	if height < 1 {
		height = 1
	}

	if len(model.visible) == 0 {
		empty := "Waiting for trace entries..."
		if model.filter.Input != "" {
			empty = "No entries match the filter."
		}
		emptyStyle := lipgloss.NewStyle().
			Foreground(model.theme.FaintText)
		lines = append(lines, " "+emptyStyle.Render(empty))
	} else {
		end := model.scrollOffset + height
		if end > len(model.visible) {
			end = len(model.visible)
		}
		for row := model.scrollOffset; row < end; row++ {
			entry := model.all[model.visible[row]]
			lines = append(lines,
				model.renderRow(entry, row == model.cursor))
		}
	}

	// Pad below the rows so the rule and help bar sit at the bottom
	// of the terminal.
	for len(lines) < height+1 {
		lines = append(lines, "")
	}
	return strings.Join(lines[:height+1], "\n")
}

// renderColumnHeader renders the fixed column labels.
func (model Model) renderColumnHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground)

	cells := []string{
		fmt.Sprintf("%*s", columnSequence, "SEQ"),
		fmt.Sprintf("%-*s", columnTime, "TIME"),
		fmt.Sprintf("%-*s", columnDir, "DIR"),
		fmt.Sprintf("%-*s", columnWindow, "WINDOW"),
		fmt.Sprintf("%-*s", columnKind, "KIND"),
		fmt.Sprintf("%*s", columnArgs, "ARGS"),
		"MESSAGE",
	}
	return headerStyle.Render(strings.Join(cells, columnGap))
}

// renderRow renders a single table row. The selected row drops the
// per-cell colors in favor of a full-width highlight so the selection
// reads at a glance.
func (model Model) renderRow(entry Entry, selected bool) string {
	sequence := fmt.Sprintf("%*d", columnSequence, entry.Sequence)
	timestamp := entry.Timestamp.Format("15:04:05.000")
	direction := fmt.Sprintf("%-*s", columnDir,
		truncateString(entry.Direction, columnDir))
	window := fmt.Sprintf("%-*s", columnWindow,
		truncateString(entry.Window.String(), columnWindow))
	kind := fmt.Sprintf("%-*s", columnKind,
		truncateString(entry.Kind, columnKind))
	args := fmt.Sprintf("%*d", columnArgs, entry.Args)

	messageWidth := model.width - fixedColumns
	if messageWidth < 8 {
		messageWidth = 8
	}
	message := truncateString(model.messageCell(entry), messageWidth)

	if selected {
		plain := strings.Join([]string{
			sequence, timestamp, direction, window, kind, args, message,
		}, columnGap)
		return lipgloss.NewStyle().
			Background(model.theme.SelectedBackground).
			Foreground(model.theme.SelectedForeground).
			Width(model.width).
			Render(plain)
	}

	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	directionStyle := lipgloss.NewStyle().
		Foreground(model.theme.DirectionOut)
	if entry.Direction == "in" {
		directionStyle = directionStyle.
			Foreground(model.theme.DirectionIn)
	}
	kindStyle := lipgloss.NewStyle().
		Foreground(model.theme.KindColor(entry.Kind))
	messageStyle := lipgloss.NewStyle().
		Foreground(model.theme.NormalText)
	if entry.Error != "" {
		messageStyle = messageStyle.Foreground(model.theme.ErrorText)
	}

	cells := []string{
		faint.Render(sequence),
		faint.Render(timestamp),
		directionStyle.Render(direction),
		lipgloss.NewStyle().Foreground(model.theme.NormalText).Render(window),
		kindStyle.Render(kind),
		faint.Render(args),
		messageStyle.Render(message),
	}
	return strings.Join(cells, columnGap)
}

// messageCell builds the free-form column: the message name, then the
// panel address, session number, and error text when present.
func (model Model) messageCell(entry Entry) string {
	var cell strings.Builder
	cell.WriteString(string(entry.Message))
	if !entry.Panel.IsZero() {
		if cell.Len() > 0 {
			cell.WriteString(" ")
		}
		cell.WriteString("@" + entry.Panel.String())
	}
	if !entry.Session.IsZero() {
		fmt.Fprintf(&cell, " #%s", entry.Session)
	}
	if entry.Error != "" {
		cell.WriteString(" ! " + entry.Error)
	}
	return cell.String()
}

// renderDetail renders the selected entry as a full field listing in
// place of the table, inside a rounded border.
func (model Model) renderDetail() string {
	entry, ok := model.selectedEntry()
	if !ok {
		return model.renderTable()
	}

	label := lipgloss.NewStyle().
		Foreground(model.theme.FaintText).
		Width(11)
	value := lipgloss.NewStyle().
		Foreground(model.theme.NormalText)

	directionStyle := lipgloss.NewStyle().
		Foreground(model.theme.DirectionOut)
	direction := "out, shell to window"
	if entry.Direction == "in" {
		directionStyle = directionStyle.
			Foreground(model.theme.DirectionIn)
		direction = "in, window to shell"
	}

	lines := []string{
		label.Render("Sequence") + value.Render(
			fmt.Sprintf("%d", entry.Sequence)),
		label.Render("Time") + value.Render(
			entry.Timestamp.Format(time.RFC3339Nano)),
		label.Render("Direction") + directionStyle.Render(direction),
		label.Render("Window") + value.Render(entry.Window.String()),
		label.Render("Kind") + lipgloss.NewStyle().
			Foreground(model.theme.KindColor(entry.Kind)).
			Render(entry.Kind),
	}
	if !entry.Message.IsZero() {
		lines = append(lines,
			label.Render("Message")+value.Render(string(entry.Message)))
	}
	if !entry.Panel.IsZero() {
		lines = append(lines,
			label.Render("Panel")+value.Render(entry.Panel.String()))
	}
	if !entry.Session.IsZero() {
		lines = append(lines,
			label.Render("Session")+value.Render(entry.Session.String()))
	}
	lines = append(lines,
		label.Render("Args")+value.Render(fmt.Sprintf("%d", entry.Args)))
	if entry.Error != "" {
		errorStyle := lipgloss.NewStyle().
			Foreground(model.theme.ErrorText)
		lines = append(lines,
			label.Render("Error")+errorStyle.Render(entry.Error))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(model.theme.BorderColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))

	// The detail replaces the column header and the rows, so pad to
	// the same footprint.
	return padToHeight(box, model.tableHeight()+1)
}

// renderHelp renders the bottom help bar with key hints and cursor
// position.
func (model Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)

	focusIndicator := "TABLE"
	switch model.focus {
	case FocusDetail:
		focusIndicator = "DETAIL"
	case FocusFilter:
		focusIndicator = "FILTER"
	}

	help := fmt.Sprintf(" [%s] q quit  ↑↓ navigate  space pause  Enter detail  / filter  G follow  Esc back",
		focusIndicator)

	position := ""
	if len(model.visible) > 0 {
		position = fmt.Sprintf("%d/%d ", model.cursor+1, len(model.visible))
	}

	fillCount := model.width - ansi.StringWidth(help) -
		ansi.StringWidth(position)
	if fillCount < 1 {
		fillCount = 1
	}

	return style.Render(help) + strings.Repeat(" ", fillCount) +
		style.Render(position)
}

// truncateString cuts text to maxWidth display cells.
func truncateString(text string, maxWidth int) string {
	if lipgloss.Width(text) <= maxWidth {
		return text
	}
	// Truncate by runes until it fits.
	runes := []rune(text)
	for length := len(runes) - 1; length >= 0; length-- {
		candidate := string(runes[:length])
		if lipgloss.Width(candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}

// padToHeight pads block with blank lines to exactly height rows, or
// cuts overflow, so the chrome below it stays anchored.
func padToHeight(block string, height int) string {
	if height < 1 {
		height = 1
	}
	lines := strings.Split(block, "\n")
	if len(lines) >= height {
		return strings.Join(lines[:height], "\n")
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
