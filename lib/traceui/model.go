// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package traceui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// FocusRegion identifies which part of the viewer has keyboard focus.
type FocusRegion int

const (
	// FocusTable means navigation keys move the table cursor.
	FocusTable FocusRegion = iota
	// FocusFilter means keystrokes go to the filter input.
	FocusFilter
	// FocusDetail means the field view of the selected entry is
	// showing in place of the table.
	FocusDetail
)

// maxEntries bounds the in-memory trace. The oldest entries are
// trimmed past this; the shell's own ring already bounds what a late
// subscriber can see, this bounds a long-running viewer.
const maxEntries = 2000

// entryMsg wraps one stream entry for delivery through the bubbletea
// message loop.
type entryMsg struct {
	entry Entry
}

// streamEndMsg reports that the entry channel closed: the diagnostics
// stream is over, by shell shutdown or connection loss.
type streamEndMsg struct{}

// Model is the top-level bubbletea model for the trace viewer.
type Model struct {
	entries <-chan Entry
	theme   Theme
	keys    KeyMap

	// Terminal dimensions, set by the first WindowSizeMsg.
	width  int
	height int
	ready  bool

	// all holds collected entries, oldest first, trimmed to
	// maxEntries. visible maps table rows to indices into all after
	// filtering.
	all     []Entry
	visible []int

	filter FilterModel
	focus  FocusRegion

	// cursor is the selected row in visible; scrollOffset is the
	// first row in the viewport.
	cursor       int
	scrollOffset int

	// follow pins the cursor to the newest row as entries arrive.
	// Moving the cursor off the newest row disengages it.
	follow bool

	// paused buffers arriving entries in pending instead of showing
	// them; resume flushes the buffer.
	paused  bool
	pending []Entry

	// streamEnded is set when the entry channel closes.
	streamEnded bool
}

// NewModel creates a trace viewer consuming entries from the channel.
// The channel is typically fed by a goroutine decoding the shell's
// diagnostics stream; closing it tells the viewer the stream is over.
func NewModel(entries <-chan Entry) Model {
	return Model{
		entries: entries,
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		follow:  true,
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	if model.entries == nil {
		return nil
	}
	return listenForEntry(model.entries)
}

// listenForEntry returns a command that blocks until the next stream
// entry and delivers it as an entryMsg. A closed channel becomes a
// streamEndMsg.
func listenForEntry(entries <-chan Entry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-entries
		if !ok {
			return streamEndMsg{}
		}
		return entryMsg{entry: entry}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if model.focus == FocusFilter {
			return model.handleFilterKeys(message)
		}
		return model.handleTableKeys(message)

	case entryMsg:
		model.ingest(message.entry)
		if model.entries == nil {
			return model, nil
		}
		return model, listenForEntry(model.entries)

	case streamEndMsg:
		model.streamEnded = true
		return model, nil

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.clampScroll()
	}

	return model, nil
}

// handleTableKeys routes key input while the table or the detail view
// has focus.
func (model Model) handleTableKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Pause):
		model.togglePause()

	case key.Matches(message, model.keys.FilterActivate):
		if model.focus == FocusTable {
			model.filter.Active = true
			model.focus = FocusFilter
		}

	case key.Matches(message, model.keys.Detail):
		if model.focus == FocusDetail {
			model.focus = FocusTable
		} else if len(model.visible) > 0 {
			model.focus = FocusDetail
		}

	case key.Matches(message, model.keys.Back):
		if model.focus == FocusDetail {
			model.focus = FocusTable
		} else if model.filter.Input != "" {
			model.filter.Clear()
			model.rebuildVisible()
		}

	case key.Matches(message, model.keys.Up):
		model.moveCursor(-1)

	case key.Matches(message, model.keys.Down):
		model.moveCursor(1)

	case key.Matches(message, model.keys.PageUp):
		model.moveCursor(-model.pageStep())

	case key.Matches(message, model.keys.PageDown):
		model.moveCursor(model.pageStep())

	case key.Matches(message, model.keys.Home):
		model.setCursor(0)
		model.follow = false

	case key.Matches(message, model.keys.End):
		model.setCursor(len(model.visible) - 1)
		model.follow = true
	}

	return model, nil
}

// handleFilterKeys routes key input while the filter bar has focus.
func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyCtrlC:
		return model, tea.Quit

	case tea.KeyEscape:
		model.filter.Clear()
		model.focus = FocusTable
		model.rebuildVisible()

	case tea.KeyEnter:
		// Keep the filter text, return focus to the table.
		model.filter.Active = false
		model.focus = FocusTable

	case tea.KeyBackspace:
		if model.filter.HandleBackspace() {
			model.rebuildVisible()
		}

	case tea.KeyRunes, tea.KeySpace:
		for _, character := range message.Runes {
			model.filter.HandleRune(character)
		}
		if message.Type == tea.KeySpace {
			model.filter.HandleRune(' ')
		}
		model.rebuildVisible()
	}

	return model, nil
}

// ingest files one arriving entry: buffered while paused, appended to
// the table otherwise.
func (model *Model) ingest(entry Entry) {
	if model.paused {
		model.pending = append(model.pending, entry)
		if len(model.pending) > maxEntries {
			model.pending = model.pending[len(model.pending)-maxEntries:]
		}
		return
	}
	model.all = append(model.all, entry)
	if len(model.all) > maxEntries {
		model.all = model.all[len(model.all)-maxEntries:]
	}
	model.rebuildVisible()
}

// togglePause freezes or resumes the table. Resuming flushes every
// entry buffered while paused, so nothing is lost; the stream keeps
// flowing underneath either way.
func (model *Model) togglePause() {
	model.paused = !model.paused
	if model.paused {
		return
	}
	model.all = append(model.all, model.pending...)
	model.pending = nil
	if len(model.all) > maxEntries {
		model.all = model.all[len(model.all)-maxEntries:]
	}
	model.rebuildVisible()
}

// rebuildVisible recomputes the filtered row set and re-anchors the
// cursor: pinned to the newest row in follow mode, otherwise kept on
// the same entry by sequence number so trims and filter changes do
// not silently move the selection.
func (model *Model) rebuildVisible() {
	var selectedSequence uint64
	if !model.follow && model.cursor < len(model.visible) {
		selectedSequence = model.all[model.visible[model.cursor]].Sequence
	}

	model.visible = model.visible[:0]
	for index := range model.all {
		if model.filter.MatchesEntry(model.all[index]) {
			model.visible = append(model.visible, index)
		}
	}

	if model.follow {
		model.setCursor(len(model.visible) - 1)
		return
	}
	for row, index := range model.visible {
		if model.all[index].Sequence == selectedSequence {
			model.setCursor(row)
			return
		}
	}
	// The selected entry was trimmed or filtered out; stay near the
	// old position.
	model.setCursor(model.cursor)
}

// moveCursor moves the selection by delta rows. Landing on the newest
// row re-engages follow mode; anywhere else disengages it.
func (model *Model) moveCursor(delta int) {
	model.setCursor(model.cursor + delta)
	model.follow = len(model.visible) == 0 ||
		model.cursor == len(model.visible)-1
}

// setCursor clamps the selection into the visible row range and keeps
// the viewport scrolled to it.
func (model *Model) setCursor(position int) {
	if len(model.visible) == 0 {
		model.cursor = 0
		model.scrollOffset = 0
		return
	}
	if position < 0 {
		position = 0
	}
	if position >= len(model.visible) {
		position = len(model.visible) - 1
	}
	model.cursor = position
	model.clampScroll()
}

// clampScroll adjusts scrollOffset so the cursor stays inside the
// table viewport.
func (model *Model) clampScroll() {
	height := model.tableHeight()
	if height < 1 {
		height = 1
	}
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+height {
		model.scrollOffset = model.cursor - height + 1
	}
	if model.scrollOffset < 0 {
		model.scrollOffset = 0
	}
}

// tableHeight is the number of entry rows the viewport can show:
// terminal height minus the title line, the column header, the bottom
// rule, and the help bar.
func (model Model) tableHeight() int {
	return model.height - 4
}

// pageStep is how far PageUp and PageDown jump: one viewport, at
// least one row before the terminal size is known.
func (model Model) pageStep() int {
	step := model.tableHeight()
	if step < 1 {
		return 1
	}
	return step
}

// selectedEntry returns the entry under the cursor, if any.
func (model Model) selectedEntry() (Entry, bool) {
	if model.cursor >= len(model.visible) {
		return Entry{}, false
	}
	return model.all[model.visible[model.cursor]], true
}
