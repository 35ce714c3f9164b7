// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// statusBarHeight + axis rows reserved below the chart.
const chromeRows = 4

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case redrawMsg:
		m.panel.EnsureRange(m.ctx.Session)
		return m, nil

	case focusMsg:
		m.panel.Focus(msg.lo, msg.hi)
		return m, nil

	case logMsg:
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) layout() {
	logHeight := m.height / 4
	if logHeight < 3 {
		logHeight = 3
	}
	panelHeight := m.height - logHeight - chromeRows
	m.panel.SetSize(m.width, panelHeight)
	m.viewport.Width = m.width
	m.viewport.Height = logHeight
	m.input.Width = m.width - 2
	m.refreshLog()
}

func (m *Model) refreshLog() {
	lines := m.log.Lines()
	m.logLen = len(lines)
	var b strings.Builder
	for _, ln := range lines {
		switch ln.Level {
		case LevelWarn:
			b.WriteString(m.theme.Warning.Render(ln.Text))
		case LevelError:
			b.WriteString(m.theme.Error.Render(ln.Text))
		default:
			b.WriteString(m.theme.Message.Render(ln.Text))
		}
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeCommand:
		return m.handleCommandKey(msg)
	case ModeEdit:
		return m.handleEditKey(msg)
	default:
		return m.handleHotkey(msg)
	}
}

func (m *Model) handleHotkey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Help) {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if key.Matches(msg, m.keys.CommandMode) && m.pending == "" {
		m.openCommand()
		return m, nil
	}
	if key.Matches(msg, m.keys.Cancel) {
		m.pending = ""
		m.status = ""
		return m, nil
	}

	k := msg.String()
	m.panel.EnsureRange(m.ctx.Session)

	if m.pending != "" {
		seq := []string{m.pending, k}
		m.pending = ""
		if hk := findHotkey(seq); hk != nil {
			m.status = ""
			hk.Do(m)
			return m.afterAction()
		}
		m.status = "unbound: " + strings.Join(seq, " ")
		return m, nil
	}

	if m.prefixes[k] {
		// A prefix may also be bound alone ("-" is not); single-key
		// bindings win only when no two-key sequence starts with them.
		m.pending = k
		m.status = k + " ..."
		return m, nil
	}

	if hk := findHotkey([]string{k}); hk != nil {
		m.status = ""
		hk.Do(m)
		return m.afterAction()
	}
	return m, nil
}

func (m *Model) afterAction() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}
	m.refreshLog()
	return m, nil
}

func (m *Model) handleCommandKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil
	case "enter":
		line := m.input.Value()
		m.closeInput()
		m.dispatch(line)
		return m.afterAction()
	case "up":
		if m.histPos > 0 {
			m.histPos--
			m.input.SetValue(m.history[m.histPos])
			m.input.CursorEnd()
		}
		return m, nil
	case "down":
		if m.histPos < len(m.history)-1 {
			m.histPos++
			m.input.SetValue(m.history[m.histPos])
			m.input.CursorEnd()
		} else {
			m.histPos = len(m.history)
			m.input.SetValue("")
		}
		return m, nil
	case "tab":
		m.completeInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil
	case "enter":
		text := m.input.Value()
		done := m.editDone
		m.closeInput()
		if done != nil {
			done(m, text)
		}
		return m.afterAction()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch runs a command line through the shared registry. Errors go
// to the message log like any other user-facing text.
func (m *Model) dispatch(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(m.history) == 0 || m.history[len(m.history)-1] != line {
		m.history = append(m.history, line)
	}
	if err := m.ctx.Registry.Dispatch(m.ctx, line); err != nil {
		m.log.Error("%v", err)
	}
	m.panel.EnsureRange(m.ctx.Session)
}

// completeInput applies tab completion to the command line: a single
// proposal is inserted, several go to the status bar.
func (m *Model) completeInput() {
	line := m.input.Value()
	props := m.ctx.Registry.Complete(m.ctx, line)
	if len(props) == 0 {
		return
	}
	if len(props) == 1 {
		m.input.SetValue(replaceLastWord(line, props[0].Text) + " ")
		m.input.CursorEnd()
		return
	}
	texts := make([]string, len(props))
	for i, p := range props {
		texts[i] = p.Text
	}
	m.status = strings.Join(texts, "  ")
}

// replaceLastWord swaps the word being completed for the proposal.
func replaceLastWord(line, word string) string {
	if line == "" || strings.HasSuffix(line, " ") {
		return line + word
	}
	idx := strings.LastIndex(line, " ")
	if idx < 0 {
		return word
	}
	return line[:idx+1] + word
}
