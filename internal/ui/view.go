// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/jeranaias/specterm/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.showHelp {
		return m.helpView()
	}

	var b strings.Builder
	m.panel.EnsureRange(m.ctx.Session)
	b.WriteString(m.panel.View(m.ctx.Session, m.theme))
	b.WriteByte('\n')
	b.WriteString(m.statusView())
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.inputView())
	return b.String()
}

// statusView renders the one-line status bar: active spectrum, cursor
// position, pending key and transient status text.
func (m *Model) statusView() string {
	var parts []string
	if sp, ok := m.ctx.Session.ActiveSpectrum(); ok {
		id, _ := m.ctx.Session.Spectra.ActiveID()
		parts = append(parts, fmt.Sprintf("[%d] %s", id.Major, sp.Name))
	} else {
		parts = append(parts, "no spectrum")
	}
	parts = append(parts, fmt.Sprintf("x=%.1f", m.panel.Cursor))
	if fid, ok := m.ctx.Session.ActiveFitID(); ok {
		parts = append(parts, "fit "+fid.String())
	}
	if m.pending != "" {
		parts = append(parts, m.theme.PendingKey.Render(m.pending+" ..."))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}

	text := strings.Join(parts, "  │  ")
	return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(text, m.width-2))
}

// inputView renders the command line or edit prompt, or the hint line.
func (m *Model) inputView() string {
	switch m.mode {
	case ModeCommand:
		return m.theme.Prompt.Render(":") + m.input.View()
	case ModeEdit:
		return m.theme.EditPrompt.Render(m.editPrompt) + m.input.View()
	default:
		return m.theme.PendingKey.Render(": command   ? help   C-c quit")
	}
}

// helpView renders the hotkey table as a full-screen overlay.
func (m *Model) helpView() string {
	var b strings.Builder
	b.WriteString(m.theme.Prompt.Render("Hotkeys"))
	b.WriteString("\n\n")
	for _, hk := range hotkeys {
		seq := strings.Join(hk.Seq, " ")
		fmt.Fprintf(&b, "  %-10s %s\n", seq, hk.Help)
	}
	b.WriteString("\n")
	for _, group := range m.keys.FullHelp() {
		for _, bind := range group {
			h := bind.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n")
	b.WriteString(m.theme.PendingKey.Render("press ? to close"))
	return b.String()
}
