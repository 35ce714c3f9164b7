// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the chrome bindings that work in every mode: quitting,
// entering command mode and toggling the help overlay. Everything
// analysis-related lives in the hotkey table instead.
type KeyMap struct {
	Quit        key.Binding
	CommandMode key.Binding
	Help        key.Binding
	Cancel      key.Binding
}

// DefaultKeyMap returns the default chrome bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c/C-q", "quit"),
		),
		CommandMode: key.NewBinding(
			key.WithKeys(":", "/"),
			key.WithHelp(": or /", "command line"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel"),
		),
	}
}

// ShortHelp returns the bindings for the status bar hint.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.CommandMode, k.Help, k.Quit}
}

// FullHelp returns the binding groups for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.CommandMode, k.Cancel},
		{k.Help, k.Quit},
	}
}
