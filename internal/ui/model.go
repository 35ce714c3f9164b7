// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the interactive terminal display: a spectrum panel,
// a status bar, the message log and a command line, driven by hotkeys
// and the shared command registry.
package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/specterm/internal/commands"
	"github.com/jeranaias/specterm/internal/ui/components"
	"github.com/jeranaias/specterm/internal/ui/styles"
)

// =============================================================================
// MODES
// =============================================================================

// Mode is the input mode of the display.
type Mode int

const (
	// ModeHotkey routes single keys through the hotkey table.
	ModeHotkey Mode = iota
	// ModeCommand focuses the command line.
	ModeCommand
	// ModeEdit shows a one-line prompt opened by a hotkey.
	ModeEdit
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the application.
type Model struct {
	ctx   *commands.Context
	theme *styles.Theme
	log   *MessageLog

	width  int
	height int

	panel Panel

	// Message log display.
	viewport viewport.Model
	logLen   int

	// Command line / edit prompt.
	input      textinput.Model
	mode       Mode
	editPrompt string
	editDone   func(m *Model, text string)

	// Command history of command mode.
	history []string
	histPos int

	// Pending first key of a two-key sequence, "" when none.
	pending  string
	prefixes map[string]bool

	keys     KeyMap
	status   string
	showHelp bool
	quitting bool
}

// New builds the model around a prepared command context. The context's
// display hooks (Highlight, Markdown, Quit) are wired here.
func New(ctx *commands.Context, theme *styles.Theme, log *MessageLog) *Model {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 0

	m := &Model{
		ctx:      ctx,
		theme:    theme,
		log:      log,
		input:    input,
		prefixes: prefixKeys(),
		keys:     DefaultKeyMap(),
		viewport: viewport.New(0, 0),
	}

	ctx.Highlight = components.Highlight
	ctx.Quit = func() { m.quitting = true }
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Run starts the program on the alternate screen and blocks until it
// exits. The session's window and the message log attach to the running
// program so redraw requests from any goroutine land in Update.
func Run(ctx *commands.Context, theme *styles.Theme, log *MessageLog, win *Window, mouse bool) error {
	m := New(ctx, theme, log)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)
	win.Attach(func(msg any) { p.Send(msg) })
	log.Attach(func(msg any) { p.Send(msg) })

	ctx.Markdown = func(text string) string {
		return components.RenderMarkdown(components.NewMarkdownRenderer(m.width), text)
	}

	_, err := p.Run()
	return err
}

// openEdit switches to edit mode with the given prompt. done runs on
// Enter with the entered text.
func (m *Model) openEdit(prompt string, done func(m *Model, text string)) {
	m.mode = ModeEdit
	m.editPrompt = prompt
	m.editDone = done
	m.input.SetValue("")
	m.input.Focus()
}

// openCommand switches to command mode.
func (m *Model) openCommand() {
	m.mode = ModeCommand
	m.input.SetValue("")
	m.input.Focus()
	m.histPos = len(m.history)
}

// closeInput returns to hotkey mode.
func (m *Model) closeInput() {
	m.mode = ModeHotkey
	m.editPrompt = ""
	m.editDone = nil
	m.input.Blur()
	m.input.SetValue("")
}
