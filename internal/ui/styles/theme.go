// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/specterm/internal/color"
)

// Theme holds the styled components of the application. It detects the
// terminal's color capability and adjusts accordingly; the "mono" theme
// drops color entirely for dumb terminals and logs.
type Theme struct {
	Name         string
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Panel
	Axis       lipgloss.Style
	AxisLabel  lipgloss.Style
	Cursor     lipgloss.Style
	MarkerBg   lipgloss.Style
	MarkerReg  lipgloss.Style
	MarkerPeak lipgloss.Style

	// Status bar and message log
	StatusBar  lipgloss.Style
	PendingKey lipgloss.Style
	Message    lipgloss.Style
	Warning    lipgloss.Style
	Error      lipgloss.Style

	// Command line
	Prompt     lipgloss.Style
	EditPrompt lipgloss.Style
	InputText  lipgloss.Style
}

// NewTheme creates a theme by name: "dark", "light" or "mono".
// "auto" (or an empty name) picks dark or light from the terminal
// background.
func NewTheme(name string) *Theme {
	if name == "" || name == "auto" {
		if termenv.HasDarkBackground() {
			name = "dark"
		} else {
			name = "light"
		}
	}
	profile := termenv.ColorProfile()
	if name == "mono" {
		profile = termenv.Ascii
	}
	t := &Theme{
		Name:         name,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	if t.ColorProfile == termenv.Ascii {
		plain := lipgloss.NewStyle()
		t.Axis = plain
		t.AxisLabel = plain
		t.Cursor = plain.Reverse(true)
		t.MarkerBg = plain
		t.MarkerReg = plain
		t.MarkerPeak = plain
		t.StatusBar = plain.Reverse(true)
		t.PendingKey = plain
		t.Message = plain
		t.Warning = plain
		t.Error = plain.Bold(true)
		t.Prompt = plain.Bold(true)
		t.EditPrompt = plain.Bold(true)
		t.InputText = plain
		return
	}

	t.Axis = lipgloss.NewStyle().Foreground(Overlay)
	t.AxisLabel = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Cursor = lipgloss.NewStyle().Foreground(TextPrimary).Reverse(true)

	t.MarkerBg = lipgloss.NewStyle().Foreground(Slate)
	t.MarkerReg = lipgloss.NewStyle().Foreground(Emerald)
	t.MarkerPeak = lipgloss.NewStyle().Foreground(Amber).Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.PendingKey = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.Message = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Warning = lipgloss.NewStyle().Foreground(Amber)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.Prompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.EditPrompt = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.InputText = lipgloss.NewStyle().Foreground(TextPrimary)
}

// ColorForID returns the trace style for a spectrum id. Active spectra
// draw at full value, inactive ones dimmed.
func (t *Theme) ColorForID(id int, active bool) lipgloss.Style {
	if t.ColorProfile == termenv.Ascii {
		if active {
			return lipgloss.NewStyle().Bold(true)
		}
		return lipgloss.NewStyle()
	}
	c := color.ForID(id, 1, 1)
	if !active {
		c = color.Dim(c)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color.Hex(c)))
}
