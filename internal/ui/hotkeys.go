// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/jeranaias/specterm/internal/ident"
)

// Hotkey binds a key sequence (one or two keys) to an action. The
// table is an ordered slice, so help output and prefix detection are
// deterministic; there is no hidden registration mechanism.
type Hotkey struct {
	Seq  []string
	Help string
	Do   func(m *Model)
}

// hotkeys is the complete binding table of hotkey mode. Single
// characters that start a two-key sequence ("-", "+", "f", "N") become
// pending prefixes; an unmatched second key cancels with a status
// message.
var hotkeys = []Hotkey{
	// Work fit markers at the cursor.
	{Seq: []string{"b"}, Help: "set background marker", Do: func(m *Model) {
		m.ctx.Session.SetMarker("background", m.panel.Cursor)
	}},
	{Seq: []string{"-", "b"}, Help: "remove background marker", Do: func(m *Model) {
		m.ctx.Session.RemoveMarker("background", m.panel.Cursor)
	}},
	{Seq: []string{"r"}, Help: "set region marker", Do: func(m *Model) {
		m.ctx.Session.SetMarker("region", m.panel.Cursor)
	}},
	{Seq: []string{"-", "r"}, Help: "remove region marker", Do: func(m *Model) {
		m.ctx.Session.RemoveMarker("region", m.panel.Cursor)
	}},
	{Seq: []string{"p"}, Help: "set peak marker", Do: func(m *Model) {
		m.ctx.Session.SetMarker("peak", m.panel.Cursor)
	}},
	{Seq: []string{"-", "p"}, Help: "remove peak marker", Do: func(m *Model) {
		m.ctx.Session.RemoveMarker("peak", m.panel.Cursor)
	}},

	// Fit execution and the work fit lifecycle.
	{Seq: []string{"B"}, Help: "fit background", Do: func(m *Model) {
		m.ctx.Session.ExecuteFit(false)
	}},
	{Seq: []string{"F"}, Help: "fit peaks", Do: func(m *Model) {
		m.ctx.Session.ExecuteFit(true)
	}},
	{Seq: []string{"-", "B"}, Help: "clear fitted background", Do: func(m *Model) {
		m.ctx.Session.ClearFit(true)
	}},
	{Seq: []string{"Q"}, Help: "quick fit at cursor", Do: func(m *Model) {
		m.ctx.Session.QuickFit(m.panel.Cursor)
	}},
	{Seq: []string{"+", "F"}, Help: "store work fit", Do: func(m *Model) {
		m.ctx.Session.StoreFit()
	}},
	{Seq: []string{"-", "F"}, Help: "clear work fit", Do: func(m *Model) {
		m.ctx.Session.ClearFit(false)
	}},
	{Seq: []string{"D"}, Help: "show peak decomposition", Do: func(m *Model) {
		m.setOption("fit.display.decomp", "true")
	}},
	{Seq: []string{"-", "D"}, Help: "hide peak decomposition", Do: func(m *Model) {
		m.setOption("fit.display.decomp", "false")
	}},

	// Stored fits.
	{Seq: []string{"f", "s"}, Help: "show fits by id", Do: func(m *Model) {
		m.openEdit("Show Fit: ", func(m *Model, text string) { m.editShowFits(text) })
	}},
	{Seq: []string{"f", "a"}, Help: "activate fit by id", Do: func(m *Model) {
		m.openEdit("Activate Fit: ", func(m *Model, text string) { m.editActivateFit(text) })
	}},
	{Seq: []string{"f", "p"}, Help: "show previous fit", Do: func(m *Model) {
		if sp, ok := m.ctx.Session.ActiveSpectrum(); ok {
			sp.Fits.ShowPrev()
		}
	}},
	{Seq: []string{"f", "n"}, Help: "show next fit", Do: func(m *Model) {
		if sp, ok := m.ctx.Session.ActiveSpectrum(); ok {
			sp.Fits.ShowNext()
		}
	}},
	{Seq: []string{"I"}, Help: "integrate between region markers", Do: func(m *Model) {
		m.ctx.Session.ExecuteIntegral()
	}},

	// Spectrum selection.
	{Seq: []string{"N", "p"}, Help: "show previous spectrum", Do: func(m *Model) {
		m.ctx.Session.ShowPrev()
	}},
	{Seq: []string{"N", "n"}, Help: "show next spectrum", Do: func(m *Model) {
		m.ctx.Session.ShowNext()
	}},
	{Seq: []string{"="}, Help: "refresh all spectra", Do: func(m *Model) {
		m.ctx.Session.RefreshAll()
	}},
	{Seq: []string{"t"}, Help: "refresh visible spectra", Do: func(m *Model) {
		m.ctx.Session.RefreshVisible()
	}},
	{Seq: []string{"n"}, Help: "show spectrum by id", Do: func(m *Model) {
		m.openEdit("Show spectrum: ", func(m *Model, text string) { m.editShowSpectra(text) })
	}},
	{Seq: []string{"a"}, Help: "activate spectrum by id", Do: func(m *Model) {
		m.openEdit("Activate spectrum: ", func(m *Model, text string) { m.editActivateSpectrum(text) })
	}},

	// View control.
	{Seq: []string{"left"}, Help: "move cursor left", Do: func(m *Model) { m.panel.MoveCursor(-1) }},
	{Seq: []string{"right"}, Help: "move cursor right", Do: func(m *Model) { m.panel.MoveCursor(1) }},
	{Seq: []string{"<"}, Help: "pan left", Do: func(m *Model) { m.panel.Pan(-0.2) }},
	{Seq: []string{">"}, Help: "pan right", Do: func(m *Model) { m.panel.Pan(0.2) }},
	{Seq: []string{"z"}, Help: "zoom in", Do: func(m *Model) { m.panel.Zoom(0.5) }},
	{Seq: []string{"Z"}, Help: "zoom out", Do: func(m *Model) { m.panel.Zoom(2) }},
	{Seq: []string{"0"}, Help: "reset view", Do: func(m *Model) { m.panel.Reset(m.ctx.Session) }},
}

// prefixKeys are the first keys of all two-key sequences.
func prefixKeys() map[string]bool {
	out := make(map[string]bool)
	for _, hk := range hotkeys {
		if len(hk.Seq) == 2 {
			out[hk.Seq[0]] = true
		}
	}
	return out
}

// findHotkey matches a completed sequence against the table.
func findHotkey(seq []string) *Hotkey {
	for i := range hotkeys {
		hk := &hotkeys[i]
		if len(hk.Seq) != len(seq) {
			continue
		}
		match := true
		for j := range seq {
			if hk.Seq[j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return hk
		}
	}
	return nil
}

// =============================================================================
// EDIT-MODE HANDLERS
// =============================================================================

// setOption writes through the options registry, so the change callback
// fires and "config show" keeps reflecting what the hotkey did.
func (m *Model) setOption(name, raw string) {
	if err := m.ctx.Options.Set(name, raw); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) editShowFits(text string) {
	sp, ok := m.ctx.Session.ActiveSpectrum()
	if !ok {
		m.status = "No active spectrum"
		return
	}
	ids, err := ident.ParseIDs(text, sp.Fits)
	if err != nil {
		m.status = "Invalid fit identifier: " + err.Error()
		return
	}
	sp.Fits.ShowOnly(ids)
}

func (m *Model) editActivateFit(text string) {
	if strings.EqualFold(strings.TrimSpace(text), "none") {
		m.ctx.Session.ActivateFit(nil)
		return
	}
	id, err := ident.Parse(strings.TrimSpace(text))
	if err != nil {
		m.status = "Invalid fit identifier: " + err.Error()
		return
	}
	m.ctx.Session.ActivateFit(&id)
}

func (m *Model) editShowSpectra(text string) {
	ids, err := ident.ParseIDs(text, m.ctx.Session.Spectra)
	if err != nil {
		m.status = "Invalid spectrum identifier: " + err.Error()
		return
	}
	m.ctx.Session.Spectra.ShowOnly(ids)
}

func (m *Model) editActivateSpectrum(text string) {
	id, err := ident.Parse(strings.TrimSpace(text))
	if err != nil {
		m.status = "Invalid spectrum identifier: " + err.Error()
		return
	}
	if err := m.ctx.Session.ActivateObject(id); err != nil {
		m.status = "there is no spectrum with id: " + strings.TrimSpace(text)
	}
}
