// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/specterm/internal/fit"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/session"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/ui/styles"
)

// blocks are the partial column glyphs, one eighth per step.
var blocks = []rune(" ▁▂▃▄▅▆▇█")

// Panel renders the visible spectra as a column chart with overlaid
// markers, stored-fit peak positions and a cursor. Positions are held
// in calibrated units; the view range pans and zooms independently of
// the data.
type Panel struct {
	Lo, Hi float64
	Cursor float64

	width  int
	height int

	// set once a spectrum defined an initial range
	ranged bool
}

// SetSize updates the cell dimensions of the chart area.
func (p *Panel) SetSize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 3 {
		height = 3
	}
	p.width = width
	p.height = height
}

// Step is the calibrated width of one column.
func (p *Panel) Step() float64 {
	if p.width == 0 {
		return 1
	}
	return (p.Hi - p.Lo) / float64(p.width)
}

// Focus brings [lo, hi] into view with a small margin and centers the
// cursor when it fell outside.
func (p *Panel) Focus(lo, hi float64) {
	if hi < lo {
		lo, hi = hi, lo
	}
	margin := (hi - lo) * 0.15
	if margin == 0 {
		margin = 25
	}
	p.Lo = lo - margin
	p.Hi = hi + margin
	p.ranged = true
	p.clampCursor()
}

// Reset restores the full calibrated range of the visible spectra.
func (p *Panel) Reset(sess *session.Session) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, id := range sess.Spectra.VisibleIDs() {
		sp, ok := sess.Get(id)
		if !ok {
			continue
		}
		if e := sp.E(0); e < lo {
			lo = e
		}
		if e := sp.E(float64(sp.Hist.NBins())); e > hi {
			hi = e
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1024
	}
	p.Lo, p.Hi = lo, hi
	p.ranged = true
	p.Cursor = (lo + hi) / 2
}

// EnsureRange initializes the view from the first loaded spectrum.
func (p *Panel) EnsureRange(sess *session.Session) {
	if !p.ranged {
		p.Reset(sess)
	}
}

// MoveCursor shifts the cursor by n columns, panning when it leaves
// the view.
func (p *Panel) MoveCursor(n int) {
	p.Cursor += float64(n) * p.Step()
	if p.Cursor < p.Lo || p.Cursor > p.Hi {
		p.Pan(float64(n) / float64(max(p.width, 1)))
	}
	p.clampCursor()
}

// Pan shifts the view by a fraction of its range.
func (p *Panel) Pan(frac float64) {
	d := (p.Hi - p.Lo) * frac
	p.Lo += d
	p.Hi += d
	p.clampCursor()
}

// Zoom scales the view range around the cursor: factor < 1 zooms in.
func (p *Panel) Zoom(factor float64) {
	lo := p.Cursor - (p.Cursor-p.Lo)*factor
	hi := p.Cursor + (p.Hi-p.Cursor)*factor
	if hi-lo < 1e-6 {
		return
	}
	p.Lo, p.Hi = lo, hi
}

func (p *Panel) clampCursor() {
	if p.Cursor < p.Lo {
		p.Cursor = p.Lo
	}
	if p.Cursor > p.Hi {
		p.Cursor = p.Hi
	}
}

func (p *Panel) column(e float64) int {
	if p.Hi == p.Lo {
		return 0
	}
	return int((e - p.Lo) / (p.Hi - p.Lo) * float64(p.width))
}

// =============================================================================
// RENDERING
// =============================================================================

type cell struct {
	glyph rune
	style lipgloss.Style
}

// View renders the chart, the axis line and the tick labels.
func (p *Panel) View(sess *session.Session, theme *styles.Theme) string {
	chartH := p.height - 2
	grid := make([][]cell, chartH)
	for r := range grid {
		grid[r] = make([]cell, p.width)
		for c := range grid[r] {
			grid[r][c] = cell{glyph: ' '}
		}
	}

	// Column heights per spectrum, active drawn last so it wins cells.
	visible := sess.Spectra.VisibleIDs()
	activeID, hasActive := sess.Spectra.ActiveID()
	order := make([]ident.ID, 0, len(visible))
	for _, id := range visible {
		if !hasActive || id != activeID {
			order = append(order, id)
		}
	}
	if hasActive && sess.Spectra.IsVisible(activeID) {
		order = append(order, activeID)
	}

	maxY := 1.0
	heights := make(map[ident.ID][]float64, len(order))
	for _, id := range order {
		sp, ok := sess.Get(id)
		if !ok {
			continue
		}
		h := p.columnHeights(sp)
		heights[id] = h
		for _, v := range h {
			if v > maxY {
				maxY = v
			}
		}
	}

	for _, id := range order {
		h, ok := heights[id]
		if !ok {
			continue
		}
		style := theme.ColorForID(id.Major, hasActive && id == activeID)
		p.drawColumns(grid, h, maxY, style)
	}

	p.drawMarkers(grid, sess, theme)
	p.drawPeaks(grid, sess, theme)

	cursorCol := p.column(p.Cursor)
	var b strings.Builder
	for r := 0; r < chartH; r++ {
		for c := 0; c < p.width; c++ {
			cl := grid[r][c]
			st := cl.style
			if c == cursorCol {
				st = st.Reverse(true)
			}
			b.WriteString(st.Render(string(cl.glyph)))
		}
		b.WriteByte('\n')
	}

	b.WriteString(theme.Axis.Render(strings.Repeat("─", p.width)))
	b.WriteByte('\n')
	b.WriteString(p.axisLabels(theme))
	return b.String()
}

// columnHeights maps the view range onto the spectrum's channels and
// takes the maximum count per column.
func (p *Panel) columnHeights(sp *spectrum.Spectrum) []float64 {
	h := make([]float64, p.width)
	nbins := sp.Hist.NBins()
	for col := 0; col < p.width; col++ {
		eLo := p.Lo + (p.Hi-p.Lo)*float64(col)/float64(p.width)
		eHi := p.Lo + (p.Hi-p.Lo)*float64(col+1)/float64(p.width)
		chLo := int(math.Floor(sp.Ch(eLo)))
		chHi := int(math.Ceil(sp.Ch(eHi)))
		if chHi < chLo {
			chLo, chHi = chHi, chLo
		}
		for ch := chLo; ch <= chHi; ch++ {
			if ch < 0 || ch >= nbins {
				continue
			}
			if v := sp.Hist.At(ch); v > h[col] {
				h[col] = v
			}
		}
	}
	return h
}

func (p *Panel) drawColumns(grid [][]cell, heights []float64, maxY float64, style lipgloss.Style) {
	chartH := len(grid)
	for col, v := range heights {
		if v <= 0 {
			continue
		}
		eighths := int(math.Round(v / maxY * float64(chartH) * 8))
		if eighths == 0 {
			eighths = 1
		}
		full := eighths / 8
		part := eighths % 8
		for r := 0; r < full && r < chartH; r++ {
			grid[chartH-1-r][col] = cell{glyph: '█', style: style}
		}
		if part > 0 && full < chartH {
			grid[chartH-1-full][col] = cell{glyph: blocks[part], style: style}
		}
	}
}

// drawMarkers overlays the work fit's marker positions as vertical
// lines through the empty part of their column.
func (p *Panel) drawMarkers(grid [][]cell, sess *session.Session, theme *styles.Theme) {
	wf := sess.WorkFit()
	kinds := []struct {
		list  *fit.MarkerList
		style lipgloss.Style
	}{
		{wf.Bgs, theme.MarkerBg},
		{wf.Regions, theme.MarkerReg},
		{wf.Peaks, theme.MarkerPeak},
	}
	for _, k := range kinds {
		for _, pos := range k.list.Positions() {
			col := p.column(pos)
			if col < 0 || col >= p.width {
				continue
			}
			for r := range grid {
				if grid[r][col].glyph == ' ' {
					grid[r][col] = cell{glyph: '│', style: k.style}
				}
			}
		}
	}
}

// drawPeaks marks the fitted positions of visible stored fits.
func (p *Panel) drawPeaks(grid [][]cell, sess *session.Session, theme *styles.Theme) {
	if len(grid) == 0 {
		return
	}
	for _, sid := range sess.Spectra.VisibleIDs() {
		sp, ok := sess.Get(sid)
		if !ok {
			continue
		}
		for _, fid := range sp.Fits.VisibleIDs() {
			f, ok := sp.Fits.Get(fid)
			if !ok {
				continue
			}
			for _, peak := range f.PeakResults {
				col := p.column(peak.Pos())
				if col >= 0 && col < p.width {
					grid[0][col] = cell{glyph: '▾', style: theme.MarkerPeak}
				}
			}
		}
	}
}

func (p *Panel) axisLabels(theme *styles.Theme) string {
	left := fmt.Sprintf("%.1f", p.Lo)
	mid := fmt.Sprintf("%.1f", (p.Lo+p.Hi)/2)
	right := fmt.Sprintf("%.1f", p.Hi)

	gap := p.width - len(left) - len(mid) - len(right)
	if gap < 2 {
		return theme.AxisLabel.Render(left)
	}
	lpad := gap / 2
	rpad := gap - lpad
	return theme.AxisLabel.Render(left + strings.Repeat(" ", lpad) + mid + strings.Repeat(" ", rpad) + right)
}
