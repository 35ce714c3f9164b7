// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/specterm/internal/commands"
	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/session"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/ui/styles"
)

type nopMessenger struct{}

func (nopMessenger) Msg(string, ...any)   {}
func (nopMessenger) Warn(string, ...any)  {}
func (nopMessenger) Error(string, ...any) {}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New(options.NewRegistry(), nopMessenger{})
	counts := make([]float64, 128)
	for i := range counts {
		counts[i] = float64(i % 16)
	}
	sess.Add(spectrum.New("test", spectrum.NewHistogram(counts)))
	return sess
}

func TestPanelResetCoversSpectrum(t *testing.T) {
	sess := testSession(t)
	var p Panel
	p.SetSize(80, 20)
	p.Reset(sess)
	assert.Equal(t, 0.0, p.Lo)
	assert.Equal(t, 128.0, p.Hi)
	assert.Equal(t, 64.0, p.Cursor)
}

func TestPanelFocusAddsMargin(t *testing.T) {
	var p Panel
	p.SetSize(80, 20)
	p.Focus(100, 200)
	assert.Less(t, p.Lo, 100.0)
	assert.Greater(t, p.Hi, 200.0)
	// Cursor is pulled into the new range.
	assert.GreaterOrEqual(t, p.Cursor, p.Lo)
	assert.LessOrEqual(t, p.Cursor, p.Hi)
}

func TestPanelZoomAroundCursor(t *testing.T) {
	var p Panel
	p.SetSize(80, 20)
	p.Lo, p.Hi, p.Cursor = 0, 100, 50
	p.Zoom(0.5)
	assert.Equal(t, 25.0, p.Lo)
	assert.Equal(t, 75.0, p.Hi)
	p.Zoom(2)
	assert.Equal(t, 0.0, p.Lo)
	assert.Equal(t, 100.0, p.Hi)
}

func TestPanelMoveCursorPansAtEdge(t *testing.T) {
	var p Panel
	p.SetSize(100, 20)
	p.Lo, p.Hi, p.Cursor = 0, 100, 100
	p.MoveCursor(1)
	assert.Greater(t, p.Hi, 100.0)
	assert.LessOrEqual(t, p.Cursor, p.Hi)
}

func TestPanelViewDimensions(t *testing.T) {
	sess := testSession(t)
	var p Panel
	p.SetSize(40, 12)
	p.Reset(sess)
	out := p.View(sess, styles.NewTheme("mono"))
	lines := 0
	for _, r := range out {
		if r == '\n' {
			lines++
		}
	}
	// chart rows + axis + label row
	assert.Equal(t, 12, lines+1)
}

func TestHotkeyTable(t *testing.T) {
	require.NotNil(t, findHotkey([]string{"b"}))
	require.NotNil(t, findHotkey([]string{"-", "b"}))
	require.NotNil(t, findHotkey([]string{"N", "n"}))
	assert.Nil(t, findHotkey([]string{"-", "x"}))

	pre := prefixKeys()
	for _, k := range []string{"-", "+", "f", "N"} {
		assert.True(t, pre[k], "prefix %q", k)
	}
	assert.False(t, pre["b"])
}

func TestDecompHotkeyUpdatesOption(t *testing.T) {
	opts := options.NewRegistry()
	sess := session.New(opts, nopMessenger{})
	ctx := &commands.Context{Session: sess, Options: opts, Msg: nopMessenger{}}
	m := New(ctx, styles.NewTheme("mono"), NewMessageLog())

	hk := findHotkey([]string{"D"})
	require.NotNil(t, hk)
	hk.Do(m)
	on, err := opts.Bool("fit.display.decomp")
	require.NoError(t, err)
	assert.True(t, on)

	hk = findHotkey([]string{"-", "D"})
	require.NotNil(t, hk)
	hk.Do(m)
	on, err = opts.Bool("fit.display.decomp")
	require.NoError(t, err)
	assert.False(t, on)
}
