// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestMonoThemeDropsColor(t *testing.T) {
	th := NewTheme("mono")
	assert.Equal(t, termenv.Ascii, th.ColorProfile)
	assert.False(t, th.HasTrueColor)
}

func TestColorForIDStableAcrossCalls(t *testing.T) {
	th := NewTheme("dark")
	a := th.ColorForID(3, true)
	b := th.ColorForID(3, true)
	assert.Equal(t, a.GetForeground(), b.GetForeground())

	// Neighboring ids get distinct hues.
	c := th.ColorForID(4, true)
	assert.NotEqual(t, a.GetForeground(), c.GetForeground())
}
