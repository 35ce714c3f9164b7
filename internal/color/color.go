// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package color assigns display colors to numbered objects. Each spectrum
// id maps to a fixed hue, so a spectrum keeps its color across show/hide
// cycles and reloads.
package color

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// goldenAngle spreads consecutive ids maximally around the hue circle.
const goldenAngle = 137.50776405003785

// ForID returns the display color for an object id. Saturation and value
// are in [0, 1]; the active spectrum is usually drawn with value 1 and
// inactive ones dimmed.
func ForID(id int, saturation, value float64) colorful.Color {
	hue := math.Mod(float64(id)*goldenAngle, 360)
	return colorful.Hsv(hue, saturation, value)
}

// Dim returns the same hue with reduced value, for inactive spectra.
func Dim(c colorful.Color) colorful.Color {
	h, s, v := c.Hsv()
	return colorful.Hsv(h, s, v*0.55)
}

// Hex renders the color as "#rrggbb" for terminal styling.
func Hex(c colorful.Color) string {
	return c.Hex()
}
