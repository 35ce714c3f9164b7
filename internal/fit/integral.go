// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fit

import (
	"fmt"
	"math"

	"github.com/jeranaias/specterm/internal/calibration"
	"github.com/jeranaias/specterm/internal/util"
)

// Integral holds the statistics of a region integration: the summed
// counts with a Poisson uncertainty, the count-weighted mean position
// and the width derived from the variance. When a background was
// subtracted, Background holds its total over the region.
type Integral struct {
	From, To   float64
	Sum        float64
	SumErr     float64
	Mean       float64
	Width      float64
	Background float64
}

// Integrate sums the histogram over a calibrated region. bgCoeffs, when
// non-nil, is a background polynomial in channel space subtracted bin
// by bin.
func Integrate(h Hist, cal calibration.Calibration, region [2]float64, bgCoeffs []float64) Integral {
	lo, hi := chBounds(h, cal, region)
	r := Integral{From: region[0], To: region[1]}
	if hi < lo {
		return r
	}

	gross, net, bg, mean := 0.0, 0.0, 0.0, 0.0
	for ch := lo; ch <= hi; ch++ {
		counts := h.At(ch)
		level := 0.0
		if bgCoeffs != nil {
			level = polyEval(bgCoeffs, float64(ch))
		}
		gross += counts
		bg += level
		net += counts - level
		mean += float64(ch) * (counts - level)
	}

	r.Sum = net
	r.SumErr = math.Sqrt(gross)
	r.Background = bg
	if net > 0 {
		mean /= net
		variance := 0.0
		for ch := lo; ch <= hi; ch++ {
			counts := h.At(ch)
			level := 0.0
			if bgCoeffs != nil {
				level = polyEval(bgCoeffs, float64(ch))
			}
			d := float64(ch) - mean
			variance += d * d * (counts - level)
		}
		variance /= net
		if variance < 0 {
			variance = 0
		}
		slope := math.Abs(cal.Apply(mean+0.5) - cal.Apply(mean-0.5))
		r.Mean = cal.Apply(mean)
		r.Width = fwhmFactor * math.Sqrt(variance) * slope
	} else {
		r.Mean = (region[0] + region[1]) / 2
	}
	return r
}

// String renders the integral as a two-line summary.
func (r Integral) String() string {
	s := fmt.Sprintf("integral from %s to %s: sum %s(%s)",
		util.FormatFloat(r.From), util.FormatFloat(r.To),
		util.FormatFloat(r.Sum), util.FormatFloat(r.SumErr))
	if r.Background != 0 {
		s += fmt.Sprintf(", background %s", util.FormatFloat(r.Background))
	}
	return s + fmt.Sprintf("\nmean %s, fwhm %s", util.FormatFloat(r.Mean), util.FormatFloat(r.Width))
}
