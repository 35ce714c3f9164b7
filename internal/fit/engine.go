// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fit

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jeranaias/specterm/internal/calibration"
)

// ===== ENGINE INTERFACE =====

// Hist is the view of a histogram the engine needs. Spectrum histograms
// satisfy it.
type Hist interface {
	NBins() int
	At(i int) float64
}

// Peak holds the fitted parameters of one peak, by parameter name, with
// matching uncertainties where the engine provides them. Positions and
// widths are in calibrated units, volumes in counts.
type Peak struct {
	Params map[string]float64
	Errors map[string]float64
}

// Pos returns the fitted peak position.
func (p Peak) Pos() float64 {
	return p.Params["pos"]
}

// ErrBgDisabled is returned when a background operation runs with a
// background degree of -1.
var ErrBgDisabled = errors.New("background degree of -1")

// Engine fits peaks and backgrounds. Region, peak and background
// positions are given in calibrated units.
type Engine interface {
	Name() string

	// FitBackground fits a polynomial of the given degree to the
	// histogram over the background ranges and returns its channel
	// space coefficients with a reduced chi square.
	FitBackground(h Hist, cal calibration.Calibration, ranges [][2]float64, degree int) (coeffs []float64, chi float64, err error)

	// FitPeaks fits the peaks near the given marker positions inside
	// the region. bgCoeffs, when non-nil, is a previously fitted
	// background to subtract; otherwise the engine estimates one from
	// the region edges.
	FitPeaks(h Hist, cal calibration.Calibration, region [2]float64, peaks []float64, bgCoeffs []float64, fitter *Fitter) ([]Peak, float64, error)
}

// DefaultEngine is the engine used by new fits.
var DefaultEngine Engine = MomentsEngine{}

// ===== MOMENTS ENGINE =====

const fwhmFactor = 2.3548200450309493 // 2*sqrt(2*ln 2)

// MomentsEngine characterizes each peak by the statistical moments of
// the background-subtracted counts in its slice of the fit region: the
// volume is the zeroth moment, the position the first, and the width
// follows from the variance. Adjacent peaks split the region at the
// midpoints between their markers.
type MomentsEngine struct{}

// Name returns the engine name.
func (MomentsEngine) Name() string { return "moments" }

// FitBackground implements Engine using a least squares polynomial over
// the channels covered by the background ranges.
func (MomentsEngine) FitBackground(h Hist, cal calibration.Calibration, ranges [][2]float64, degree int) ([]float64, float64, error) {
	if degree < 0 {
		return nil, 0, ErrBgDisabled
	}
	if len(ranges) == 0 {
		return nil, 0, errors.New("no background markers set")
	}

	seen := make(map[int]bool)
	var xs, ys []float64
	for _, r := range ranges {
		lo, hi := chBounds(h, cal, r)
		for ch := lo; ch <= hi; ch++ {
			if seen[ch] {
				continue
			}
			seen[ch] = true
			xs = append(xs, float64(ch))
			ys = append(ys, h.At(ch))
		}
	}
	if len(xs) < degree+1 {
		return nil, 0, fmt.Errorf("not enough background data for degree %d", degree)
	}

	coeffs, err := calibration.Polyfit(xs, ys, degree)
	if err != nil {
		return nil, 0, fmt.Errorf("background fit failed: %w", err)
	}

	chi := 0.0
	for i, x := range xs {
		d := ys[i] - polyEval(coeffs, x)
		chi += d * d / math.Max(ys[i], 1)
	}
	dof := len(xs) - degree - 1
	if dof < 1 {
		dof = 1
	}
	return coeffs, chi / float64(dof), nil
}

// FitPeaks implements Engine.
func (MomentsEngine) FitPeaks(h Hist, cal calibration.Calibration, region [2]float64, peaks []float64, bgCoeffs []float64, fitter *Fitter) ([]Peak, float64, error) {
	lo, hi := chBounds(h, cal, region)
	if hi < lo {
		return nil, 0, errors.New("fit region is empty")
	}
	if len(peaks) == 0 {
		return nil, 0, errors.New("no peak markers set")
	}

	// Peak markers in channel space, restricted to the region.
	var chPeaks []float64
	for _, p := range peaks {
		ch := cal.Invert(p)
		if ch >= float64(lo) && ch <= float64(hi) {
			chPeaks = append(chPeaks, ch)
		}
	}
	if len(chPeaks) == 0 {
		return nil, 0, errors.New("no peak markers inside the fit region")
	}
	sort.Float64s(chPeaks)

	bgAt := backgroundFunc(h, bgCoeffs, lo, hi, fitter.BgDegree)

	// Split the region at midpoints between adjacent markers.
	bounds := make([]int, 0, len(chPeaks)+1)
	bounds = append(bounds, lo)
	for i := 0; i+1 < len(chPeaks); i++ {
		bounds = append(bounds, int(math.Round((chPeaks[i]+chPeaks[i+1])/2)))
	}
	bounds = append(bounds, hi+1)

	result := make([]Peak, 0, len(chPeaks))
	for i, chPeak := range chPeaks {
		sub := slice{lo: bounds[i], hi: bounds[i+1] - 1}
		result = append(result, momentsPeak(h, cal, sub, chPeak, bgAt, fitter))
	}

	return result, peaksChi(h, cal, lo, hi, result, bgAt, fitter), nil
}

// slice is an inclusive channel range.
type slice struct{ lo, hi int }

// momentsPeak computes one peak from the moments of its slice.
func momentsPeak(h Hist, cal calibration.Calibration, s slice, chPeak float64, bgAt func(int) float64, fitter *Fitter) Peak {
	vol, mean, variance, gross := 0.0, 0.0, 0.0, 0.0
	for ch := s.lo; ch <= s.hi; ch++ {
		net := h.At(ch) - bgAt(ch)
		vol += net
		mean += float64(ch) * net
		gross += h.At(ch)
	}
	if vol > 0 {
		mean /= vol
		for ch := s.lo; ch <= s.hi; ch++ {
			net := h.At(ch) - bgAt(ch)
			d := float64(ch) - mean
			variance += d * d * net
		}
		variance /= vol
		if variance < 0 {
			variance = 0
		}
	} else {
		vol = 0
		mean = chPeak
		variance = 0
	}
	fwhm := fwhmFactor * math.Sqrt(variance)

	// Local calibration slope for converting channel widths and errors.
	slope := cal.Apply(mean+0.5) - cal.Apply(mean-0.5)

	volErr := math.Sqrt(gross)
	posErr := 0.0
	if vol > 0 && fwhm > 0 {
		posErr = fwhm / (fwhmFactor * math.Sqrt(vol))
	}

	p := Peak{
		Params: map[string]float64{
			"pos":   cal.Apply(mean),
			"width": fwhm * math.Abs(slope),
			"vol":   vol,
		},
		Errors: map[string]float64{
			"pos":   posErr * math.Abs(slope),
			"width": fwhm * math.Abs(slope) / math.Sqrt(2*math.Max(vol, 1)),
			"vol":   volErr,
		},
	}
	if fitter.Model == "step" {
		p.Params["step"] = stepHeight(h, s)
		p.Errors["step"] = 0
	}
	applyStatuses(&p, cal, chPeak, fitter)
	return p
}

// applyStatuses overrides engine estimates with held or fixed values.
// Holding the position pins it to the marker; other parameters keep the
// engine estimate under hold, since that estimate is their initial
// value.
func applyStatuses(p *Peak, cal calibration.Calibration, chPeak float64, fitter *Fitter) {
	for _, name := range ModelParams(fitter.Model) {
		switch st := fitter.ParamStatus(name); st.Mode {
		case ParamFixed:
			p.Params[name] = st.Value
			p.Errors[name] = 0
		case ParamHold:
			if name == "pos" {
				p.Params[name] = cal.Apply(chPeak)
				p.Errors[name] = 0
			}
		}
	}
}

// stepHeight estimates the step parameter as the drop of the count
// level across the peak, clamped to zero.
func stepHeight(h Hist, s slice) float64 {
	edge := (s.hi - s.lo + 1) / 10
	if edge < 1 {
		edge = 1
	}
	left, right := 0.0, 0.0
	for i := 0; i < edge; i++ {
		left += h.At(s.lo + i)
		right += h.At(s.hi - i)
	}
	step := (left - right) / float64(edge)
	if step < 0 {
		return 0
	}
	return step
}

// backgroundFunc returns the background level per channel: an already
// fitted polynomial when available, zero when background fitting is
// disabled, and a line through the region edge levels otherwise.
func backgroundFunc(h Hist, coeffs []float64, lo, hi, degree int) func(int) float64 {
	if len(coeffs) > 0 {
		return func(ch int) float64 { return polyEval(coeffs, float64(ch)) }
	}
	if degree < 0 {
		return func(int) float64 { return 0 }
	}

	edge := (hi - lo + 1) / 10
	if edge < 1 {
		edge = 1
	}
	left, right := 0.0, 0.0
	for i := 0; i < edge; i++ {
		left += h.At(lo + i)
		right += h.At(hi - i)
	}
	left /= float64(edge)
	right /= float64(edge)
	span := float64(hi - lo)
	if span == 0 {
		return func(int) float64 { return left }
	}
	slope := (right - left) / span
	return func(ch int) float64 { return left + slope*float64(ch-lo) }
}

// peaksChi computes the reduced chi square of the composite model, a
// sum of Gaussians on top of the background, against the region.
func peaksChi(h Hist, cal calibration.Calibration, lo, hi int, peaks []Peak, bgAt func(int) float64, fitter *Fitter) float64 {
	chi := 0.0
	for ch := lo; ch <= hi; ch++ {
		model := bgAt(ch)
		for _, p := range peaks {
			model += gaussAt(cal, p, float64(ch))
		}
		d := h.At(ch) - model
		chi += d * d / math.Max(h.At(ch), 1)
	}
	dof := (hi - lo + 1) - 3*len(peaks)
	if fitter.BgDegree >= 0 {
		dof -= fitter.BgDegree + 1
	}
	if dof < 1 {
		dof = 1
	}
	return chi / float64(dof)
}

// gaussAt evaluates one fitted peak at a channel position.
func gaussAt(cal calibration.Calibration, p Peak, ch float64) float64 {
	slope := cal.Apply(ch+0.5) - cal.Apply(ch-0.5)
	if slope == 0 {
		slope = 1
	}
	sigma := p.Params["width"] / math.Abs(slope) / fwhmFactor
	if sigma <= 0 {
		return 0
	}
	chPeak := cal.Invert(p.Params["pos"])
	amp := p.Params["vol"] / (sigma * math.Sqrt(2*math.Pi))
	d := (ch - chPeak) / sigma
	return amp * math.Exp(-d*d/2)
}

// polyEval evaluates a polynomial, lowest order coefficient first.
func polyEval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}
	return v
}

// chBounds clips a calibrated range to valid integer channel bounds.
// The result may be empty (hi < lo) when the range covers no channel.
func chBounds(h Hist, cal calibration.Calibration, r [2]float64) (int, int) {
	a := cal.Invert(r[0])
	b := cal.Invert(r[1])
	if a > b {
		a, b = b, a
	}
	lo := int(math.Ceil(a))
	hi := int(math.Floor(b))
	if lo < 0 {
		lo = 0
	}
	if hi >= h.NBins() {
		hi = h.NBins() - 1
	}
	return lo, hi
}
