// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/specterm/internal/calibration"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/util"
)

// ===== FIT =====

// Fit bundles the markers, the fitter configuration and the results of
// one fit. A fit starts as a marker container and accumulates results
// as its fit functions run.
type Fit struct {
	Regions *MarkerList
	Peaks   *MarkerList
	Bgs     *MarkerList
	Fitter  *Fitter
	Engine  Engine

	// Results, valid after the corresponding fit function ran.
	PeakResults []Peak
	BgCoeffs    []float64
	BgChi       float64
	Chi         float64

	ShowDecomp bool
}

// NewFit creates an empty fit using the given fitter and the default
// engine.
func NewFit(fitter *Fitter) *Fit {
	return &Fit{
		Regions: NewMarkerList(MarkerRegion),
		Peaks:   NewMarkerList(MarkerPeak),
		Bgs:     NewMarkerList(MarkerBg),
		Fitter:  fitter,
		Engine:  DefaultEngine,
	}
}

// markerList resolves a marker kind to its list.
func (f *Fit) markerList(kind MarkerKind) (*MarkerList, error) {
	switch kind {
	case MarkerBg:
		return f.Bgs, nil
	case MarkerRegion:
		return f.Regions, nil
	case MarkerPeak:
		return f.Peaks, nil
	}
	return nil, fmt.Errorf("invalid marker type %q", kind)
}

// SetMarker places a marker of the given kind at pos.
func (f *Fit) SetMarker(kind MarkerKind, pos float64) error {
	l, err := f.markerList(kind)
	if err != nil {
		return err
	}
	l.Set(pos)
	return nil
}

// RemoveMarker removes the marker of the given kind nearest to pos.
func (f *Fit) RemoveMarker(kind MarkerKind, pos float64) error {
	l, err := f.markerList(kind)
	if err != nil {
		return err
	}
	l.Remove(pos)
	return nil
}

// ClearMarkers removes all markers and results.
func (f *Fit) ClearMarkers() {
	f.Regions.Clear()
	f.Peaks.Clear()
	f.Bgs.Clear()
	f.invalidate()
	f.BgCoeffs = nil
	f.BgChi = 0
}

// ClearBackground removes the background markers and any fitted
// background, keeping region and peaks.
func (f *Fit) ClearBackground() {
	f.Bgs.Clear()
	f.BgCoeffs = nil
	f.BgChi = 0
	f.invalidate()
}

func (f *Fit) invalidate() {
	f.PeakResults = nil
	f.Chi = 0
}

// HasResults reports whether a peak fit has produced results.
func (f *Fit) HasResults() bool {
	return len(f.PeakResults) > 0
}

// ===== FITTING =====

// FitBgFunc fits the background polynomial over the background marker
// ranges. It fails with ErrBgDisabled when the background degree is -1.
func (f *Fit) FitBgFunc(h Hist, cal calibration.Calibration) error {
	if f.Fitter.BgDegree < 0 {
		return ErrBgDisabled
	}
	ranges := f.Bgs.Ranges()
	if len(ranges) == 0 {
		return errors.New("no background markers set")
	}
	coeffs, chi, err := f.Engine.FitBackground(h, cal, ranges, f.Fitter.BgDegree)
	if err != nil {
		return err
	}
	f.BgCoeffs = coeffs
	f.BgChi = chi
	f.invalidate()
	return nil
}

// FitPeakFunc runs the full peak fit. The region markers must form a
// complete pair and at least one peak marker must be set. A background
// fitted earlier is reused; otherwise one is fitted first when
// background markers exist.
func (f *Fit) FitPeakFunc(h Hist, cal calibration.Calibration) error {
	ranges := f.Regions.Ranges()
	if len(ranges) == 0 {
		return errors.New("fit region not set")
	}
	if f.Peaks.Len() == 0 {
		return errors.New("no peak markers set")
	}
	if f.BgCoeffs == nil && f.Bgs.Ranges() != nil && f.Fitter.BgDegree >= 0 {
		if err := f.FitBgFunc(h, cal); err != nil {
			return err
		}
	}
	peaks, chi, err := f.Engine.FitPeaks(h, cal, ranges[0], f.Peaks.Positions(), f.BgCoeffs, f.Fitter)
	if err != nil {
		return err
	}
	f.PeakResults = peaks
	f.Chi = chi
	return nil
}

// Refresh re-runs the peak fit with the current fitter settings when
// results exist, used after a parameter status change.
func (f *Fit) Refresh(h Hist, cal calibration.Calibration) error {
	if !f.HasResults() {
		return nil
	}
	return f.FitPeakFunc(h, cal)
}

// SetDecomp toggles the decomposition display of this fit.
func (f *Fit) SetDecomp(enable bool) {
	f.ShowDecomp = enable
}

// Copy returns a deep copy of the fit, markers and results included.
func (f *Fit) Copy() *Fit {
	cp := &Fit{
		Regions:    f.Regions.Copy(),
		Peaks:      f.Peaks.Copy(),
		Bgs:        f.Bgs.Copy(),
		Fitter:     f.Fitter.Copy(),
		Engine:     f.Engine,
		BgChi:      f.BgChi,
		Chi:        f.Chi,
		ShowDecomp: f.ShowDecomp,
	}
	if f.BgCoeffs != nil {
		cp.BgCoeffs = append([]float64(nil), f.BgCoeffs...)
	}
	for _, p := range f.PeakResults {
		cp.PeakResults = append(cp.PeakResults, copyPeak(p))
	}
	return cp
}

func copyPeak(p Peak) Peak {
	cp := Peak{Params: make(map[string]float64, len(p.Params))}
	for k, v := range p.Params {
		cp.Params[k] = v
	}
	if p.Errors != nil {
		cp.Errors = make(map[string]float64, len(p.Errors))
		for k, v := range p.Errors {
			cp.Errors[k] = v
		}
	}
	return cp
}

// ===== RESULT EXTRACTION =====

// ExtractParams flattens the fit results into table rows, one per peak,
// under the given fit ID. The returned parameter names are the union of
// the names appearing in the peaks, in model display order. A fit
// without peaks yields no rows and no parameter names.
func (f *Fit) ExtractParams(id ident.ID) (rows []util.Row, params []string) {
	if len(f.PeakResults) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	for _, name := range ModelParams(f.Fitter.Model) {
		for _, p := range f.PeakResults {
			if _, ok := p.Params[name]; ok && !seen[name] {
				seen[name] = true
				params = append(params, name)
				break
			}
		}
	}
	for _, p := range f.PeakResults {
		for name := range p.Params {
			if !seen[name] {
				seen[name] = true
				params = append(params, name)
			}
		}
	}

	for i, p := range f.PeakResults {
		row := util.Row{"id": peakRowID(id, i, len(f.PeakResults))}
		for name, v := range p.Params {
			row[name] = v
		}
		row["chi"] = f.Chi
		rows = append(rows, row)
	}
	return rows, params
}

// peakRowID labels a peak row: the bare fit ID for single-peak fits,
// ID.peak for multi-peak fits.
func peakRowID(id ident.ID, peak, npeaks int) string {
	if npeaks == 1 {
		return id.String()
	}
	return fmt.Sprintf("%s.%d", id.String(), peak)
}

// String renders a short human-readable summary of the fit.
func (f *Fit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fit: model %s, background degree %d", f.Fitter.Model, f.Fitter.BgDegree)
	if f.BgCoeffs != nil {
		fmt.Fprintf(&b, "\nbackground: %s (chi^2 %.3g)", formatCoeffs(f.BgCoeffs), f.BgChi)
	}
	if len(f.PeakResults) > 0 {
		fmt.Fprintf(&b, "\nchi^2: %.3g", f.Chi)
	}
	for i, p := range f.PeakResults {
		fmt.Fprintf(&b, "\npeak %d:", i)
		for _, name := range ModelParams(f.Fitter.Model) {
			v, ok := p.Params[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, " %s=%s", name, util.FormatFloat(v))
			if e := p.Errors[name]; e > 0 {
				fmt.Fprintf(&b, "(%s)", util.FormatFloat(e))
			}
		}
	}
	if f.Regions.Len() == 0 && f.Peaks.Len() == 0 && f.Bgs.Len() == 0 && !f.HasResults() {
		return "fit: empty"
	}
	return b.String()
}

func formatCoeffs(coeffs []float64) string {
	parts := make([]string, len(coeffs))
	for i, c := range coeffs {
		parts[i] = util.FormatFloat(c)
	}
	return strings.Join(parts, " ")
}
