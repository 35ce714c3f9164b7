// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"strings"

	"github.com/jeranaias/specterm/internal/collection"
	"github.com/jeranaias/specterm/internal/fit"
	"github.com/jeranaias/specterm/internal/history"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/util"
)

// ===== WORK FIT =====

// The work fit is the one fit being edited: markers are placed into it,
// fits execute on it, and StoreFit moves it into the active spectrum.
// There is exactly one work fit per session.

// resetWorkFit replaces the work fit with a fresh one. The fitter
// configuration carries over from prev so model and parameter statuses
// survive a clear.
func (s *Session) resetWorkFit(prev *fit.Fit) {
	fitter := fit.NewFitter(s.defaultModel(), s.defaultBgDegree())
	if prev != nil {
		fitter = prev.Fitter.Copy()
	}
	f := fit.NewFit(fitter)
	f.SetDecomp(s.defaultDecomp())
	s.workFit = f
	s.hasActiveFit = false
}

// WorkFit returns the fit currently being edited.
func (s *Session) WorkFit() *fit.Fit {
	return s.workFit
}

// ActiveFitID returns the id of the stored fit the work fit was loaded
// from, if any.
func (s *Session) ActiveFitID() (ident.ID, bool) {
	return s.activeFitID, s.hasActiveFit
}

func (s *Session) defaultModel() string {
	if s.opts == nil {
		return "gauss"
	}
	if v, err := s.opts.Str("fit.peakmodel"); err == nil {
		return v
	}
	return "gauss"
}

func (s *Session) defaultBgDegree() int {
	if s.opts == nil {
		return 1
	}
	if v, err := s.opts.Int("fit.background.degree"); err == nil {
		return v
	}
	return 1
}

func (s *Session) defaultDecomp() bool {
	if s.opts == nil {
		return false
	}
	if v, err := s.opts.Bool("fit.display.decomp"); err == nil {
		return v
	}
	return false
}

// ===== MARKERS =====

// SetMarker places a marker of the given kind at pos on the work fit.
func (s *Session) SetMarker(kind string, pos float64) {
	k, err := fit.ParseMarkerKind(kind)
	if err != nil {
		s.errorf("%v", err)
		return
	}
	if err := s.workFit.SetMarker(k, pos); err != nil {
		s.errorf("%v", err)
		return
	}
	s.redraw()
}

// RemoveMarker removes the nearest marker of the given kind.
func (s *Session) RemoveMarker(kind string, pos float64) {
	k, err := fit.ParseMarkerKind(kind)
	if err != nil {
		s.errorf("%v", err)
		return
	}
	if err := s.workFit.RemoveMarker(k, pos); err != nil {
		s.errorf("%v", err)
		return
	}
	s.redraw()
}

// ===== EXECUTION =====

// ExecuteFit runs the work fit on the active spectrum: the full peak
// fit when peaks is true, the background fit alone otherwise.
func (s *Session) ExecuteFit(peaks bool) {
	spec, ok := s.ActiveSpectrum()
	if !ok {
		s.warnf("No spectrum to work on")
		return
	}
	var err error
	if peaks {
		err = s.workFit.FitPeakFunc(spec.Hist, spec.Cal)
	} else {
		err = s.workFit.FitBgFunc(spec.Hist, spec.Cal)
	}
	if err != nil {
		s.errorf("fit failed: %v", err)
		return
	}
	s.msgf("%s", s.workFit)
	s.redraw()
}

// QuickFit clears the work fit, puts a region of the configured width
// and a peak marker at pos, and runs the peak fit.
func (s *Session) QuickFit(pos float64) {
	width := 20.0
	if s.opts != nil {
		if v, err := s.opts.Float("fit.quickfit.region"); err == nil {
			width = v
		}
	}
	s.ClearFit(false)
	s.workFit.Regions.Set(pos - width/2)
	s.workFit.Regions.Set(pos + width/2)
	s.workFit.Peaks.Set(pos)
	s.ExecuteFit(true)
}

// ExecuteRefit re-executes a stored fit in place.
func (s *Session) ExecuteRefit(specID, fitID ident.ID, peaks bool) error {
	spec, ok := s.Spectra.Get(specID)
	if !ok {
		return fmt.Errorf("invalid spectrum ID")
	}
	f, ok := spec.Fits.Get(fitID)
	if !ok {
		return fmt.Errorf("invalid fit ID")
	}
	var err error
	if peaks {
		err = f.FitPeakFunc(spec.Hist, spec.Cal)
	} else {
		if f.Fitter.BgDegree == -1 {
			return fit.ErrBgDisabled
		}
		err = f.FitBgFunc(spec.Hist, spec.Cal)
	}
	if err != nil {
		return err
	}
	s.msgf("%s", f)
	s.redraw()
	return nil
}

// ===== STORE / CLEAR / ACTIVATE =====

// StoreFit moves the work fit into the active spectrum. A work fit
// loaded from a stored fit goes back under its id, otherwise the next
// free id is used. The new work fit keeps the fitter settings.
func (s *Session) StoreFit() {
	s.storeFit(nil)
}

// StoreFitAs stores the work fit under an explicit id, replacing any
// fit already stored there.
func (s *Session) StoreFitAs(id ident.ID) {
	s.storeFit(&id)
}

func (s *Session) storeFit(explicit *ident.ID) {
	spec, ok := s.ActiveSpectrum()
	if !ok {
		s.warnf("No spectrum to work on")
		return
	}
	stored := s.workFit
	if !stored.HasResults() && stored.Regions.Len() == 0 &&
		stored.Peaks.Len() == 0 && stored.Bgs.Len() == 0 {
		s.warnf("no fit to store")
		return
	}
	var id ident.ID
	switch {
	case explicit != nil:
		id = explicit.Root()
		spec.Fits.Put(id, stored)
	case s.hasActiveFit:
		id = s.activeFitID
		spec.Fits.Put(id, stored)
		spec.Fits.Deactivate()
	default:
		id = spec.Fits.Insert(stored)
	}
	spec.Fits.Show([]ident.ID{id})
	s.msgf("Stored fit %s in spectrum %s", id, spec.Name)
	s.journalFit(id, stored, spec.Name, spec.Fingerprint())
	s.resetWorkFit(stored)
	s.redraw()
}

// ClearFit resets the work fit. With bgOnly only the background markers
// and the fitted background are dropped.
func (s *Session) ClearFit(bgOnly bool) {
	if bgOnly {
		s.workFit.ClearBackground()
	} else {
		s.resetWorkFit(s.workFit)
	}
	s.redraw()
}

// ActivateFit loads a stored fit of the active spectrum into the work
// fit for editing. A nil id deactivates, returning to a fresh work fit.
func (s *Session) ActivateFit(id *ident.ID) {
	spec, ok := s.ActiveSpectrum()
	if !ok {
		s.warnf("No active spectrum")
		return
	}
	if id == nil {
		spec.Fits.Deactivate()
		s.resetWorkFit(s.workFit)
		s.redraw()
		return
	}
	stored, ok := spec.Fits.Get(*id)
	if !ok {
		s.warnf("there is no fit with id %s", *id)
		return
	}
	if err := spec.Fits.Activate(*id); err != nil {
		s.warnf("%v", err)
		return
	}
	s.workFit = stored.Copy()
	s.activeFitID = *id
	s.hasActiveFit = true
	s.redraw()
}

// DeleteFits removes stored fits from a spectrum.
func (s *Session) DeleteFits(spec ident.ID, ids []ident.ID) collection.BulkResult {
	var res collection.BulkResult
	sp, ok := s.Spectra.Get(spec)
	if !ok {
		for _, id := range ids {
			res.Fail(id, collection.ErrNoSuchID)
		}
		return res
	}
	s.LockUpdate()
	defer s.UnlockUpdate()
	for _, id := range ids {
		if _, err := sp.Fits.Pop(id); err != nil {
			res.Fail(id, err)
			continue
		}
		res.Add(id)
	}
	return res
}

// ===== DECOMPOSITION =====

// SetDecompDefault is the change hook of the decomposition display
// option: it applies the new default to the work fit and to every
// stored fit.
func (s *Session) SetDecompDefault(enable bool) {
	s.LockUpdate()
	defer s.UnlockUpdate()
	s.workFit.SetDecomp(enable)
	s.Spectra.Each(func(_ ident.ID, spec *spectrum.Spectrum) {
		spec.Fits.Each(func(_ ident.ID, f *fit.Fit) {
			f.SetDecomp(enable)
		})
	})
	s.redraw()
}

// ShowDecomposition toggles the decomposition display of specific
// stored fits of the active spectrum, or of the work fit when ids is
// empty.
func (s *Session) ShowDecomposition(enable bool, ids []ident.ID) {
	if len(ids) == 0 {
		s.workFit.SetDecomp(enable)
		s.redraw()
		return
	}
	spec, ok := s.ActiveSpectrum()
	if !ok {
		s.warnf("No active spectrum")
		return
	}
	s.LockUpdate()
	defer s.UnlockUpdate()
	for _, id := range ids {
		if f, ok := spec.Fits.Get(id); ok {
			f.SetDecomp(enable)
		}
	}
	s.redraw()
}

// ===== INTEGRATION =====

// ExecuteIntegral integrates the active spectrum over the work fit's
// region, subtracting a fitted background when one exists.
func (s *Session) ExecuteIntegral() {
	spec, ok := s.ActiveSpectrum()
	if !ok {
		s.warnf("No spectrum to work on")
		return
	}
	ranges := s.workFit.Regions.Ranges()
	if len(ranges) == 0 {
		s.warnf("fit region not set")
		return
	}
	r := fit.Integrate(spec.Hist, spec.Cal, ranges[0], s.workFit.BgCoeffs)
	s.msgf("%s", r)
}

// ===== FOCUS =====

// FocusFits brings stored fits (or the work fit, with no ids) into
// view.
func (s *Session) FocusFits(ids []ident.ID) {
	var fits []*fit.Fit
	if len(ids) == 0 {
		fits = append(fits, s.workFit)
	} else {
		spec, ok := s.ActiveSpectrum()
		if !ok {
			s.warnf("No active spectrum")
			return
		}
		for _, id := range ids {
			if f, ok := spec.Fits.Get(id); ok {
				fits = append(fits, f)
			}
		}
	}

	lo, hi := 0.0, 0.0
	found := false
	for _, f := range fits {
		for _, p := range append(f.Regions.Positions(), f.Peaks.Positions()...) {
			if !found {
				lo, hi = p, p
				found = true
				continue
			}
			if p < lo {
				lo = p
			}
			if p > hi {
				hi = p
			}
		}
	}
	if !found {
		s.warnf("nothing to focus on")
		return
	}
	s.win.Focus(lo, hi)
}

// ===== JOURNAL =====

// journalFit records a stored fit. Journal trouble is reported but
// never blocks the store.
func (s *Session) journalFit(id ident.ID, f *fit.Fit, specName, fingerprint string) {
	if s.journal == nil {
		return
	}
	err := s.journal.Record(history.Entry{
		Spectrum:    specName,
		Fingerprint: fingerprint,
		FitID:       id.String(),
		Model:       f.Fitter.Model,
		BgDegree:    f.Fitter.BgDegree,
		NPeaks:      len(f.PeakResults),
		Params:      summarizeParams(f),
	})
	if err != nil {
		s.warnf("fit journal: %v", err)
	}
}

// summarizeParams flattens the fitted peak parameters for the journal.
func summarizeParams(f *fit.Fit) string {
	var peaks []string
	for _, p := range f.PeakResults {
		var parts []string
		for _, name := range fit.ModelParams(f.Fitter.Model) {
			if v, ok := p.Params[name]; ok {
				parts = append(parts, fmt.Sprintf("%s=%s", name, util.FormatFloat(v)))
			}
		}
		peaks = append(peaks, strings.Join(parts, " "))
	}
	return strings.Join(peaks, "; ")
}
