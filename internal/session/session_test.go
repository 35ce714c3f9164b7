// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/specterm/internal/calibration"
	"github.com/jeranaias/specterm/internal/fit"
	"github.com/jeranaias/specterm/internal/history"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/spectrum"
)

// recorder captures messages for assertions.
type recorder struct {
	msgs  []string
	warns []string
	errs  []string
}

func (r *recorder) Msg(format string, args ...any) {
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
}

func (r *recorder) Warn(format string, args ...any) {
	r.warns = append(r.warns, fmt.Sprintf(format, args...))
}

func (r *recorder) Error(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}

func (r *recorder) allWarns() string { return strings.Join(r.warns, "\n") }

// countWin counts redraws and records the last focus range.
type countWin struct {
	redraws          int
	focusLo, focusHi float64
}

func (w *countWin) Redraw()              { w.redraws++ }
func (w *countWin) Focus(lo, hi float64) { w.focusLo, w.focusHi = lo, hi }

func newTestSession(t *testing.T) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(options.NewRegistry(), rec), rec
}

// addSynthetic loads an in-memory spectrum with a Gaussian peak at
// channel 50 (sigma 3, volume 1000) on a flat background of 10.
func addSynthetic(s *Session, name string) ident.ID {
	counts := make([]float64, 100)
	for ch := range counts {
		d := (float64(ch) - 50) / 3
		counts[ch] = 10 + 1000/(3*math.Sqrt(2*math.Pi))*math.Exp(-d*d/2)
	}
	return s.Add(spectrum.New(name, spectrum.NewHistogram(counts)))
}

func TestAddAssignsIDsColorsAndActive(t *testing.T) {
	s, _ := newTestSession(t)
	id0 := addSynthetic(s, "a.txt")
	id1 := addSynthetic(s, "b.txt")

	if id0.Major != 0 || id1.Major != 1 {
		t.Errorf("ids = %s, %s, want 0, 1", id0, id1)
	}
	active, ok := s.Spectra.ActiveID()
	if !ok || active != id1 {
		t.Errorf("active = %v, want %s", active, id1)
	}
	a, _ := s.Get(id0)
	b, _ := s.Get(id1)
	if a.Color == b.Color {
		t.Error("spectra share a color")
	}
	if !s.Spectra.IsVisible(id0) || !s.Spectra.IsVisible(id1) {
		t.Error("added spectra are not visible")
	}
}

func TestWorkFitLifecycle(t *testing.T) {
	s, rec := newTestSession(t)
	addSynthetic(s, "a.txt")

	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.SetMarker("peak", 50)
	s.ExecuteFit(true)

	if !s.WorkFit().HasResults() {
		t.Fatalf("work fit has no results, errors: %v", rec.errs)
	}
	if len(rec.msgs) == 0 || !strings.Contains(rec.msgs[len(rec.msgs)-1], "fit:") {
		t.Errorf("fit summary not reported: %v", rec.msgs)
	}

	s.StoreFit()
	spec, _ := s.ActiveSpectrum()
	if spec.Fits.Len() != 1 {
		t.Fatalf("stored fits = %d, want 1", spec.Fits.Len())
	}
	if !strings.Contains(strings.Join(rec.msgs, "\n"), "Stored fit 0 in spectrum a.txt") {
		t.Errorf("store message missing: %v", rec.msgs)
	}
	if s.WorkFit().HasResults() || s.WorkFit().Regions.Len() != 0 {
		t.Error("work fit not reset after store")
	}
}

func TestQuickFitUsesRegionWidthOption(t *testing.T) {
	s, rec := newTestSession(t)
	addSynthetic(s, "a.txt")
	if err := s.Options().Set("fit.quickfit.region", "30"); err != nil {
		t.Fatal(err)
	}

	s.QuickFit(50)
	ranges := s.WorkFit().Regions.Ranges()
	if len(ranges) != 1 || ranges[0] != [2]float64{35, 65} {
		t.Errorf("quick fit region = %v, want [[35 65]]", ranges)
	}
	if !s.WorkFit().HasResults() {
		t.Errorf("quick fit produced no results, errors: %v", rec.errs)
	}
}

func TestExecuteFitWithoutSpectrum(t *testing.T) {
	s, rec := newTestSession(t)
	s.ExecuteFit(true)
	if !strings.Contains(rec.allWarns(), "No spectrum to work on") {
		t.Errorf("warns = %v", rec.warns)
	}
}

func TestExecuteRefit(t *testing.T) {
	s, _ := newTestSession(t)
	sid := addSynthetic(s, "a.txt")
	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.SetMarker("peak", 50)
	s.ExecuteFit(true)
	s.StoreFit()

	if err := s.ExecuteRefit(sid, ident.New(0), true); err != nil {
		t.Errorf("ExecuteRefit: %v", err)
	}
	if err := s.ExecuteRefit(ident.New(9), ident.New(0), true); err == nil || err.Error() != "invalid spectrum ID" {
		t.Errorf("bad spectrum id error = %v", err)
	}
	if err := s.ExecuteRefit(sid, ident.New(9), true); err == nil || err.Error() != "invalid fit ID" {
		t.Errorf("bad fit id error = %v", err)
	}

	spec, _ := s.Get(sid)
	f, _ := spec.Fits.Get(ident.New(0))
	f.Fitter.BgDegree = -1
	if err := s.ExecuteRefit(sid, ident.New(0), false); !errors.Is(err, fit.ErrBgDisabled) {
		t.Errorf("refit with disabled background = %v", err)
	}
}

func TestClearFit(t *testing.T) {
	s, _ := newTestSession(t)
	addSynthetic(s, "a.txt")
	s.SetMarker("bg", 10)
	s.SetMarker("bg", 20)
	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.SetMarker("peak", 50)

	s.ClearFit(true)
	wf := s.WorkFit()
	if wf.Bgs.Len() != 0 {
		t.Error("background markers survived bg-only clear")
	}
	if wf.Regions.Len() != 1 || wf.Peaks.Len() != 1 {
		t.Error("bg-only clear dropped region or peak markers")
	}

	wf.Fitter.BgDegree = 3
	s.ClearFit(false)
	wf = s.WorkFit()
	if wf.Regions.Len() != 0 || wf.Peaks.Len() != 0 {
		t.Error("full clear left markers")
	}
	if wf.Fitter.BgDegree != 3 {
		t.Error("full clear dropped the fitter settings")
	}
}

func TestActivateFitEditsInPlace(t *testing.T) {
	s, rec := newTestSession(t)
	addSynthetic(s, "a.txt")
	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.SetMarker("peak", 50)
	s.ExecuteFit(true)
	s.StoreFit()

	id := ident.New(0)
	s.ActivateFit(&id)
	if _, ok := s.ActiveFitID(); !ok {
		t.Fatal("no active fit after ActivateFit")
	}
	if s.WorkFit().Regions.Len() != 1 {
		t.Error("work fit did not receive the stored markers")
	}

	// Editing the copy must not touch the stored fit until StoreFit.
	s.SetMarker("peak", 55)
	spec, _ := s.ActiveSpectrum()
	stored, _ := spec.Fits.Get(id)
	if stored.Peaks.Len() != 1 {
		t.Error("editing the work fit changed the stored fit")
	}

	s.ExecuteFit(true)
	s.StoreFit()
	if spec.Fits.Len() != 1 {
		t.Errorf("fits = %d after re-store, want 1", spec.Fits.Len())
	}
	stored, _ = spec.Fits.Get(id)
	if stored.Peaks.Len() != 2 {
		t.Error("re-store did not replace the stored fit")
	}
	if _, ok := s.ActiveFitID(); ok {
		t.Error("fit still active after store")
	}

	bogus := ident.New(7)
	s.ActivateFit(&bogus)
	if len(rec.warns) == 0 {
		t.Error("activating a missing fit did not warn")
	}
}

func TestActivateFitWithoutSpectrum(t *testing.T) {
	s, rec := newTestSession(t)
	id := ident.New(0)
	s.ActivateFit(&id)
	if !strings.Contains(rec.allWarns(), "No active spectrum") {
		t.Errorf("warns = %v", rec.warns)
	}
}

func TestDeleteFits(t *testing.T) {
	s, _ := newTestSession(t)
	sid := addSynthetic(s, "a.txt")
	for i := 0; i < 2; i++ {
		s.SetMarker("region", 30)
		s.SetMarker("region", 70)
		s.SetMarker("peak", 50)
		s.ExecuteFit(true)
		s.StoreFit()
	}

	res := s.DeleteFits(sid, []ident.ID{ident.New(0), ident.New(5)})
	if len(res.Done) != 1 || res.Done[0].Major != 0 {
		t.Errorf("Done = %v", res.Done)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID.Major != 5 {
		t.Errorf("Failed = %v", res.Failed)
	}
	spec, _ := s.Get(sid)
	if spec.Fits.Len() != 1 {
		t.Errorf("fits left = %d, want 1", spec.Fits.Len())
	}
}

func TestDecompOptionAppliesToAllFits(t *testing.T) {
	s, _ := newTestSession(t)
	addSynthetic(s, "a.txt")
	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.SetMarker("peak", 50)
	s.ExecuteFit(true)
	s.StoreFit()

	if err := s.Options().Set("fit.display.decomp", "true"); err != nil {
		t.Fatal(err)
	}
	spec, _ := s.ActiveSpectrum()
	stored, _ := spec.Fits.Get(ident.New(0))
	if !stored.ShowDecomp {
		t.Error("stored fit did not pick up the decomp default")
	}
	if !s.WorkFit().ShowDecomp {
		t.Error("work fit did not pick up the decomp default")
	}
}

func TestExecuteIntegral(t *testing.T) {
	s, rec := newTestSession(t)
	addSynthetic(s, "a.txt")

	s.ExecuteIntegral()
	if !strings.Contains(rec.allWarns(), "fit region not set") {
		t.Errorf("warns = %v", rec.warns)
	}

	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.ExecuteIntegral()
	if len(rec.msgs) == 0 || !strings.Contains(rec.msgs[len(rec.msgs)-1], "integral from") {
		t.Errorf("msgs = %v", rec.msgs)
	}
}

func TestApplyCalibration(t *testing.T) {
	s, rec := newTestSession(t)
	sid := addSynthetic(s, "a.txt")

	res := s.ApplyCalibration([]ident.ID{sid, ident.New(9)}, calibration.New(0, 0.5))
	if len(res.Done) != 1 || len(res.Failed) != 1 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(strings.Join(rec.msgs, "\n"), "calibrated spectrum with id 0") {
		t.Errorf("msgs = %v", rec.msgs)
	}
	if !strings.Contains(rec.allWarns(), "there is no spectrum with id: 9") {
		t.Errorf("warns = %v", rec.warns)
	}
	spec, _ := s.Get(sid)
	if spec.Cal.IsIdentity() {
		t.Error("calibration not applied")
	}
}

func TestApplyCalibrationList(t *testing.T) {
	s, rec := newTestSession(t)
	sid := addSynthetic(s, "a.txt")

	entries := []calibration.ListEntry{
		{Name: "a.txt", Cal: calibration.New(1, 2)},
		{Name: "missing.txt", Cal: calibration.New(3, 4)},
	}
	s.ApplyCalibrationList(entries, true)

	spec, _ := s.Get(sid)
	if spec.Cal.IsIdentity() {
		t.Error("named calibration not applied")
	}
	want := "Info: No spectrum named missing.txt found; calibration ignored."
	if !strings.Contains(strings.Join(rec.msgs, "\n"), want) {
		t.Errorf("msgs = %v", rec.msgs)
	}
}

func TestRefreshReportsInMemorySpectra(t *testing.T) {
	s, _ := newTestSession(t)
	addSynthetic(s, "a.txt")
	res := s.RefreshAll()
	if len(res.Failed) != 1 || !errors.Is(res.Failed[0].Err, spectrum.ErrNoSourceFile) {
		t.Errorf("result = %+v", res)
	}
}

func TestLockUpdateBatchesRedraws(t *testing.T) {
	s, _ := newTestSession(t)
	win := &countWin{}
	s.SetWindow(win)

	win.redraws = 0
	s.LockUpdate()
	addSynthetic(s, "a.txt")
	addSynthetic(s, "b.txt")
	if win.redraws != 0 {
		t.Fatalf("redraws during lock = %d, want 0", win.redraws)
	}
	s.UnlockUpdate()
	if win.redraws != 1 {
		t.Errorf("redraws after unlock = %d, want 1", win.redraws)
	}
}

func TestFocusFitsUsesMarkerSpan(t *testing.T) {
	s, _ := newTestSession(t)
	addSynthetic(s, "a.txt")
	win := &countWin{}
	s.SetWindow(win)
	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.SetMarker("peak", 50)

	s.FocusFits(nil)
	if win.focusLo != 30 || win.focusHi != 70 {
		t.Errorf("focus = %v..%v, want 30..70", win.focusLo, win.focusHi)
	}
}

func TestFindByName(t *testing.T) {
	s, _ := newTestSession(t)
	addSynthetic(s, "a.txt")
	addSynthetic(s, "b.txt")

	if got := s.FindByName("b.txt"); got == nil || got.Name != "b.txt" {
		t.Errorf("FindByName(b.txt) = %v", got)
	}
	if got := s.FindByName("zzz"); got != nil {
		t.Errorf("FindByName(zzz) = %v, want nil", got)
	}
}

func TestStoreFitWritesJournal(t *testing.T) {
	s, _ := newTestSession(t)
	j, err := history.Open(filepath.Join(t.TempDir(), "fits.db"))
	if err != nil {
		t.Fatal(err)
	}
	s.SetJournal(j)
	defer s.Close()

	addSynthetic(s, "a.txt")
	s.SetMarker("region", 30)
	s.SetMarker("region", 70)
	s.SetMarker("peak", 50)
	s.ExecuteFit(true)
	s.StoreFit()

	n, err := j.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("journal entries = %d, want 1", n)
	}
	entries, err := j.Recent(1, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].NPeaks != 1 || entries[0].Model != "gauss" {
		t.Errorf("journal entry = %+v", entries)
	}
}
