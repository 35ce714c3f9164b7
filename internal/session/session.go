// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"

	"github.com/jeranaias/specterm/internal/calibration"
	"github.com/jeranaias/specterm/internal/collection"
	"github.com/jeranaias/specterm/internal/color"
	"github.com/jeranaias/specterm/internal/fit"
	"github.com/jeranaias/specterm/internal/history"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/spectrum"
)

// ===== INTERFACES =====

// Messenger receives user-facing messages. The REPL prints them to the
// terminal, the TUI routes them into its message pane.
type Messenger interface {
	Msg(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Window is the display the session drives.
type Window interface {
	// Redraw schedules a repaint after a state change.
	Redraw()
	// Focus brings a calibrated range into view.
	Focus(lo, hi float64)
}

// NopWindow is a Window that does nothing, for batch use.
type NopWindow struct{}

func (NopWindow) Redraw()            {}
func (NopWindow) Focus(_, _ float64) {}

// ===== SESSION =====

// Session is the root application object.
type Session struct {
	Spectra *collection.Container[*spectrum.Spectrum]

	opts    *options.Registry
	msg     Messenger
	win     Window
	journal *history.Journal

	// The work fit and, when editing a stored fit, its id in the
	// active spectrum. See workfit.go.
	workFit      *fit.Fit
	activeFitID  ident.ID
	hasActiveFit bool

	updateLocks int
	needRedraw  bool
}

// New creates a session around an options registry and a message sink.
// The fit workflow options are registered on the registry here.
func New(opts *options.Registry, msg Messenger) *Session {
	s := &Session{
		Spectra: collection.New[*spectrum.Spectrum](),
		opts:    opts,
		msg:     msg,
		win:     NopWindow{},
	}
	s.Spectra.OnChange(s.redraw)
	s.registerOptions()
	s.resetWorkFit(nil)
	return s
}

// registerOptions declares the configuration variables of the fit
// workflow.
func (s *Session) registerOptions() {
	if s.opts == nil {
		return
	}
	s.opts.MustRegister("fit.quickfit.region",
		options.NewOption(20.0, options.ParseFloat))
	s.opts.MustRegister("fit.background.degree",
		options.NewOption(1, options.ParseInt))
	s.opts.MustRegister("fit.peakmodel",
		options.NewOption("gauss", options.ParseChoice(fit.Models()...)))
	s.opts.MustRegister("fit.display.decomp",
		options.NewOption(false, options.ParseBool).WithChange(func(v any) {
			s.SetDecompDefault(v.(bool))
		}))
}

// SetWindow attaches the display. Call before the first draw.
func (s *Session) SetWindow(win Window) {
	if win == nil {
		win = NopWindow{}
	}
	s.win = win
}

// SetJournal attaches the fit journal. A nil journal disables
// journaling.
func (s *Session) SetJournal(j *history.Journal) {
	s.journal = j
}

// Journal returns the attached fit journal, nil when disabled.
func (s *Session) Journal() *history.Journal {
	return s.journal
}

// Options returns the session's options registry.
func (s *Session) Options() *options.Registry {
	return s.opts
}

func (s *Session) msgf(format string, args ...any) {
	if s.msg != nil {
		s.msg.Msg(format, args...)
	}
}

func (s *Session) warnf(format string, args ...any) {
	if s.msg != nil {
		s.msg.Warn(format, args...)
	}
}

func (s *Session) errorf(format string, args ...any) {
	if s.msg != nil {
		s.msg.Error(format, args...)
	}
}

// ===== UPDATE LOCKING =====

// LockUpdate suspends redraws until the matching UnlockUpdate, so bulk
// operations repaint once.
func (s *Session) LockUpdate() {
	s.updateLocks++
}

// UnlockUpdate releases one LockUpdate. The last unlock performs a
// deferred redraw if one was requested.
func (s *Session) UnlockUpdate() {
	if s.updateLocks == 0 {
		return
	}
	s.updateLocks--
	if s.updateLocks == 0 && s.needRedraw {
		s.needRedraw = false
		s.win.Redraw()
	}
}

func (s *Session) redraw() {
	if s.updateLocks > 0 {
		s.needRedraw = true
		return
	}
	s.win.Redraw()
}

// ===== SPECTRUM MANAGEMENT =====

// Add inserts a spectrum under the next free id, colors it by that id,
// shows it and makes it active.
func (s *Session) Add(spec *spectrum.Spectrum) ident.ID {
	id := s.Spectra.Insert(spec)
	spec.Color = color.ForID(id.Major, 0.65, 0.95)
	spec.Fits.OnChange(s.redraw)
	s.Spectra.Show([]ident.ID{id})
	if err := s.Spectra.Activate(id); err == nil {
		s.redraw()
	}
	return id
}

// Get returns the spectrum with the given id.
func (s *Session) Get(id ident.ID) (*spectrum.Spectrum, bool) {
	return s.Spectra.Get(id)
}

// ActiveSpectrum returns the active spectrum, if any.
func (s *Session) ActiveSpectrum() (*spectrum.Spectrum, bool) {
	return s.Spectra.Active()
}

// ActivateObject makes the spectrum with the given id active. The work
// fit keeps its markers, so a fit in progress can continue on another
// spectrum.
func (s *Session) ActivateObject(id ident.ID) error {
	return s.Spectra.Activate(id)
}

// FindByName returns a spectrum whose name matches, or nil. When
// several spectra share the name, which one is returned is unspecified.
func (s *Session) FindByName(name string) *spectrum.Spectrum {
	var found *spectrum.Spectrum
	s.Spectra.Each(func(_ ident.ID, spec *spectrum.Spectrum) {
		if found == nil && spec.Name == name {
			found = spec
		}
	})
	return found
}

// RemoveObjects deletes the given spectra. Missing ids are collected in
// the result, the rest are still removed.
func (s *Session) RemoveObjects(ids []ident.ID) collection.BulkResult {
	var res collection.BulkResult
	s.LockUpdate()
	defer s.UnlockUpdate()
	for _, id := range ids {
		if _, err := s.Spectra.Pop(id); err != nil {
			res.Fail(id, err)
			continue
		}
		res.Add(id)
	}
	return res
}

// RefreshSpectra re-reads the given spectra from their source files.
func (s *Session) RefreshSpectra(ids []ident.ID) collection.BulkResult {
	var res collection.BulkResult
	s.LockUpdate()
	defer s.UnlockUpdate()
	for _, id := range ids {
		spec, ok := s.Spectra.Get(id)
		if !ok {
			res.Fail(id, collection.ErrNoSuchID)
			continue
		}
		if _, err := spec.Refresh(); err != nil {
			res.Fail(id, err)
			continue
		}
		res.Add(id)
	}
	s.redraw()
	return res
}

// RefreshAll re-reads every spectrum with a source file.
func (s *Session) RefreshAll() collection.BulkResult {
	return s.RefreshSpectra(s.Spectra.IDs())
}

// RefreshVisible re-reads the visible spectra.
func (s *Session) RefreshVisible() collection.BulkResult {
	return s.RefreshSpectra(s.Spectra.VisibleIDs())
}

// RefreshByPath refreshes the spectra loaded from the given source
// file, used by the file watcher.
func (s *Session) RefreshByPath(path string) {
	s.LockUpdate()
	defer s.UnlockUpdate()
	s.Spectra.Each(func(id ident.ID, spec *spectrum.Spectrum) {
		if spec.Path != path {
			return
		}
		changed, err := spec.Refresh()
		if err != nil {
			s.warnf("could not reload %s: %v", path, err)
			return
		}
		if changed {
			s.msgf("reloaded spectrum %s (id %s)", spec.Name, id)
			s.redraw()
		}
	})
}

// ShowPrev slides the spectrum display window backwards.
func (s *Session) ShowPrev() {
	s.Spectra.ShowPrev()
}

// ShowNext slides the spectrum display window forwards.
func (s *Session) ShowNext() {
	s.Spectra.ShowNext()
}

// ===== CALIBRATION =====

// ApplyCalibration sets the calibration on each given spectrum.
func (s *Session) ApplyCalibration(ids []ident.ID, cal calibration.Calibration) collection.BulkResult {
	var res collection.BulkResult
	s.LockUpdate()
	defer s.UnlockUpdate()
	for _, id := range ids {
		spec, ok := s.Spectra.Get(id)
		if !ok {
			s.warnf("there is no spectrum with id: %s", id)
			res.Fail(id, collection.ErrNoSuchID)
			continue
		}
		spec.Cal = cal
		s.msgf("calibrated spectrum with id %d", id.Major)
		res.Add(id)
	}
	s.redraw()
	return res
}

// ApplyCalibrationList applies named calibrations from a list file to
// the loaded spectra, matched by name. Unmatched names are reported
// when warnNotFound is set.
func (s *Session) ApplyCalibrationList(entries []calibration.ListEntry, warnNotFound bool) {
	s.LockUpdate()
	defer s.UnlockUpdate()
	for _, entry := range entries {
		spec := s.FindByName(entry.Name)
		if spec == nil {
			if warnNotFound {
				s.msgf("Info: No spectrum named %s found; calibration ignored.", entry.Name)
			}
			continue
		}
		spec.Cal = entry.Cal
	}
	s.redraw()
}

// CalListEntries collects the calibrations of all loaded spectra that
// have one, for writing a calibration list file.
func (s *Session) CalListEntries() []calibration.ListEntry {
	var out []calibration.ListEntry
	s.Spectra.Each(func(_ ident.ID, spec *spectrum.Spectrum) {
		if spec.Cal.IsIdentity() {
			return
		}
		out = append(out, calibration.ListEntry{Name: spec.Name, Cal: spec.Cal})
	})
	return out
}

// Close releases session resources.
func (s *Session) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// String summarizes the session state.
func (s *Session) String() string {
	active := "none"
	if id, ok := s.Spectra.ActiveID(); ok {
		active = id.String()
	}
	return fmt.Sprintf("%d spectra loaded, active %s", s.Spectra.Len(), active)
}
