// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package spectrum

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jeranaias/specterm/internal/calibration"
	"github.com/jeranaias/specterm/internal/collection"
	"github.com/jeranaias/specterm/internal/fit"
)

// ErrNoSourceFile is returned when an operation needs a backing file
// but the spectrum was created in memory.
var ErrNoSourceFile = errors.New("spectrum has no source file")

// Spectrum is a histogram together with its calibration, display state
// and the fits performed on it.
type Spectrum struct {
	Name   string
	Path   string
	Format string
	Hist   *Histogram
	Cal    calibration.Calibration
	Color  colorful.Color
	Norm   float64

	// Fits holds the stored fits of this spectrum, keyed by fit ID.
	Fits *collection.Container[*fit.Fit]

	fingerprint string
}

// New creates an in-memory spectrum around an existing histogram.
func New(name string, hist *Histogram) *Spectrum {
	return &Spectrum{
		Name: name,
		Hist: hist,
		Norm: 1.0,
		Fits: collection.New[*fit.Fit](),
	}
}

// FromFile loads a spectrum from a file. The spectrum is named after
// the file and remembers path and format so it can be refreshed later.
func FromFile(path, format string) (*Spectrum, error) {
	hist, fingerprint, err := ReadFile(path, format)
	if err != nil {
		return nil, err
	}
	s := New(filepath.Base(path), hist)
	s.Path = path
	s.Format = format
	s.fingerprint = fingerprint
	return s, nil
}

// Refresh re-reads the spectrum from its source file, keeping
// calibration and fits. Reports whether the contents actually changed.
func (s *Spectrum) Refresh() (bool, error) {
	if s.Path == "" {
		return false, ErrNoSourceFile
	}
	hist, fingerprint, err := ReadFile(s.Path, s.Format)
	if err != nil {
		return false, err
	}
	changed := fingerprint != s.fingerprint
	s.Hist = hist
	s.fingerprint = fingerprint
	return changed, nil
}

// WriteTo writes the spectrum to path in the given format.
func (s *Spectrum) WriteTo(path, format string) error {
	return WriteFile(path, format, s.Hist)
}

// Fingerprint returns a short content hash of the source file, empty
// for in-memory spectra.
func (s *Spectrum) Fingerprint() string {
	return s.fingerprint
}

// E converts a channel position to energy using the calibration.
func (s *Spectrum) E(ch float64) float64 {
	return s.Cal.Apply(ch)
}

// Ch converts an energy to a channel position using the calibration.
func (s *Spectrum) Ch(e float64) float64 {
	return s.Cal.Invert(e)
}

// Info returns a human-readable description of the spectrum.
func (s *Spectrum) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", s.Name)
	if s.Path != "" {
		format := s.Format
		if format == "" {
			format = "auto"
		}
		fmt.Fprintf(&b, "source: %s'%s\n", s.Path, format)
	} else {
		b.WriteString("source: in memory\n")
	}
	fmt.Fprintf(&b, "bins: %d\n", s.Hist.NBins())
	if s.Cal.IsIdentity() {
		b.WriteString("calibration: none\n")
	} else {
		fmt.Fprintf(&b, "calibration: %s\n", s.Cal)
	}
	fmt.Fprintf(&b, "fits: %d\n", s.Fits.Len())
	fmt.Fprintf(&b, "norm: %s\n", strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", s.Norm), "0"), "."))
	return b.String()
}
