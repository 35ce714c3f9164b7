// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fitlist saves fits to YAML files and restores them into
// loaded spectra. Files store markers and fitter settings rather than
// results, so restored fits are re-executed against the current
// spectrum data.
package fitlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/specterm/internal/fit"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/util"
)

// Version is the fitlist file format version this build writes.
const Version = 1

// DefaultPath returns the fitlist path conventionally paired with a
// spectrum name.
func DefaultPath(specName string) string {
	return specName + ".sfl"
}

// ===== FILE FORMAT =====

// File is the top level fitlist document.
type File struct {
	Version int            `yaml:"version"`
	Spectra []SpectrumFits `yaml:"spectra"`
}

// SpectrumFits holds the fits of one spectrum, matched by name on
// restore.
type SpectrumFits struct {
	Name string   `yaml:"name"`
	Fits []Record `yaml:"fits"`
}

// Range is an ordered marker pair in calibrated units.
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

// Record describes one fit: its markers and fitter settings. Positions
// are in calibrated units.
type Record struct {
	ID          string            `yaml:"id"`
	Model       string            `yaml:"model"`
	BgDegree    int               `yaml:"bg_degree"`
	Region      *Range            `yaml:"region,omitempty"`
	Peaks       []float64         `yaml:"peaks,omitempty"`
	Backgrounds []Range           `yaml:"backgrounds,omitempty"`
	ParamStatus map[string]string `yaml:"param_status,omitempty"`
	Decomp      bool              `yaml:"decomp,omitempty"`
}

// ===== SAVING =====

// recordFit flattens a fit into its file record.
func recordFit(id ident.ID, f *fit.Fit) Record {
	rec := Record{
		ID:       id.String(),
		Model:    f.Fitter.Model,
		BgDegree: f.Fitter.BgDegree,
		Peaks:    f.Peaks.Positions(),
		Decomp:   f.ShowDecomp,
	}
	if ranges := f.Regions.Ranges(); len(ranges) > 0 {
		rec.Region = &Range{Lo: ranges[0][0], Hi: ranges[0][1]}
	}
	for _, r := range f.Bgs.Ranges() {
		rec.Backgrounds = append(rec.Backgrounds, Range{Lo: r[0], Hi: r[1]})
	}
	for _, name := range fit.ModelParams(f.Fitter.Model) {
		st := f.Fitter.ParamStatus(name)
		if st.Mode == fit.ParamFree {
			continue
		}
		if rec.ParamStatus == nil {
			rec.ParamStatus = make(map[string]string)
		}
		rec.ParamStatus[name] = st.String()
	}
	return rec
}

// Collect builds the fitlist document for the given spectra, skipping
// spectra without fits.
func Collect(spectra []*spectrum.Spectrum) *File {
	file := &File{Version: Version}
	for _, s := range spectra {
		if s.Fits.Len() == 0 {
			continue
		}
		entry := SpectrumFits{Name: s.Name}
		s.Fits.Each(func(id ident.ID, f *fit.Fit) {
			entry.Fits = append(entry.Fits, recordFit(id, f))
		})
		file.Spectra = append(file.Spectra, entry)
	}
	return file
}

// Write saves the fits of the given spectra to path, atomically.
func Write(path string, spectra []*spectrum.Spectrum) error {
	data, err := yaml.Marshal(Collect(spectra))
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0o644)
}

// ===== READING =====

// Read parses a fitlist file.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if file.Version > Version {
		return nil, fmt.Errorf("%s: unsupported fitlist version %d", path, file.Version)
	}
	return &file, nil
}

// Result summarizes a restore: how many fits were rebuilt and the
// messages for everything that was skipped.
type Result struct {
	Restored int
	Skipped  []string
}

// buildFit reconstructs a fit from its record without executing it.
func buildFit(rec Record) (*fit.Fit, error) {
	model := rec.Model
	if model == "" {
		model = "gauss"
	}
	if fit.ModelParams(model) == nil {
		return nil, fmt.Errorf("unknown peak model %q", model)
	}
	fitter := fit.NewFitter(model, rec.BgDegree)
	for name, status := range rec.ParamStatus {
		if err := fitter.SetParameter(name, status); err != nil {
			return nil, err
		}
	}
	f := fit.NewFit(fitter)
	if rec.Region != nil {
		f.Regions.Set(rec.Region.Lo)
		f.Regions.Set(rec.Region.Hi)
	}
	for _, p := range rec.Peaks {
		f.Peaks.Set(p)
	}
	for _, r := range rec.Backgrounds {
		f.Bgs.Set(r.Lo)
		f.Bgs.Set(r.Hi)
	}
	f.SetDecomp(rec.Decomp)
	return f, nil
}

// Apply restores the fits of a file into loaded spectra, matched by
// spectrum name through lookup. Each fit is re-executed against the
// current histogram and stored under a fresh id. Entries that cannot be
// matched, parsed or fitted are skipped with a message, the rest still
// restore.
func Apply(file *File, lookup func(name string) *spectrum.Spectrum) Result {
	var res Result
	for _, entry := range file.Spectra {
		spec := lookup(entry.Name)
		if spec == nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("no spectrum named %s loaded, %d fits ignored", entry.Name, len(entry.Fits)))
			continue
		}
		for _, rec := range entry.Fits {
			if _, err := ident.Parse(rec.ID); err != nil {
				res.Skipped = append(res.Skipped, fmt.Sprintf("%s: fit %q: %v", entry.Name, rec.ID, err))
				continue
			}
			f, err := buildFit(rec)
			if err != nil {
				res.Skipped = append(res.Skipped, fmt.Sprintf("%s: fit %s: %v", entry.Name, rec.ID, err))
				continue
			}
			if err := executeRecord(f, spec); err != nil {
				res.Skipped = append(res.Skipped, fmt.Sprintf("%s: fit %s: %v", entry.Name, rec.ID, err))
				continue
			}
			// Restored fits never clobber what is already stored; they
			// take the next free ids.
			spec.Fits.Insert(f)
			res.Restored++
		}
	}
	return res
}

// executeRecord re-runs a restored fit: the peak fit when peak markers
// exist, otherwise the background fit alone.
func executeRecord(f *fit.Fit, spec *spectrum.Spectrum) error {
	if f.Peaks.Len() > 0 && f.Regions.Len() > 0 {
		return f.FitPeakFunc(spec.Hist, spec.Cal)
	}
	if f.Bgs.Len() > 0 && f.Fitter.BgDegree >= 0 {
		return f.FitBgFunc(spec.Hist, spec.Cal)
	}
	return nil
}
