// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ===== PARAMETER STATUS =====

// ParamMode states how the engine treats a fit parameter.
type ParamMode int

const (
	// ParamFree lets the engine determine the parameter.
	ParamFree ParamMode = iota
	// ParamHold keeps the parameter at its initial estimate.
	ParamHold
	// ParamFixed pins the parameter to a user-supplied value.
	ParamFixed
)

// ParamStatus is the fit status of one parameter.
type ParamStatus struct {
	Mode  ParamMode
	Value float64
}

// ParseParamStatus parses a status word: "free", "hold", or a numeric
// value which fixes the parameter.
func ParseParamStatus(s string) (ParamStatus, error) {
	switch strings.ToLower(s) {
	case "free":
		return ParamStatus{Mode: ParamFree}, nil
	case "hold":
		return ParamStatus{Mode: ParamHold}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ParamStatus{}, fmt.Errorf("invalid status %q (expected free, hold or a number)", s)
	}
	return ParamStatus{Mode: ParamFixed, Value: v}, nil
}

func (s ParamStatus) String() string {
	switch s.Mode {
	case ParamHold:
		return "hold"
	case ParamFixed:
		return strconv.FormatFloat(s.Value, 'g', -1, 64)
	default:
		return "free"
	}
}

// ===== PEAK MODELS =====

// modelParams maps each peak model to its parameter names in display
// order.
var modelParams = map[string][]string{
	"gauss": {"pos", "width", "vol"},
	"step":  {"pos", "width", "vol", "step"},
}

// Models lists the supported peak models, sorted.
func Models() []string {
	names := make([]string, 0, len(modelParams))
	for name := range modelParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelParams returns the parameter names of a peak model in display
// order, nil for an unknown model.
func ModelParams(model string) []string {
	return modelParams[model]
}

// ===== FITTER =====

// Fitter is the fit configuration: peak model, background polynomial
// degree and per-parameter statuses. A background degree of -1 disables
// background fitting entirely.
type Fitter struct {
	Model    string
	BgDegree int
	params   map[string]ParamStatus
}

// NewFitter creates a fitter for the given model and background degree.
func NewFitter(model string, bgDegree int) *Fitter {
	return &Fitter{
		Model:    model,
		BgDegree: bgDegree,
		params:   make(map[string]ParamStatus),
	}
}

// SetPeakModel switches the peak model and drops statuses of parameters
// the new model does not have.
func (f *Fitter) SetPeakModel(model string) error {
	if _, ok := modelParams[model]; !ok {
		return fmt.Errorf("invalid peak model %q (available: %s)", model, strings.Join(Models(), ", "))
	}
	f.Model = model
	for name := range f.params {
		if !f.validParam(name) {
			delete(f.params, name)
		}
	}
	return nil
}

// SetParameter sets the status of a named parameter. The status is
// "free", "hold", or a numeric value to fix the parameter.
func (f *Fitter) SetParameter(name, status string) error {
	name = strings.ToLower(name)
	if !f.validParam(name) {
		return fmt.Errorf("invalid parameter %q (model %s has: %s)",
			name, f.Model, strings.Join(ModelParams(f.Model), ", "))
	}
	st, err := ParseParamStatus(status)
	if err != nil {
		return err
	}
	f.params[name] = st
	return nil
}

// ParamStatus returns the status of a parameter, free by default.
func (f *Fitter) ParamStatus(name string) ParamStatus {
	return f.params[name]
}

// ResetParamStatus reverts every parameter to free.
func (f *Fitter) ResetParamStatus() {
	f.params = make(map[string]ParamStatus)
}

func (f *Fitter) validParam(name string) bool {
	for _, p := range ModelParams(f.Model) {
		if p == name {
			return true
		}
	}
	return false
}

// Copy returns an independent copy of the fitter.
func (f *Fitter) Copy() *Fitter {
	cp := NewFitter(f.Model, f.BgDegree)
	for name, st := range f.params {
		cp.params[name] = st
	}
	return cp
}

// StatusString renders the fitter configuration with one line per
// parameter, for the parameter status display.
func (f *Fitter) StatusString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "peak model: %s\n", f.Model)
	fmt.Fprintf(&b, "background degree: %d\n", f.BgDegree)
	for _, name := range ModelParams(f.Model) {
		fmt.Fprintf(&b, "%s: %s\n", name, f.ParamStatus(name))
	}
	return b.String()
}
