// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jeranaias/specterm/internal/calibration"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/util"
)

// =============================================================================
// CALIBRATION COMMANDS
// =============================================================================

// specIDFlags builds the shared "-s" spectrum selector flag set.
func specIDFlags(name string) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
		fs.StringP("spectrum", "s", "", "spectra to apply to (default: active)")
		return fs
	}
}

// RegisterCalibrationCommands registers the position-calibration
// surface.
func RegisterCalibrationCommands(r *Registry) {
	r.MustRegister(&Command{
		Path:        "calibration position set",
		Level:       1,
		Description: "Set a polynomial calibration",
		Usage:       "calibration position set [-s ids] <degree> <c0>...<cN>",
		Flags:       specIDFlags("calibration position set"),
		MinArgs:     2,
		MaxArgs:     -1,
		Run:         cmdCalPosSet,
	})
	r.MustRegister(&Command{
		Path:        "calibration position unset",
		Level:       1,
		Description: "Remove the calibration",
		Usage:       "calibration position unset [-s ids]",
		Flags:       specIDFlags("calibration position unset"),
		MinArgs:     0,
		MaxArgs:     0,
		Run:         cmdCalPosUnset,
	})
	r.MustRegister(&Command{
		Path:        "calibration position enter",
		Level:       1,
		Description: "Calibrate from channel/energy pairs",
		Usage:       "calibration position enter [-s ids] <ch0> <E0> <ch1> <E1> [<ch> <E>...]",
		Flags:       specIDFlags("calibration position enter"),
		MinArgs:     4,
		MaxArgs:     -1,
		Run:         cmdCalPosEnter,
	})
	r.MustRegister(&Command{
		Path:        "calibration position read",
		Level:       1,
		Description: "Read calibration coefficients from a file",
		Usage:       "calibration position read [-s ids] <file>",
		Flags:       specIDFlags("calibration position read"),
		MinArgs:     1,
		MaxArgs:     1,
		Run:         cmdCalPosRead,
		FileArgs:    true,
	})
	r.MustRegister(&Command{
		Path:        "calibration position getlist",
		Level:       1,
		Description: "Apply a calibration list file, matching spectra by name",
		Usage:       "calibration position getlist <file>",
		MinArgs:     1,
		MaxArgs:     1,
		Run:         cmdCalPosGetlist,
		FileArgs:    true,
	})
	r.MustRegister(&Command{
		Path:        "calibration position setlist",
		Level:       1,
		Description: "Write the loaded calibrations to a list file",
		Usage:       "calibration position setlist <file>",
		MinArgs:     1,
		MaxArgs:     1,
		Run:         cmdCalPosSetlist,
		FileArgs:    true,
	})
	r.MustRegister(&Command{
		Path:        "calibration position list",
		Level:       1,
		Description: "List the calibrations of the loaded spectra",
		Usage:       "calibration position list",
		MinArgs:     0,
		MaxArgs:     0,
		Run:         cmdCalPosList,
	})
	r.MustRegister(&Command{
		Path:        "calibration position copy",
		Level:       1,
		Description: "Copy a calibration between spectra",
		Usage:       "calibration position copy <from-id> <to-ids>...",
		MinArgs:     2,
		MaxArgs:     -1,
		Run:         cmdCalPosCopy,
	})
}

// calTargets resolves the "-s" flag to target spectrum ids.
func calTargets(ctx *Context, inv *Invocation) ([]ident.ID, error) {
	expr, _ := inv.Flags.GetString("spectrum")
	ids, err := spectrumIDs(ctx, expr)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, Abortf("No spectrum to work on")
	}
	return ids, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func cmdCalPosSet(ctx *Context, inv *Invocation) error {
	degree, err := strconv.Atoi(inv.String(0))
	if err != nil || degree < 0 {
		return Abortf("invalid calibration degree %q", inv.String(0))
	}
	coeffArgs := inv.Args[1:]
	if len(coeffArgs) != degree+1 {
		return Abortf("degree %d needs %d coefficients, got %d", degree, degree+1, len(coeffArgs))
	}
	coeffs := make([]float64, len(coeffArgs))
	for i, arg := range coeffArgs {
		c, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Abortf("invalid calibration coefficient %q", arg)
		}
		coeffs[i] = c
	}
	ids, err := calTargets(ctx, inv)
	if err != nil {
		return err
	}
	ctx.Session.ApplyCalibration(ids, calibration.New(coeffs...))
	return nil
}

func cmdCalPosUnset(ctx *Context, inv *Invocation) error {
	ids, err := calTargets(ctx, inv)
	if err != nil {
		return err
	}
	ctx.Session.ApplyCalibration(ids, calibration.Calibration{})
	return nil
}

func cmdCalPosEnter(ctx *Context, inv *Invocation) error {
	if len(inv.Args)%2 != 0 {
		return Abortf("expected channel/energy pairs, got an odd argument count")
	}
	var pairs [][2]float64
	for i := 0; i < len(inv.Args); i += 2 {
		ch, err := strconv.ParseFloat(inv.Args[i], 64)
		if err != nil {
			return Abortf("invalid channel %q", inv.Args[i])
		}
		e, err := strconv.ParseFloat(inv.Args[i+1], 64)
		if err != nil {
			return Abortf("invalid energy %q", inv.Args[i+1])
		}
		pairs = append(pairs, [2]float64{ch, e})
	}
	cal, err := calibration.FromPairs(pairs)
	if err != nil {
		return Abortf("%v", err)
	}
	ids, err := calTargets(ctx, inv)
	if err != nil {
		return err
	}
	ctx.Session.ApplyCalibration(ids, cal)
	ctx.msgf("calibration: %s", cal)
	return nil
}

func cmdCalPosRead(ctx *Context, inv *Invocation) error {
	cal, err := calibration.FromFile(inv.String(0))
	if err != nil {
		return err
	}
	ids, err := calTargets(ctx, inv)
	if err != nil {
		return err
	}
	ctx.Session.ApplyCalibration(ids, cal)
	return nil
}

func cmdCalPosGetlist(ctx *Context, inv *Invocation) error {
	entries, lineErrs, err := calibration.ReadList(inv.String(0))
	if err != nil {
		return err
	}
	for _, le := range lineErrs {
		ctx.warnf("Warning: %s: %v", inv.String(0), le)
	}
	ctx.Session.ApplyCalibrationList(entries, true)
	return nil
}

func cmdCalPosSetlist(ctx *Context, inv *Invocation) error {
	entries := ctx.Session.CalListEntries()
	if len(entries) == 0 {
		return Abortf("no calibrated spectra to write")
	}
	if err := calibration.WriteList(util.ExpandUser(inv.String(0)), entries); err != nil {
		return err
	}
	ctx.msgf("wrote %d calibration(s) to %s", len(entries), inv.String(0))
	return nil
}

func cmdCalPosList(ctx *Context, inv *Invocation) error {
	var rows []util.Row
	ctx.Session.Spectra.Each(func(id ident.ID, sp *spectrum.Spectrum) {
		rows = append(rows, util.Row{
			"id":   id.String(),
			"name": sp.Name,
			"cal":  sp.Cal.String(),
		})
	})
	if len(rows) == 0 {
		ctx.msgf("no spectra loaded")
		return nil
	}
	t := util.NewTable([]string{"id", "name", "cal"}, rows)
	t.Style = tableStyle(ctx)
	ctx.msgf("%s", strings.TrimRight(t.String(), "\n"))
	return nil
}

func cmdCalPosCopy(ctx *Context, inv *Invocation) error {
	from, err := ident.Parse(inv.String(0))
	if err != nil {
		return Abortf("Invalid spectrum identifier: %v", err)
	}
	src, ok := ctx.Session.Get(from)
	if !ok {
		return Abortf("there is no spectrum with id: %d", from.Major)
	}
	ids, err := spectrumIDs(ctx, inv.Rest(1))
	if err != nil {
		return err
	}
	ctx.Session.ApplyCalibration(ids, src.Cal)
	return nil
}
