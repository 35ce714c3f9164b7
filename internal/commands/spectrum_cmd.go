// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jeranaias/specterm/internal/collection"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/util"
)

// =============================================================================
// SPECTRUM COMMANDS
// =============================================================================

// RegisterSpectrumCommands registers the spectrum management surface:
// loading, listing, display state, calibration-independent bookkeeping
// and writing.
func RegisterSpectrumCommands(r *Registry) {
	r.MustRegister(&Command{
		Path:        "spectrum get",
		Level:       0,
		Description: "Load spectra from files",
		Usage:       "spectrum get <file['format]>...",
		MinArgs:     1,
		MaxArgs:     -1,
		Run:         cmdSpectrumGet,
		FileArgs:    true,
	})
	r.MustRegister(&Command{
		Path:        "spectrum list",
		Level:       1,
		Description: "List loaded spectra",
		Usage:       "spectrum list [-v]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("spectrum list", pflag.ContinueOnError)
			fs.BoolP("verbose", "v", false, "include source paths and calibrations")
			return fs
		},
		MinArgs: 0,
		MaxArgs: 0,
		Run:     cmdSpectrumList,
	})
	r.MustRegister(&Command{
		Path:        "spectrum delete",
		Level:       1,
		Description: "Delete spectra",
		Usage:       "spectrum delete <ids>|all|none",
		MinArgs:     1,
		MaxArgs:     -1,
		Run:         cmdSpectrumDelete,
	})
	r.MustRegister(&Command{
		Path:        "spectrum activate",
		Level:       1,
		Description: "Make a spectrum the active one",
		Usage:       "spectrum activate <id>",
		MinArgs:     1,
		MaxArgs:     1,
		Run:         cmdSpectrumActivate,
	})
	r.MustRegister(&Command{
		Path:        "spectrum show",
		Level:       1,
		Description: "Show spectra, hiding all others",
		Usage:       "spectrum show <ids>|all|none",
		MinArgs:     1,
		MaxArgs:     -1,
		Run:         cmdSpectrumShow,
	})
	r.MustRegister(&Command{
		Path:        "spectrum hide",
		Level:       1,
		Description: "Hide spectra",
		Usage:       "spectrum hide <ids>",
		MinArgs:     1,
		MaxArgs:     -1,
		Run:         cmdSpectrumHide,
	})
	r.MustRegister(&Command{
		Path:        "spectrum update",
		Level:       1,
		Description: "Re-read spectra from their source files",
		Usage:       "spectrum update [<ids>|all|shown]",
		MinArgs:     0,
		MaxArgs:     -1,
		Run:         cmdSpectrumUpdate,
	})
	r.MustRegister(&Command{
		Path:        "spectrum write",
		Level:       1,
		Description: "Write a spectrum to a file",
		Usage:       "spectrum write <file['format]> [id]",
		MinArgs:     1,
		MaxArgs:     2,
		Run:         cmdSpectrumWrite,
		FileArgs:    true,
	})
	r.MustRegister(&Command{
		Path:        "spectrum name",
		Level:       1,
		Description: "Rename a spectrum",
		Usage:       "spectrum name <id> <name>",
		MinArgs:     2,
		MaxArgs:     2,
		Run:         cmdSpectrumName,
	})
	r.MustRegister(&Command{
		Path:        "spectrum normalize",
		Level:       1,
		Description: "Set a spectrum's normalization factor",
		Usage:       "spectrum normalize <id> <factor>",
		MinArgs:     2,
		MaxArgs:     2,
		Run:         cmdSpectrumNormalize,
	})
	r.MustRegister(&Command{
		Path:        "spectrum info",
		Level:       1,
		Description: "Show details of spectra",
		Usage:       "spectrum info [ids]",
		MinArgs:     0,
		MaxArgs:     -1,
		Run:         cmdSpectrumInfo,
	})
	r.MustRegister(&Command{
		Path:        "spectrum watch",
		Level:       1,
		Description: "Watch spectrum source files for changes",
		Usage:       "spectrum watch <ids>|all|off",
		MinArgs:     1,
		MaxArgs:     -1,
		Run:         cmdSpectrumWatch,
	})
}

// =============================================================================
// LOADING
// =============================================================================

// LoadSpectra expands each file spec (glob plus optional 'format
// suffix) and loads every resolved path. A file that fails to read is
// a warning, never an error: the batch always finishes and the loaded
// ids are returned.
func LoadSpectra(ctx *Context, specs []string) []ident.ID {
	var loaded []ident.ID
	ctx.Session.LockUpdate()
	defer ctx.Session.UnlockUpdate()
	for _, spec := range specs {
		pattern, format := spectrum.SplitSpec(spec)
		pattern = util.ExpandUser(pattern)
		paths, err := filepath.Glob(pattern)
		if err != nil || len(paths) == 0 {
			ctx.warnf("Warning: no such file %s", pattern)
			continue
		}
		for _, path := range paths {
			sp, err := spectrum.FromFile(path, format)
			if err != nil {
				ctx.warnf("Warning: %v", err)
				continue
			}
			id := ctx.Session.Add(sp)
			if ctx.Watcher != nil {
				if err := ctx.Watcher.Add(path); err != nil {
					ctx.warnf("watch %s: %v", path, err)
				}
			}
			ctx.msgf("Loaded %s'%s into %s", path, displayFormat(format), id)
			loaded = append(loaded, id)
		}
	}
	return loaded
}

func displayFormat(format string) string {
	if format == "" {
		return "auto"
	}
	return format
}

func cmdSpectrumGet(ctx *Context, inv *Invocation) error {
	LoadSpectra(ctx, inv.Args)
	return nil
}

// =============================================================================
// ID HELPERS
// =============================================================================

// spectrumIDs resolves an id expression against the loaded spectra. An
// empty expression falls back to the active spectrum.
func spectrumIDs(ctx *Context, expr string, opts ...ident.Option) ([]ident.ID, error) {
	if strings.TrimSpace(expr) == "" {
		if id, ok := ctx.Session.Spectra.ActiveID(); ok {
			return []ident.ID{id}, nil
		}
		return nil, nil
	}
	ids, err := ident.ParseIDs(expr, ctx.Session.Spectra, opts...)
	if err != nil {
		return nil, Abortf("Invalid spectrum identifier: %v", err)
	}
	return ids, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func cmdSpectrumList(ctx *Context, inv *Invocation) error {
	verbose, _ := inv.Flags.GetBool("verbose")
	cols := []string{"id", "name", "bins", "counts"}
	if verbose {
		cols = append(cols, "cal", "source")
	}
	var rows []util.Row
	activeID, hasActive := ctx.Session.Spectra.ActiveID()
	ctx.Session.Spectra.Each(func(id ident.ID, sp *spectrum.Spectrum) {
		mark := ""
		if hasActive && id == activeID {
			mark = "*"
		}
		if ctx.Session.Spectra.IsVisible(id) {
			mark += "v"
		}
		row := util.Row{
			"id":     id.String() + mark,
			"name":   sp.Name,
			"bins":   sp.Hist.NBins(),
			"counts": util.FormatCount(sp.Hist.Sum(0, sp.Hist.NBins()-1)),
		}
		if verbose {
			row["cal"] = sp.Cal.String()
			row["source"] = sp.Path
		}
		rows = append(rows, row)
	})
	if len(rows) == 0 {
		ctx.msgf("no spectra loaded")
		return nil
	}
	t := util.NewTable(cols, rows)
	t.Style = tableStyle(ctx)
	ctx.msgf("%s", strings.TrimRight(t.String(), "\n"))
	return nil
}

func tableStyle(ctx *Context) string {
	if ctx.Options == nil {
		return "simple"
	}
	if s, err := ctx.Options.Str("table.format"); err == nil {
		return s
	}
	return "simple"
}

func cmdSpectrumDelete(ctx *Context, inv *Invocation) error {
	ids, err := spectrumIDs(ctx, inv.Rest(0))
	if err != nil {
		return err
	}
	paths := make(map[ident.ID]string, len(ids))
	for _, id := range ids {
		if sp, ok := ctx.Session.Get(id); ok {
			paths[id] = sp.Path
		}
	}
	res := ctx.Session.RemoveObjects(ids)
	for _, f := range res.Failed {
		ctx.warnf("Warning: there is no spectrum with id: %d", f.ID.Major)
	}
	if ctx.Watcher != nil {
		for _, id := range res.Done {
			if paths[id] != "" {
				ctx.Watcher.Remove(paths[id])
			}
		}
	}
	return nil
}

func cmdSpectrumActivate(ctx *Context, inv *Invocation) error {
	id, err := ident.Parse(inv.String(0))
	if err != nil {
		return Abortf("Invalid spectrum identifier: %v", err)
	}
	if err := ctx.Session.ActivateObject(id); err != nil {
		return Abortf("there is no spectrum with id: %d", id.Major)
	}
	return nil
}

func cmdSpectrumShow(ctx *Context, inv *Invocation) error {
	ids, err := spectrumIDs(ctx, inv.Rest(0))
	if err != nil {
		return err
	}
	ctx.Session.Spectra.ShowOnly(ids)
	return nil
}

func cmdSpectrumHide(ctx *Context, inv *Invocation) error {
	ids, err := spectrumIDs(ctx, inv.Rest(0))
	if err != nil {
		return err
	}
	ctx.Session.Spectra.Hide(ids)
	return nil
}

func cmdSpectrumUpdate(ctx *Context, inv *Invocation) error {
	expr := strings.TrimSpace(inv.Rest(0))
	r, err := ident.Resolve(expr, ctx.Session.Spectra, ident.WithKeywords("shown"))
	if err != nil {
		return Abortf("Invalid spectrum identifier: %v", err)
	}
	var res collection.BulkResult
	switch {
	case r.Keyword == "shown":
		res = ctx.Session.RefreshVisible()
	case expr == "" || strings.EqualFold(expr, "all"):
		res = ctx.Session.RefreshAll()
	default:
		res = ctx.Session.RefreshSpectra(r.IDs)
	}
	if !res.Ok() {
		ctx.warnf("Warning: %s", res.FailureSummary())
	}
	return nil
}

func cmdSpectrumWrite(ctx *Context, inv *Invocation) error {
	path, format := spectrum.SplitSpec(inv.String(0))
	if format == "" {
		format = "txt"
	}
	var sp *spectrum.Spectrum
	if len(inv.Args) > 1 {
		id, err := ident.Parse(inv.String(1))
		if err != nil {
			return Abortf("Invalid spectrum identifier: %v", err)
		}
		var ok bool
		sp, ok = ctx.Session.Get(id)
		if !ok {
			return Abortf("there is no spectrum with id: %d", id.Major)
		}
	} else {
		var ok bool
		sp, ok = ctx.Session.ActiveSpectrum()
		if !ok {
			return Abortf("No spectrum to work on")
		}
	}
	if err := sp.WriteTo(util.ExpandUser(path), format); err != nil {
		return err
	}
	ctx.msgf("wrote %s'%s", path, format)
	return nil
}

func cmdSpectrumName(ctx *Context, inv *Invocation) error {
	id, err := ident.Parse(inv.String(0))
	if err != nil {
		return Abortf("Invalid spectrum identifier: %v", err)
	}
	sp, ok := ctx.Session.Get(id)
	if !ok {
		return Abortf("there is no spectrum with id: %d", id.Major)
	}
	sp.Name = inv.String(1)
	ctx.msgf("spectrum %s renamed to %s", id, sp.Name)
	return nil
}

func cmdSpectrumNormalize(ctx *Context, inv *Invocation) error {
	id, err := ident.Parse(inv.String(0))
	if err != nil {
		return Abortf("Invalid spectrum identifier: %v", err)
	}
	norm, err := strconv.ParseFloat(inv.String(1), 64)
	if err != nil || norm <= 0 {
		return Abortf("invalid normalization factor %q", inv.String(1))
	}
	sp, ok := ctx.Session.Get(id)
	if !ok {
		return Abortf("there is no spectrum with id: %d", id.Major)
	}
	sp.Norm = norm
	return nil
}

func cmdSpectrumInfo(ctx *Context, inv *Invocation) error {
	ids, err := spectrumIDs(ctx, inv.Rest(0))
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return Abortf("No spectrum to work on")
	}
	var parts []string
	for _, id := range ids {
		sp, ok := ctx.Session.Get(id)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("spectrum %s:\n%s", id, strings.TrimRight(sp.Info(), "\n")))
	}
	ctx.msgf("%s", strings.Join(parts, "\n"))
	return nil
}

func cmdSpectrumWatch(ctx *Context, inv *Invocation) error {
	if ctx.Watcher == nil {
		return Abortf("file watching is disabled")
	}
	expr := strings.TrimSpace(inv.Rest(0))
	if strings.EqualFold(expr, "off") {
		ctx.Session.Spectra.Each(func(_ ident.ID, sp *spectrum.Spectrum) {
			if sp.Path != "" {
				ctx.Watcher.Remove(sp.Path)
			}
		})
		ctx.msgf("stopped watching")
		_ = ctx.Options.Set("spec.update.watch", "false")
		return nil
	}
	ids, err := spectrumIDs(ctx, expr)
	if err != nil {
		return err
	}
	n := 0
	for _, id := range ids {
		sp, ok := ctx.Session.Get(id)
		if !ok || sp.Path == "" {
			continue
		}
		if err := ctx.Watcher.Add(sp.Path); err != nil {
			ctx.warnf("watch %s: %v", sp.Path, err)
			continue
		}
		n++
	}
	if n > 0 {
		// Asking to watch implies the global toggle.
		_ = ctx.Options.Set("spec.update.watch", "true")
	}
	ctx.msgf("watching %d file(s)", n)
	return nil
}
