// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jeranaias/specterm/internal/fit"
	"github.com/jeranaias/specterm/internal/fitlist"
	"github.com/jeranaias/specterm/internal/ident"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/util"
)

// =============================================================================
// FIT COMMANDS
// =============================================================================

// RegisterFitCommands registers the peak-fitting surface around the
// session's work fit and the per-spectrum stored fits.
func RegisterFitCommands(r *Registry) {
	r.MustRegister(&Command{
		Path:        "fit execute",
		Level:       0,
		Description: "Execute the work fit, or refit stored fits",
		Usage:       "fit execute [-s specs] [-b] [-q pos] [-S] [fitids]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit execute", pflag.ContinueOnError)
			fs.StringP("spectrum", "s", "", "spectra to fit (default: active)")
			fs.BoolP("background", "b", false, "fit the background only")
			fs.Float64P("quickfit", "q", 0, "quick fit at the given position")
			fs.BoolP("store", "S", false, "store the fit after executing")
			return fs
		},
		MinArgs: 0,
		MaxArgs: -1,
		Run:     cmdFitExecute,
	})
	r.MustRegister(&Command{
		Path:        "fit marker",
		Level:       1,
		Description: "Set or delete a fit marker",
		Usage:       "fit marker <background|region|peak> <set|delete> <position>",
		MinArgs:     3,
		MaxArgs:     3,
		Run:         cmdFitMarker,
		Complete:    completeMarkerArgs,
	})
	r.MustRegister(&Command{
		Path:        "fit clear",
		Level:       1,
		Description: "Discard the work fit",
		Usage:       "fit clear [-b]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit clear", pflag.ContinueOnError)
			fs.BoolP("background", "b", false, "clear only the background part")
			return fs
		},
		MinArgs: 0,
		MaxArgs: 0,
		Run:     cmdFitClear,
	})
	r.MustRegister(&Command{
		Path:        "fit store",
		Level:       1,
		Description: "Store the work fit in the active spectrum",
		Usage:       "fit store [id]",
		MinArgs:     0,
		MaxArgs:     1,
		Run:         cmdFitStore,
	})
	r.MustRegister(&Command{
		Path:        "fit activate",
		Level:       1,
		Description: "Load a stored fit into the work fit",
		Usage:       "fit activate <id|none>",
		MinArgs:     1,
		MaxArgs:     1,
		Run:         cmdFitActivate,
	})
	r.MustRegister(&Command{
		Path:        "fit delete",
		Level:       1,
		Description: "Delete stored fits",
		Usage:       "fit delete [-s specs] <fitids>",
		Flags:       specIDFlags("fit delete"),
		MinArgs:     1,
		MaxArgs:     -1,
		Run:         cmdFitDelete,
	})
	r.MustRegister(&Command{
		Path:        "fit show",
		Level:       1,
		Description: "Show stored fits",
		Usage:       "fit show [-s specs] [-v] <fitids>|all|none",
		Flags: func() *pflag.FlagSet {
			fs := specIDFlags("fit show")()
			fs.BoolP("adjust-viewport", "v", false, "bring the shown fits into view")
			return fs
		},
		MinArgs: 1,
		MaxArgs: -1,
		Run:     cmdFitShow,
	})
	r.MustRegister(&Command{
		Path:        "fit hide",
		Level:       1,
		Description: "Hide stored fits",
		Usage:       "fit hide [-s specs] <fitids>|all",
		Flags:       specIDFlags("fit hide"),
		MinArgs:     1,
		MaxArgs:     -1,
		Run:         cmdFitHide,
	})
	r.MustRegister(&Command{
		Path:        "fit show decomposition",
		Level:       1,
		Description: "Show the peak/background decomposition of fits",
		Usage:       "fit show decomposition [fitids]",
		MinArgs:     0,
		MaxArgs:     -1,
		Run: func(ctx *Context, inv *Invocation) error {
			return setDecomposition(ctx, inv, true)
		},
	})
	r.MustRegister(&Command{
		Path:        "fit hide decomposition",
		Level:       1,
		Description: "Hide the peak/background decomposition of fits",
		Usage:       "fit hide decomposition [fitids]",
		MinArgs:     0,
		MaxArgs:     -1,
		Run: func(ctx *Context, inv *Invocation) error {
			return setDecomposition(ctx, inv, false)
		},
	})
	r.MustRegister(&Command{
		Path:        "fit focus",
		Level:       1,
		Description: "Bring fits into view",
		Usage:       "fit focus [fitids]",
		MinArgs:     0,
		MaxArgs:     -1,
		Run:         cmdFitFocus,
	})
	r.MustRegister(&Command{
		Path:        "fit list",
		Level:       1,
		Description: "List fit results",
		Usage:       "fit list [-v] [-k key] [-r] [-s specs] [-f fitids]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit list", pflag.ContinueOnError)
			fs.StringP("spectrum", "s", "", "spectra to list (default: active)")
			fs.StringP("fit", "f", "", "fits to list (default: all stored)")
			fs.StringP("key-sort", "k", "", "sort by column")
			fs.BoolP("reverse-sort", "r", false, "reverse the sort order")
			fs.BoolP("visible", "v", false, "list only the visible fits")
			return fs
		},
		MinArgs: 0,
		MaxArgs: 0,
		Run:     cmdFitList,
	})
	r.MustRegister(&Command{
		Path:        "fit parameter",
		Level:       1,
		Description: "Show or change fitter parameter statuses",
		Usage:       "fit parameter <status|reset|name> [value] [-f fitids]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit parameter", pflag.ContinueOnError)
			fs.StringP("fit", "f", "", "stored fits to apply to as well")
			return fs
		},
		MinArgs:  1,
		MaxArgs:  2,
		Run:      cmdFitParameter,
		Complete: completeParamArgs,
	})
	r.MustRegister(&Command{
		Path:        "fit function peak activate",
		Level:       1,
		Description: "Select the peak model",
		Usage:       "fit function peak activate <model> [-f fitids]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit function peak activate", pflag.ContinueOnError)
			fs.StringP("fit", "f", "", "stored fits to apply to as well")
			return fs
		},
		MinArgs: 1,
		MaxArgs: 1,
		Run:     cmdFitPeakModel,
		Complete: func(*Context, string) []string {
			return fit.Models()
		},
	})
	r.MustRegister(&Command{
		Path:        "fit history",
		Level:       1,
		Description: "List journaled fits from earlier sessions",
		Usage:       "fit history [-n count] [name-pattern]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit history", pflag.ContinueOnError)
			fs.IntP("count", "n", 20, "maximum records to list")
			return fs
		},
		MinArgs: 0,
		MaxArgs: 1,
		Run:     cmdFitHistory,
	})
	r.MustRegister(&Command{
		Path:        "fit write",
		Level:       1,
		Description: "Write stored fits to a fitlist file",
		Usage:       "fit write [file] [-F]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit write", pflag.ContinueOnError)
			fs.BoolP("force", "F", false, "overwrite an existing file")
			return fs
		},
		MinArgs:  0,
		MaxArgs:  1,
		Run:      cmdFitWrite,
		FileArgs: true,
	})
	r.MustRegister(&Command{
		Path:        "fit read",
		Level:       1,
		Description: "Restore fits from a fitlist file",
		Usage:       "fit read <file> [--show]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fit read", pflag.ContinueOnError)
			fs.Bool("show", false, "display the file instead of applying it")
			return fs
		},
		MinArgs:  1,
		MaxArgs:  1,
		Run:      cmdFitRead,
		FileArgs: true,
	})
	r.MustRegister(&Command{
		Path:        "integral",
		Level:       1,
		Description: "Integrate the active spectrum between the region markers",
		Usage:       "integral",
		MinArgs:     0,
		MaxArgs:     0,
		Run: func(ctx *Context, _ *Invocation) error {
			ctx.Session.ExecuteIntegral()
			return nil
		},
	})
}

// =============================================================================
// EXECUTE
// =============================================================================

func cmdFitExecute(ctx *Context, inv *Invocation) error {
	specExpr, _ := inv.Flags.GetString("spectrum")
	bgOnly, _ := inv.Flags.GetBool("background")
	store, _ := inv.Flags.GetBool("store")
	quickfit := inv.Flags.Changed("quickfit")
	qpos, _ := inv.Flags.GetFloat64("quickfit")

	specIDs, err := spectrumIDs(ctx, specExpr)
	if err != nil {
		return err
	}
	if len(specIDs) == 0 {
		ctx.warnf("No spectrum to work on")
		return nil
	}

	prevActive, hadActive := ctx.Session.Spectra.ActiveID()
	ctx.Session.LockUpdate()
	defer ctx.Session.UnlockUpdate()

	fitExpr := inv.Rest(0)
	for _, sid := range specIDs {
		if err := ctx.Session.ActivateObject(sid); err != nil {
			ctx.warnf("there is no spectrum with id: %d", sid.Major)
			continue
		}
		sp, _ := ctx.Session.Get(sid)

		if strings.TrimSpace(fitExpr) == "" {
			if quickfit {
				ctx.Session.QuickFit(qpos)
			} else {
				ctx.Session.ExecuteFit(!bgOnly)
			}
			if store {
				ctx.Session.StoreFit()
			}
			continue
		}

		fitIDs, err := ident.ParseIDs(fitExpr, sp.Fits)
		if err != nil {
			return Abortf("Invalid fit identifier: %v", err)
		}
		for _, fid := range fitIDs {
			ctx.msgf("Executing fit %s in spectrum %s", fid, sid)
			if err := ctx.Session.ExecuteRefit(sid, fid.Root(), !bgOnly); err != nil {
				ctx.warnf("Warning: fit %s: %v", fid, err)
			}
		}
	}

	if hadActive {
		_ = ctx.Session.ActivateObject(prevActive)
	}
	return nil
}

// =============================================================================
// MARKERS, CLEAR, STORE, ACTIVATE
// =============================================================================

func completeMarkerArgs(_ *Context, _ string) []string {
	return []string{"background", "region", "peak"}
}

func cmdFitMarker(ctx *Context, inv *Invocation) error {
	kind := inv.String(0)
	action := inv.String(1)
	pos, err := strconv.ParseFloat(inv.String(2), 64)
	if err != nil {
		return Abortf("invalid position %q", inv.String(2))
	}
	switch {
	case strings.HasPrefix("set", action) && action != "":
		ctx.Session.SetMarker(kind, pos)
	case strings.HasPrefix("delete", action) && action != "":
		ctx.Session.RemoveMarker(kind, pos)
	default:
		return Abortf("invalid action %q (expected set or delete)", action)
	}
	return nil
}

func cmdFitClear(ctx *Context, inv *Invocation) error {
	bgOnly, _ := inv.Flags.GetBool("background")
	ctx.Session.ClearFit(bgOnly)
	return nil
}

func cmdFitStore(ctx *Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		ctx.Session.StoreFit()
		return nil
	}
	id, err := ident.Parse(inv.String(0))
	if err != nil {
		return Abortf("Invalid fit identifier: %v", err)
	}
	ctx.Session.StoreFitAs(id)
	return nil
}

func cmdFitActivate(ctx *Context, inv *Invocation) error {
	arg := inv.String(0)
	if strings.EqualFold(arg, "none") {
		ctx.Session.ActivateFit(nil)
		return nil
	}
	id, err := ident.Parse(arg)
	if err != nil {
		return Abortf("Invalid fit identifier: %v", err)
	}
	ctx.Session.ActivateFit(&id)
	return nil
}

// =============================================================================
// DELETE / SHOW / HIDE
// =============================================================================

// fitTargets resolves the "-s" selector to spectra carrying fits.
func fitTargets(ctx *Context, inv *Invocation) ([]ident.ID, error) {
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

func cmdFitDelete(ctx *Context, inv *Invocation) error {
	specIDs, err := fitTargets(ctx, inv)
	if err != nil {
		return err
	}
	for _, sid := range specIDs {
		sp, ok := ctx.Session.Get(sid)
		if !ok {
			continue
		}
		requested, err := ident.ParseIDs(inv.Rest(0), sp.Fits, ident.KeepMissing())
		if err != nil {
			return Abortf("Invalid fit identifier: %v", err)
		}

		// Single peaks cannot be deleted: a minor id collapses to its
		// whole fit, each fit at most once.
		seen := make(map[int]bool)
		var ids []ident.ID
		for _, id := range requested {
			if id.HasMinor() {
				ctx.warnf("It is not possible to remove single peaks, removing whole fit with id %d instead.", id.Major)
			}
			if seen[id.Major] {
				continue
			}
			seen[id.Major] = true
			ids = append(ids, id.Root())
		}

		res := ctx.Session.DeleteFits(sid, ids)
		for _, f := range res.Failed {
			ctx.warnf("there is no fit with id %s", f.ID)
		}
	}
	return nil
}

func cmdFitShow(ctx *Context, inv *Invocation) error {
	adjust, _ := inv.Flags.GetBool("adjust-viewport")
	specIDs, err := fitTargets(ctx, inv)
	if err != nil {
		return err
	}
	for _, sid := range specIDs {
		sp, ok := ctx.Session.Get(sid)
		if !ok {
			continue
		}
		ids, err := ident.ParseIDs(inv.Rest(0), sp.Fits)
		if err != nil {
			return Abortf("Invalid fit identifier: %v", err)
		}
		sp.Fits.ShowOnly(ids)
		if adjust && len(ids) > 0 {
			ctx.Session.FocusFits(ids)
		}
	}
	return nil
}

func cmdFitHide(ctx *Context, inv *Invocation) error {
	specIDs, err := fitTargets(ctx, inv)
	if err != nil {
		return err
	}
	for _, sid := range specIDs {
		sp, ok := ctx.Session.Get(sid)
		if !ok {
			continue
		}
		ids, err := ident.ParseIDs(inv.Rest(0), sp.Fits)
		if err != nil {
			return Abortf("Invalid fit identifier: %v", err)
		}
		sp.Fits.Hide(ids)
	}
	return nil
}

func setDecomposition(ctx *Context, inv *Invocation, enable bool) error {
	expr := strings.TrimSpace(inv.Rest(0))
	if expr == "" {
		ctx.Session.ShowDecomposition(enable, nil)
		return nil
	}
	sp, ok := ctx.Session.ActiveSpectrum()
	if !ok {
		return Abortf("No active spectrum")
	}
	ids, err := ident.ParseIDs(expr, sp.Fits)
	if err != nil {
		return Abortf("Invalid fit identifier: %v", err)
	}
	ctx.Session.ShowDecomposition(enable, ids)
	return nil
}

func cmdFitFocus(ctx *Context, inv *Invocation) error {
	expr := strings.TrimSpace(inv.Rest(0))
	if expr == "" {
		ctx.Session.FocusFits(nil)
		return nil
	}
	sp, ok := ctx.Session.ActiveSpectrum()
	if !ok {
		return Abortf("No active spectrum")
	}
	ids, err := ident.ParseIDs(expr, sp.Fits)
	if err != nil {
		return Abortf("Invalid fit identifier: %v", err)
	}
	ctx.Session.FocusFits(ids)
	return nil
}

// =============================================================================
// LIST
// =============================================================================

func cmdFitList(ctx *Context, inv *Invocation) error {
	visibleOnly, _ := inv.Flags.GetBool("visible")
	reverse, _ := inv.Flags.GetBool("reverse-sort")
	sortKey, _ := inv.Flags.GetString("key-sort")
	fitExpr, _ := inv.Flags.GetString("fit")
	if sortKey == "" {
		if k, err := ctx.Options.Str("fit.list.sort_key"); err == nil {
			sortKey = k
		}
	}

	specIDs, err := fitTargets(ctx, inv)
	if err != nil {
		return err
	}

	activeSpec, _ := ctx.Session.Spectra.ActiveID()
	var workRows, rows []util.Row
	var columns []string
	addParams := func(params []string) {
		for _, p := range params {
			found := false
			for _, c := range columns {
				if c == p {
					found = true
					break
				}
			}
			if !found {
				columns = append(columns, p)
			}
		}
	}

	for _, sid := range specIDs {
		sp, ok := ctx.Session.Get(sid)
		if !ok {
			continue
		}

		// The work fit belongs to the active spectrum and is always
		// listed first, under the id "w".
		if sid == activeSpec && ctx.Session.WorkFit().HasResults() {
			wr, params := ctx.Session.WorkFit().ExtractParams(ident.New(0))
			addParams(params)
			for _, row := range wr {
				row["id"] = strings.Replace(row["id"].(string), "0", "w", 1)
				row["spec"] = sid.String()
				workRows = append(workRows, row)
			}
		}

		fitIDs := sp.Fits.IDs()
		if strings.TrimSpace(fitExpr) != "" {
			fitIDs, err = ident.ParseIDs(fitExpr, sp.Fits)
			if err != nil {
				return Abortf("Invalid fit identifier: %v", err)
			}
		}
		for _, fid := range fitIDs {
			if visibleOnly && !sp.Fits.IsVisible(fid) {
				continue
			}
			f, ok := sp.Fits.Get(fid)
			if !ok {
				continue
			}
			fr, params := f.ExtractParams(fid)
			addParams(params)
			for _, row := range fr {
				row["spec"] = sid.String()
				rows = append(rows, row)
			}
		}
	}

	if len(workRows) == 0 && len(rows) == 0 {
		ctx.msgf("no fits")
		return nil
	}

	cols := append([]string{"id", "spec"}, append(columns, "chi")...)
	t := util.NewTable(cols, rows)
	t.Style = tableStyle(ctx)
	if err := t.SortBy(sortKey, reverse); err != nil {
		return Abortf("%v", err)
	}
	t.Rows = append(workRows, t.Rows...)
	ctx.msgf("%s", strings.TrimRight(t.String(), "\n"))
	return nil
}

// =============================================================================
// PARAMETERS AND MODELS
// =============================================================================

func completeParamArgs(ctx *Context, _ string) []string {
	words := []string{"status", "reset"}
	if ctx.Session != nil {
		words = append(words, fit.ModelParams(ctx.Session.WorkFit().Fitter.Model)...)
	}
	return words
}

// applyToStoredFits runs fn over the stored fits named by the -f flag,
// best-effort: individual failures are silently skipped, matching the
// loud-work-fit / quiet-bulk policy.
func applyToStoredFits(ctx *Context, inv *Invocation, fn func(*fit.Fit) error) {
	expr, _ := inv.Flags.GetString("fit")
	if strings.TrimSpace(expr) == "" {
		return
	}
	sp, ok := ctx.Session.ActiveSpectrum()
	if !ok {
		return
	}
	ids, err := ident.ParseIDs(expr, sp.Fits)
	if err != nil {
		ctx.warnf("Invalid fit identifier: %v", err)
		return
	}
	ctx.Session.LockUpdate()
	defer ctx.Session.UnlockUpdate()
	for _, id := range ids {
		f, ok := sp.Fits.Get(id)
		if !ok {
			continue
		}
		if err := fn(f); err != nil {
			continue
		}
		_ = f.Refresh(sp.Hist, sp.Cal)
	}
}

func cmdFitParameter(ctx *Context, inv *Invocation) error {
	workFitter := ctx.Session.WorkFit().Fitter
	switch arg := inv.String(0); strings.ToLower(arg) {
	case "status":
		ctx.msgf("%s", strings.TrimRight(workFitter.StatusString(), "\n"))
		return nil
	case "reset":
		workFitter.ResetParamStatus()
		applyToStoredFits(ctx, inv, func(f *fit.Fit) error {
			f.Fitter.ResetParamStatus()
			return nil
		})
		return nil
	default:
		if len(inv.Args) < 2 {
			return Abortf("parameter %s needs a value (free, hold or a number)", arg)
		}
		value := inv.String(1)
		// The work fit fails loudly; the stored-fit bulk apply is
		// best-effort and never rolls the work fit back.
		if err := workFitter.SetParameter(arg, value); err != nil {
			return Abortf("%v", err)
		}
		applyToStoredFits(ctx, inv, func(f *fit.Fit) error {
			return f.Fitter.SetParameter(arg, value)
		})
		return nil
	}
}

func cmdFitPeakModel(ctx *Context, inv *Invocation) error {
	model := inv.String(0)
	if err := ctx.Session.WorkFit().Fitter.SetPeakModel(model); err != nil {
		return Abortf("%v", err)
	}
	applyToStoredFits(ctx, inv, func(f *fit.Fit) error {
		return f.Fitter.SetPeakModel(model)
	})
	ctx.msgf("peak model: %s", model)
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

func cmdFitHistory(ctx *Context, inv *Invocation) error {
	journal := ctx.Session.Journal()
	if journal == nil {
		return Abortf("fit history is disabled")
	}
	limit, _ := inv.Flags.GetInt("count")
	entries, err := journal.Recent(limit, inv.String(0))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ctx.msgf("no journaled fits")
		return nil
	}
	rows := make([]util.Row, len(entries))
	for i, e := range entries {
		rows[i] = util.Row{
			"stored":   e.StoredAt.Format("2006-01-02 15:04"),
			"spectrum": e.Spectrum,
			"fit":      e.FitID,
			"model":    e.Model,
			"bg":       e.BgDegree,
			"peaks":    e.NPeaks,
			"params":   e.Params,
		}
	}
	t := util.NewTable([]string{"stored", "spectrum", "fit", "model", "bg", "peaks", "params"}, rows)
	t.Style = tableStyle(ctx)
	ctx.msgf("%s", strings.TrimRight(t.String(), "\n"))
	return nil
}

// =============================================================================
// FITLIST FILES
// =============================================================================

func cmdFitWrite(ctx *Context, inv *Invocation) error {
	path := inv.String(0)
	if path == "" {
		sp, ok := ctx.Session.ActiveSpectrum()
		if !ok {
			return Abortf("No spectrum to work on")
		}
		path = fitlist.DefaultPath(sp.Name)
	}
	path = util.ExpandUser(path)

	force, _ := inv.Flags.GetBool("force")
	if !force {
		if _, err := os.Stat(path); err == nil {
			return Abortf("%s exists, use -F to overwrite", path)
		}
	}

	var spectra []*spectrum.Spectrum
	ctx.Session.Spectra.Each(func(_ ident.ID, sp *spectrum.Spectrum) {
		spectra = append(spectra, sp)
	})
	if err := fitlist.Write(path, spectra); err != nil {
		return err
	}
	ctx.msgf("wrote %s", path)
	return nil
}

func cmdFitRead(ctx *Context, inv *Invocation) error {
	path := util.ExpandUser(inv.String(0))
	if show, _ := inv.Flags.GetBool("show"); show {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text := string(data)
		if ctx.Highlight != nil {
			text = ctx.Highlight(text, "yaml")
		}
		ctx.msgf("%s", strings.TrimRight(text, "\n"))
		return nil
	}

	file, err := fitlist.Read(path)
	if err != nil {
		return err
	}
	ctx.Session.LockUpdate()
	res := fitlist.Apply(file, ctx.Session.FindByName)
	ctx.Session.UnlockUpdate()
	for _, skip := range res.Skipped {
		ctx.warnf("Warning: %s", skip)
	}
	ctx.msgf("restored %d fit(s) from %s", res.Restored, path)
	return nil
}
