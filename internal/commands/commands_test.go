// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/specterm/internal/config"
	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/session"
)

// recorder collects messages so tests can assert on user-facing output.
type recorder struct {
	msgs  []string
	warns []string
	errs  []string
}

func (r *recorder) Msg(format string, args ...any)   { r.msgs = append(r.msgs, fmt.Sprintf(format, args...)) }
func (r *recorder) Warn(format string, args ...any)  { r.warns = append(r.warns, fmt.Sprintf(format, args...)) }
func (r *recorder) Error(format string, args ...any) { r.errs = append(r.errs, fmt.Sprintf(format, args...)) }

func (r *recorder) all() string {
	return strings.Join(append(append(append([]string(nil), r.msgs...), r.warns...), r.errs...), "\n")
}

func testContext(t *testing.T) (*Context, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts := options.NewRegistry()
	sess := session.New(opts, rec)
	reg := NewRegistry()
	RegisterConfigCommands(reg)
	RegisterSpectrumCommands(reg)
	RegisterCalibrationCommands(reg)
	RegisterFitCommands(reg)
	RegisterMiscCommands(reg)
	return &Context{
		Session:  sess,
		Options:  opts,
		Registry: reg,
		Msg:      rec,
	}, rec
}

// writeSpectrumFile writes a txt spectrum with a Gaussian peak at
// channel 50 on a flat background.
func writeSpectrumFile(t *testing.T, name string) string {
	t.Helper()
	var b strings.Builder
	for ch := 0; ch < 100; ch++ {
		d := (float64(ch) - 50) / 3
		fmt.Fprintf(&b, "%g\n", 10+130*math.Exp(-d*d/2))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// =============================================================================
// TOKENIZER
// =============================================================================

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"spectrum get a.txt", []string{"spectrum", "get", "a.txt"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`config set "ui.theme" 'dark mode'`, []string{"config", "set", "ui.theme", "dark mode"}},
		{`a\ b c`, []string{"a b", "c"}},
		{`say "unterminated`, []string{"say", "unterminated"}},
		{`empty ""`, []string{"empty", ""}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tokenize(tt.in), "input %q", tt.in)
	}
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestAbbreviatedResolution(t *testing.T) {
	ctx, _ := testContext(t)

	cmd, rest, err := ctx.Registry.find(Tokenize("sp g foo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "spectrum get", cmd.Path)
	assert.Equal(t, []string{"foo.txt"}, rest)

	cmd, _, err = ctx.Registry.find(Tokenize("cal p s 1 0 0.5"))
	require.NoError(t, err)
	assert.Equal(t, "calibration position set", cmd.Path)
}

func TestBareFitPrefersExecute(t *testing.T) {
	ctx, _ := testContext(t)

	// "fit" names an inner node; the level-0 command of its subtree
	// wins without an ambiguity error.
	cmd, rest, err := ctx.Registry.find([]string{"fit"})
	require.NoError(t, err)
	assert.Equal(t, "fit execute", cmd.Path)
	assert.Empty(t, rest)
}

func TestAmbiguousAbbreviation(t *testing.T) {
	ctx, _ := testContext(t)

	// "fit s" could be show, store... and none outranks the others.
	_, _, err := ctx.Registry.find([]string{"fit", "s"})
	var ambErr *AmbiguousCommandError
	require.ErrorAs(t, err, &ambErr)
	assert.Contains(t, ambErr.Candidates, "fit show")
	assert.Contains(t, ambErr.Candidates, "fit store")
}

func TestUnknownCommand(t *testing.T) {
	ctx, _ := testContext(t)
	_, _, err := ctx.Registry.find([]string{"bogus"})
	var unkErr *UnknownCommandError
	require.ErrorAs(t, err, &unkErr)
}

func TestExtraSegmentsBecomeArgs(t *testing.T) {
	ctx, _ := testContext(t)
	cmd, rest, err := ctx.Registry.find(Tokenize("spectrum get a.txt b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "spectrum get", cmd.Path)
	assert.Equal(t, []string{"a.txt", "b.txt"}, rest)
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestDispatchBlankAndComment(t *testing.T) {
	ctx, _ := testContext(t)
	require.NoError(t, ctx.Registry.Dispatch(ctx, ""))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "   "))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "# a comment"))
}

func TestDispatchArgumentError(t *testing.T) {
	ctx, _ := testContext(t)
	err := ctx.Registry.Dispatch(ctx, "config set ui.theme")
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "config set", argErr.Path)
}

func TestDispatchPrefixesHandlerErrors(t *testing.T) {
	ctx, _ := testContext(t)
	path := writeSpectrumFile(t, "a.txt")
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+path))

	out := filepath.Join(t.TempDir(), "out.spec")
	err := ctx.Registry.Dispatch(ctx, "spectrum write "+out+"'bogus")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "spectrum write:"), err.Error())
}

func TestDispatchAbortErrorVerbatim(t *testing.T) {
	ctx, _ := testContext(t)
	err := ctx.Registry.Dispatch(ctx, "config set no.such.option 1")
	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.NotContains(t, abort.Error(), "config set:")
}

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func TestConfigWriteSavesOptions(t *testing.T) {
	ctx, rec := testContext(t)
	ctx.Config = config.Default()
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, ctx.Registry.Dispatch(ctx, "config set fit.background.degree 2"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "config write -f "+path))
	assert.Contains(t, rec.all(), "wrote "+path)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2", saved.Options["fit.background.degree"])
}

func TestConfigSetShowReset(t *testing.T) {
	ctx, rec := testContext(t)

	require.NoError(t, ctx.Registry.Dispatch(ctx, "config set fit.background.degree 2"))
	v, err := ctx.Options.Int("fit.background.degree")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	require.NoError(t, ctx.Registry.Dispatch(ctx, "config show fit.background.degree"))
	assert.Contains(t, rec.all(), "fit.background.degree: 2")

	require.NoError(t, ctx.Registry.Dispatch(ctx, "config reset fit.background.degree"))
	v, err = ctx.Options.Int("fit.background.degree")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestConfigSetInvalidValue(t *testing.T) {
	ctx, _ := testContext(t)
	err := ctx.Registry.Dispatch(ctx, "config set fit.background.degree banana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid value (banana) for option fit.background.degree")
}

// =============================================================================
// SPECTRUM COMMANDS
// =============================================================================

func TestSpectrumLoadListDelete(t *testing.T) {
	ctx, rec := testContext(t)
	path := writeSpectrumFile(t, "co60.txt")

	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+path))
	require.Len(t, ctx.Session.Spectra.IDs(), 1)
	assert.Contains(t, rec.all(), "Loaded "+path+"'auto into 0")

	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum list"))

	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum delete 0"))
	assert.Empty(t, ctx.Session.Spectra.IDs())
}

func TestSpectrumGetMissingFileWarns(t *testing.T) {
	ctx, rec := testContext(t)
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get /no/such/file.txt"))
	assert.Contains(t, rec.all(), "Warning: no such file /no/such/file.txt")
	assert.Empty(t, ctx.Session.Spectra.IDs())
}

func TestSpectrumActivateShowHide(t *testing.T) {
	ctx, _ := testContext(t)
	a := writeSpectrumFile(t, "a.txt")
	b := writeSpectrumFile(t, "b.txt")
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+a+" "+b))
	require.Len(t, ctx.Session.Spectra.IDs(), 2)

	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum activate 0"))
	id, ok := ctx.Session.Spectra.ActiveID()
	require.True(t, ok)
	assert.Equal(t, 0, id.Major)

	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum hide all"))
	assert.Empty(t, ctx.Session.Spectra.VisibleIDs())
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum show 1"))
	assert.Len(t, ctx.Session.Spectra.VisibleIDs(), 1)
}

// =============================================================================
// CALIBRATION COMMANDS
// =============================================================================

func TestCalibrationPositionSet(t *testing.T) {
	ctx, rec := testContext(t)
	path := writeSpectrumFile(t, "a.txt")
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+path))

	require.NoError(t, ctx.Registry.Dispatch(ctx, "calibration position set 1 0 0.5"))
	assert.Contains(t, rec.all(), "calibrated spectrum with id 0")

	sp, ok := ctx.Session.ActiveSpectrum()
	require.True(t, ok)
	assert.InDelta(t, 50.0, sp.E(100), 1e-9)

	require.NoError(t, ctx.Registry.Dispatch(ctx, "calibration position unset"))
	sp, _ = ctx.Session.ActiveSpectrum()
	assert.True(t, sp.Cal.IsIdentity())
}

// =============================================================================
// FIT COMMANDS
// =============================================================================

func TestFitWorkflowThroughCommands(t *testing.T) {
	ctx, rec := testContext(t)
	path := writeSpectrumFile(t, "co60.txt")
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+path))

	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker region set 30"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker region set 70"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker peak set 50"))

	// Bare abbreviated execute, then store.
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit"))
	assert.True(t, ctx.Session.WorkFit().HasResults())

	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit store"))
	sp, _ := ctx.Session.ActiveSpectrum()
	require.Len(t, sp.Fits.IDs(), 1)
	assert.Contains(t, rec.all(), "Stored fit 0 in spectrum co60.txt")

	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit list"))
	assert.Contains(t, rec.all(), "pos")

	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit delete 0"))
	assert.Empty(t, sp.Fits.IDs())
}

func TestFitDeleteCollapsesPeakIDs(t *testing.T) {
	ctx, rec := testContext(t)
	path := writeSpectrumFile(t, "co60.txt")
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+path))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker region set 30"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker region set 70"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker peak set 50"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit execute -S"))

	sp, _ := ctx.Session.ActiveSpectrum()
	require.Len(t, sp.Fits.IDs(), 1)

	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit delete 0.1"))
	assert.Contains(t, rec.all(), "removing whole fit with id 0")
	assert.Empty(t, sp.Fits.IDs())
}

func TestFitParameterStatus(t *testing.T) {
	ctx, rec := testContext(t)
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit parameter width hold"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit parameter status"))
	assert.Contains(t, rec.all(), "width")

	err := ctx.Registry.Dispatch(ctx, "fit parameter bogus free")
	require.Error(t, err)
}

func TestFitExecuteNoSpectrum(t *testing.T) {
	ctx, rec := testContext(t)
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit execute"))
	assert.Contains(t, rec.all(), "No spectrum to work on")
}

// =============================================================================
// MISC COMMANDS
// =============================================================================

func TestExecScript(t *testing.T) {
	ctx, _ := testContext(t)
	spec := writeSpectrumFile(t, "a.txt")
	script := filepath.Join(t.TempDir(), "setup.spt")
	content := "# load and calibrate\nspectrum get " + spec + "\ncalibration position set 1 0 0.5\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0o644))

	require.NoError(t, ctx.Registry.Dispatch(ctx, "exec "+script))
	sp, ok := ctx.Session.ActiveSpectrum()
	require.True(t, ok)
	assert.False(t, sp.Cal.IsIdentity())
}

func TestExecScriptStopsOnError(t *testing.T) {
	ctx, _ := testContext(t)
	script := filepath.Join(t.TempDir(), "bad.spt")
	require.NoError(t, os.WriteFile(script, []byte("bogus command\npwd\n"), 0o644))

	err := ctx.Registry.Dispatch(ctx, "exec "+script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.spt:1:")
}

func TestHelpListsCommands(t *testing.T) {
	ctx, rec := testContext(t)
	require.NoError(t, ctx.Registry.Dispatch(ctx, "help"))
	out := rec.all()
	assert.Contains(t, out, "spectrum get")
	assert.Contains(t, out, "fit execute")

	require.NoError(t, ctx.Registry.Dispatch(ctx, "help fit store"))
	assert.Contains(t, rec.all(), "fit store [id]")
}

func TestSpectrumUpdateKeywords(t *testing.T) {
	ctx, _ := testContext(t)
	path := writeSpectrumFile(t, "co60.txt")
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+path))

	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum update shown"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum update all"))

	err := ctx.Registry.Dispatch(ctx, "spectrum update bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid spectrum identifier")
}

func TestFitMarkerLongKindNames(t *testing.T) {
	ctx, rec := testContext(t)
	path := writeSpectrumFile(t, "co60.txt")
	require.NoError(t, ctx.Registry.Dispatch(ctx, "spectrum get "+path))

	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker background set 20"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker background set 80"))
	require.NoError(t, ctx.Registry.Dispatch(ctx, "fit marker background delete 20"))
	assert.Empty(t, rec.errs)
}

func TestGuideShowsWalkthrough(t *testing.T) {
	ctx, rec := testContext(t)
	require.NoError(t, ctx.Registry.Dispatch(ctx, "guide"))
	out := rec.all()
	assert.Contains(t, out, "Getting started")
	assert.Contains(t, out, "fit store")
}

func TestQuitCallsHook(t *testing.T) {
	ctx, _ := testContext(t)
	called := false
	ctx.Quit = func() { called = true }
	require.NoError(t, ctx.Registry.Dispatch(ctx, "exit"))
	assert.True(t, called)
}
