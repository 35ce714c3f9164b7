// specterm - interactive nuclear spectrum analysis in the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/jeranaias/specterm/internal/cli"
	"github.com/jeranaias/specterm/internal/commands"
	"github.com/jeranaias/specterm/internal/config"
	"github.com/jeranaias/specterm/internal/history"
	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/session"
	"github.com/jeranaias/specterm/internal/spectrum"
	"github.com/jeranaias/specterm/internal/ui"
	"github.com/jeranaias/specterm/internal/ui/components"
	"github.com/jeranaias/specterm/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "specterm:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("specterm", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default ~/.config/specterm/config.toml)")
	profile := fs.String("profile", "", "overlay a named config profile")
	batch := fs.StringArrayP("batch", "b", nil, "run a command script before going interactive")
	execute := fs.StringArrayP("execute", "e", nil, "run commands and exit")
	noTUI := fs.Bool("no-tui", false, "run the plain REPL instead of the TUI")
	showVersion := fs.BoolP("version", "v", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: specterm [flags] [spectrum files]\n\n%s", fs.FlagUsages())
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("specterm %s (%s)\n", Version, GitCommit)
		return nil
	}

	// Configuration: file, profile overlay, then environment.
	path := *configPath
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if *profile != "" {
		if err := cfg.LoadProfile(*profile); err != nil {
			return err
		}
	}
	cfg.ApplyEnvOverrides()

	interactive := cli.IsTTY() && !*noTUI && len(*execute) == 0
	theme := styles.NewTheme(cfg.UI.Theme)

	var msg session.Messenger
	var uiLog *ui.MessageLog
	if interactive {
		uiLog = ui.NewMessageLog()
		msg = uiLog
	} else {
		msg = cli.NewMessenger(os.Stdout, cli.ColorEnabled())
	}

	opts := options.NewRegistry()
	sess := session.New(opts, msg)
	defer sess.Close()

	if jp := cfg.JournalPath(); jp != "" {
		journal, err := history.Open(jp)
		if err != nil {
			msg.Warn("fit journal disabled: %v", err)
		} else {
			sess.SetJournal(journal)
		}
	}

	watcher, err := spectrum.NewWatcher(
		time.Duration(cfg.Watch.DebounceMs)*time.Millisecond,
		float64(cfg.Watch.MaxPerSecond),
		nil,
	)
	if err != nil {
		msg.Warn("file watching disabled: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
	}

	registerDisplayOptions(opts, theme, watcher)

	registry := commands.NewRegistry()
	commands.RegisterConfigCommands(registry)
	commands.RegisterSpectrumCommands(registry)
	commands.RegisterCalibrationCommands(registry)
	commands.RegisterFitCommands(registry)
	commands.RegisterMiscCommands(registry)

	ctx := &commands.Context{
		Session:    sess,
		Options:    opts,
		Registry:   registry,
		Msg:        msg,
		Config:     cfg,
		Watcher:    watcher,
		ConfigPath: path,
	}
	if cli.ColorEnabled() {
		ctx.Highlight = components.Highlight
	}

	// Startup values from the [options] table, after registration.
	cfg.Apply(opts, msg.Warn)

	// Watched files reload through the session.
	if watcher != nil {
		watcher.SetNotify(func() {
			for _, p := range watcher.Drain() {
				sess.RefreshByPath(p)
			}
		})
	}

	// Trailing arguments are spectrum files.
	if args := fs.Args(); len(args) > 0 {
		commands.LoadSpectra(ctx, args)
	}

	// Batch scripts run first, then -e commands or the interactive loop.
	for _, script := range *batch {
		if err := cli.RunScript(ctx, script, false); err != nil {
			msg.Error("%v", err)
		}
	}
	if len(*execute) > 0 {
		for _, line := range *execute {
			if err := registry.Dispatch(ctx, line); err != nil {
				msg.Error("%v", err)
				return fmt.Errorf("command failed: %s", line)
			}
		}
		return nil
	}

	if interactive {
		win := &ui.Window{}
		sess.SetWindow(win)
		return ui.Run(ctx, theme, uiLog, win, cfg.UI.Mouse)
	}

	repl := cli.NewREPL(ctx, cfg.HistoryFilePath())
	return repl.Run()
}

// registerDisplayOptions adds the option variables that belong to the
// display layer rather than to the fit interface. watcher may be nil
// when file watching is unavailable.
func registerDisplayOptions(opts *options.Registry, theme *styles.Theme, watcher *spectrum.Watcher) {
	opts.MustRegister("table.format",
		options.NewOption("simple", options.ParseChoice("simple", "grid")))
	opts.MustRegister("fit.list.sort_key",
		options.NewOption("id", options.ParseString))
	opts.MustRegister("ui.theme",
		options.NewOption("auto", options.ParseChoice("auto", "dark", "light", "mono")).
			WithChange(func(v any) {
				*theme = *styles.NewTheme(v.(string))
			}))
	watch := options.NewOption(false, options.ParseBool)
	if watcher != nil {
		watch.WithChange(func(v any) {
			watcher.SetEnabled(v.(bool))
		})
		watcher.SetEnabled(false)
	}
	opts.MustRegister("spec.update.watch", watch)
}
