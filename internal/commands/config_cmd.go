// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jeranaias/specterm/internal/config"
)

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

// RegisterConfigCommands registers the configuration-variable command
// surface: get, set, show and reset over the options store, plus
// writing the startup config file.
func RegisterConfigCommands(r *Registry) {
	r.MustRegister(&Command{
		Path:        "config set",
		Level:       1,
		Description: "Set a configuration variable",
		Usage:       "config set <variable> <value>",
		MinArgs:     2,
		MaxArgs:     -1,
		Run:         cmdConfigSet,
		Complete:    completeOptionNames,
	})
	r.MustRegister(&Command{
		Path:        "config show",
		Level:       1,
		Description: "Show one or all configuration variables",
		Usage:       "config show [--source] [variable]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("config show", pflag.ContinueOnError)
			fs.Bool("source", false, "show the startup config file instead")
			return fs
		},
		MinArgs:  0,
		MaxArgs:  1,
		Run:      cmdConfigShow,
		Complete: completeOptionNames,
	})
	r.MustRegister(&Command{
		Path:        "config reset",
		Level:       1,
		Description: "Reset one or all configuration variables to defaults",
		Usage:       "config reset [variable]",
		MinArgs:     0,
		MaxArgs:     1,
		Run:         cmdConfigReset,
		Complete:    completeOptionNames,
	})
	r.MustRegister(&Command{
		Path:        "config write",
		Level:       1,
		Description: "Write the startup config file",
		Usage:       "config write [-f file]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("config write", pflag.ContinueOnError)
			fs.StringP("file", "f", "", "target file (default: the loaded config)")
			return fs
		},
		MinArgs: 0,
		MaxArgs: 0,
		Run:     cmdConfigWrite,
	})
}

func completeOptionNames(ctx *Context, _ string) []string {
	if ctx.Options == nil {
		return nil
	}
	return ctx.Options.Names()
}

func cmdConfigSet(ctx *Context, inv *Invocation) error {
	name := inv.String(0)
	// Values may contain spaces when quoted or given as several
	// words; everything after the name is the raw value.
	value := inv.Rest(1)
	if err := ctx.Options.Set(name, value); err != nil {
		return Abortf("%v", err)
	}
	return nil
}

func cmdConfigShow(ctx *Context, inv *Invocation) error {
	if source, _ := inv.Flags.GetBool("source"); source {
		return showConfigSource(ctx)
	}
	if len(inv.Args) == 0 {
		ctx.msgf("%s", strings.TrimRight(ctx.Options.String(), "\n"))
		return nil
	}
	line, err := ctx.Options.Show(inv.String(0))
	if err != nil {
		return Abortf("%v", err)
	}
	ctx.msgf("%s", line)
	return nil
}

func showConfigSource(ctx *Context) error {
	if ctx.ConfigPath == "" {
		return Abortf("no config file loaded")
	}
	data, err := os.ReadFile(ctx.ConfigPath)
	if err != nil {
		return err
	}
	text := string(data)
	if ctx.Highlight != nil {
		text = ctx.Highlight(text, "toml")
	}
	ctx.msgf("%s", strings.TrimRight(text, "\n"))
	return nil
}

func cmdConfigReset(ctx *Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		ctx.Options.ResetAll()
		return nil
	}
	if err := ctx.Options.Reset(inv.String(0)); err != nil {
		return Abortf("%v", err)
	}
	return nil
}

func cmdConfigWrite(ctx *Context, inv *Invocation) error {
	path, _ := inv.Flags.GetString("file")
	if path == "" {
		path = ctx.ConfigPath
	}
	if path == "" {
		return Abortf("no target file (use -f)")
	}
	if ctx.Config == nil {
		return Abortf("no config loaded")
	}
	ctx.Config.SetOptions(ctx.Options)
	if err := config.Save(ctx.Config, path); err != nil {
		return err
	}
	ctx.msgf("wrote %s", path)
	return nil
}
