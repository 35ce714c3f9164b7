// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jeranaias/specterm/internal/util"
)

// =============================================================================
// MISC COMMANDS
// =============================================================================

// RegisterMiscCommands registers the shell-like helpers: directory
// navigation, script execution, help and exit.
func RegisterMiscCommands(r *Registry) {
	r.MustRegister(&Command{
		Path:        "cd",
		Level:       1,
		Description: "Change the working directory",
		Usage:       "cd [directory]",
		MinArgs:     0,
		MaxArgs:     1,
		Run:         cmdCd,
		FileArgs:    true,
	})
	r.MustRegister(&Command{
		Path:        "pwd",
		Level:       1,
		Description: "Print the working directory",
		Usage:       "pwd",
		MinArgs:     0,
		MaxArgs:     0,
		Run: func(ctx *Context, _ *Invocation) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			ctx.msgf("%s", wd)
			return nil
		},
	})
	r.MustRegister(&Command{
		Path:        "exec",
		Level:       1,
		Description: "Run commands from a script file",
		Usage:       "exec <file> [-k]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("exec", pflag.ContinueOnError)
			fs.BoolP("keep-going", "k", false, "continue past failing lines")
			return fs
		},
		MinArgs:  1,
		MaxArgs:  1,
		Run:      cmdExec,
		FileArgs: true,
	})
	r.MustRegister(&Command{
		Path:        "help",
		Level:       1,
		Description: "List commands, or describe one command",
		Usage:       "help [command] [--long]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("help", pflag.ContinueOnError)
			fs.Bool("long", false, "include hidden commands")
			return fs
		},
		MinArgs: 0,
		MaxArgs: -1,
		Run:     cmdHelp,
		Complete: func(ctx *Context, _ string) []string {
			var out []string
			for _, c := range ctx.Registry.All() {
				out = append(out, c.Path)
			}
			return out
		},
	})
	r.MustRegister(&Command{
		Path:        "guide",
		Level:       1,
		Description: "Show a short analysis walkthrough",
		Usage:       "guide",
		MinArgs:     0,
		MaxArgs:     0,
		Run: func(ctx *Context, _ *Invocation) error {
			ctx.msgf("%s", renderHelp(ctx, guideText))
			return nil
		},
	})
	r.MustRegister(&Command{
		Path:        "exit",
		Level:       1,
		Description: "Leave the program",
		Usage:       "exit",
		MinArgs:     0,
		MaxArgs:     0,
		Run:         cmdExit,
	})
	r.MustRegister(&Command{
		Path:        "quit",
		Level:       2,
		Description: "Leave the program",
		Usage:       "quit",
		Hidden:      true,
		MinArgs:     0,
		MaxArgs:     0,
		Run:         cmdExit,
	})
}

func cmdCd(ctx *Context, inv *Invocation) error {
	dir := inv.String(0)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = home
	}
	if err := os.Chdir(util.ExpandUser(dir)); err != nil {
		return Abortf("%v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	ctx.msgf("%s", wd)
	return nil
}

// cmdExec runs a script line by line through the dispatcher. Without
// -k the first failing line stops the script with its line number.
func cmdExec(ctx *Context, inv *Invocation) error {
	path := util.ExpandUser(inv.String(0))
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	keepGoing, _ := inv.Flags.GetBool("keep-going")
	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Registry.Dispatch(ctx, line); err != nil {
			if keepGoing {
				ctx.warnf("Warning: %s:%d: %v", path, lineno, err)
				continue
			}
			return fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
	}
	return sc.Err()
}

func cmdExit(ctx *Context, _ *Invocation) error {
	if ctx.Quit != nil {
		ctx.Quit()
	}
	return nil
}

// =============================================================================
// HELP
// =============================================================================

func cmdHelp(ctx *Context, inv *Invocation) error {
	long, _ := inv.Flags.GetBool("long")

	if len(inv.Args) > 0 {
		return helpCommand(ctx, strings.Join(inv.Args, " "))
	}

	cmds := ctx.Registry.All()
	var b strings.Builder
	b.WriteString("# Commands\n\n")
	for _, c := range cmds {
		if c.Hidden && !long {
			continue
		}
		fmt.Fprintf(&b, "  %-34s %s\n", c.Path, c.Description)
	}
	b.WriteString("\nUse `help <command>` for details. Command names may be\nabbreviated to any unambiguous prefix, per path segment.\n")
	ctx.msgf("%s", renderHelp(ctx, b.String()))
	return nil
}

func helpCommand(ctx *Context, query string) error {
	cmd, rest, err := ctx.Registry.find(Tokenize(query))
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return &UnknownCommandError{Name: query}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", cmd.Path, cmd.Description)
	fmt.Fprintf(&b, "Usage: `%s`\n", cmd.Usage)
	if cmd.Flags != nil {
		fs := cmd.Flags()
		if fs.HasFlags() {
			b.WriteString("\nFlags:\n")
			b.WriteString(fs.FlagUsages())
		}
	}
	ctx.msgf("%s", renderHelp(ctx, b.String()))
	return nil
}

func renderHelp(ctx *Context, text string) string {
	if ctx.Markdown != nil {
		return strings.TrimRight(ctx.Markdown(text), "\n")
	}
	return strings.TrimRight(text, "\n")
}

const guideText = `# Getting started

1. Load a spectrum:        ` + "`spectrum get run042.txt`" + `
2. Calibrate it:           ` + "`calibration position enter 100 121.8 850 1332.5`" + `
3. Mark a fit region:      hotkeys ` + "`r`" + ` at both edges, ` + "`p`" + ` on each peak
4. Fit and inspect:        ` + "`fit`" + ` then ` + "`fit list`" + `
5. Keep the result:        ` + "`fit store`" + `
6. Save everything:        ` + "`fit write`" + `

In the spectrum view, ` + "`?`" + ` lists the hotkeys and ` + "`:`" + ` opens this
command line. Command names may be abbreviated per path segment, so
` + "`sp g run042.txt`" + ` also works.`
