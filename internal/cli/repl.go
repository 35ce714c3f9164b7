// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/specterm/internal/commands"
)

const prompt = "specterm> "

// REPL reads command lines from a terminal with history and tab
// completion from the shared command registry.
type REPL struct {
	ctx         *commands.Context
	line        *liner.State
	historyFile string
	done        bool
}

// NewREPL creates the REPL and loads its history file. An empty
// historyFile disables persistence.
func NewREPL(ctx *commands.Context, historyFile string) *REPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &REPL{ctx: ctx, line: line, historyFile: historyFile}
	line.SetCompleter(r.complete)
	r.loadHistory()

	// The exit builtin reaches us through the context's quit hook.
	ctx.Quit = func() { r.done = true }
	return r
}

// Run reads and dispatches lines until exit or EOF.
func (r *REPL) Run() error {
	defer r.Close()
	for !r.done {
		input, err := r.line.Prompt(prompt)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			// Ctrl-C drops the current line.
			continue
		case errors.Is(err, io.EOF):
			fmt.Println()
			return nil
		case err != nil:
			return err
		}

		if strings.TrimSpace(input) != "" {
			r.line.AppendHistory(input)
		}
		if err := r.ctx.Registry.Dispatch(r.ctx, input); err != nil {
			r.ctx.Msg.Error("%v", err)
		}
	}
	return nil
}

// Close saves history and restores the terminal.
func (r *REPL) Close() {
	r.saveHistory()
	r.line.Close()
}

// complete adapts registry completion to liner, which wants whole
// lines back.
func (r *REPL) complete(line string) []string {
	props := r.ctx.Registry.Complete(r.ctx, line)
	if len(props) == 0 {
		return nil
	}
	stem := line
	if i := strings.LastIndex(line, " "); i >= 0 {
		stem = line[:i+1]
	} else {
		stem = ""
	}
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = stem + p.Text
	}
	return out
}

func (r *REPL) loadHistory() {
	if r.historyFile == "" {
		return
	}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory() {
	if r.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o755); err != nil {
		return
	}
	f, err := os.Create(r.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = r.line.WriteHistory(f)
}

// DefaultHistoryFile returns the REPL history location under the
// user's data directory.
func DefaultHistoryFile() string {
	base, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, ".local", "share", "specterm", "cli_history")
}

// RunScript executes a command file through the given context, the
// same line-by-line semantics as the exec builtin.
func RunScript(ctx *commands.Context, path string, keepGoing bool) error {
	line := "exec " + quoteArg(path)
	if keepGoing {
		line += " -k"
	}
	return ctx.Registry.Dispatch(ctx, line)
}

func quoteArg(s string) string {
	if !strings.ContainsAny(s, " '\"\\") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
