// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// =============================================================================
// INVOCATION
// =============================================================================

// Invocation is one parsed command call: the flag set after parsing and
// the remaining positional arguments.
type Invocation struct {
	Flags *pflag.FlagSet
	Args  []string
	Raw   string
}

// String returns the positional at index i, or an empty string.
func (inv *Invocation) String(i int) string {
	if i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// Rest returns the positionals from index i on, joined by spaces.
func (inv *Invocation) Rest(i int) string {
	if i >= len(inv.Args) {
		return ""
	}
	return strings.Join(inv.Args[i:], " ")
}

// =============================================================================
// TOKENIZER
// =============================================================================

// Tokenize splits a command line into tokens. Double and single quotes
// group words, a backslash escapes the next character outside single
// quotes. An unterminated quote runs to the end of the line.
func Tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	inToken := false
	var quote rune

	flushIf := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else if ch == '\\' && quote == '"' && i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
			} else {
				cur.WriteRune(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inToken = true
		case ch == '\\' && i+1 < len(runes):
			i++
			cur.WriteRune(runes[i])
			inToken = true
		case ch == ' ' || ch == '\t':
			flushIf()
		default:
			cur.WriteRune(ch)
			inToken = true
		}
	}
	flushIf()
	return tokens
}

// =============================================================================
// DISPATCH
// =============================================================================

// Dispatch tokenizes a line, resolves it against the registry and runs
// the matched command. Blank lines and "#" comment lines are no-ops.
// Nothing dispatched here is ever fatal to the process; every failure
// comes back as an error for the input surface to display.
func (r *Registry) Dispatch(ctx *Context, line string) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	tokens := Tokenize(trimmed)
	cmd, rest, err := r.find(tokens)
	if err != nil {
		return err
	}

	inv, err := parseArgs(cmd, rest)
	if err != nil {
		return err
	}
	inv.Raw = trimmed

	if err := cmd.Run(ctx, inv); err != nil {
		var abort *AbortError
		if errors.As(err, &abort) {
			return abort
		}
		return fmt.Errorf("%s: %w", cmd.Path, err)
	}
	return nil
}

// parseArgs runs the command's flag set over the leftover tokens and
// checks the positional bounds.
func parseArgs(cmd *Command, tokens []string) (*Invocation, error) {
	fs := pflag.NewFlagSet(cmd.Path, pflag.ContinueOnError)
	if cmd.Flags != nil {
		fs = cmd.Flags()
	}
	fs.Usage = func() {} // usage reporting goes through ArgumentError
	if err := fs.Parse(tokens); err != nil {
		return nil, &ArgumentError{Path: cmd.Path, Usage: cmd.Usage, Err: err}
	}

	args := fs.Args()
	if len(args) < cmd.MinArgs {
		return nil, &ArgumentError{
			Path:  cmd.Path,
			Usage: cmd.Usage,
			Err:   fmt.Errorf("expected at least %d argument(s), got %d", cmd.MinArgs, len(args)),
		}
	}
	if cmd.MaxArgs >= 0 && len(args) > cmd.MaxArgs {
		return nil, &ArgumentError{
			Path:  cmd.Path,
			Usage: cmd.Usage,
			Err:   fmt.Errorf("expected at most %d argument(s), got %d", cmd.MaxArgs, len(args)),
		}
	}
	return &Invocation{Flags: fs, Args: args}, nil
}
