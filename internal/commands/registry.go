// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jeranaias/specterm/internal/config"
	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/session"
	"github.com/jeranaias/specterm/internal/spectrum"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is one dispatchable command. Path segments form a tree, so
// "fit marker" and "fit store" share the "fit" node and abbreviations
// resolve per segment.
type Command struct {
	// Path is the full command path, segments separated by spaces
	// (e.g. "spectrum get").
	Path string

	// Level breaks abbreviation ties: when an abbreviated input
	// matches several commands, the one with the strictly lowest
	// level wins. 0 marks a preferred command, 2 a conservative one
	// that never wins an ambiguity.
	Level int

	// Description is shown in help and completion.
	Description string

	// Usage shows the argument syntax (e.g. "spectrum get <file>...").
	Usage string

	// Flags builds the command's flag set. Called per dispatch, so
	// flag values never leak between invocations. Nil means the
	// command takes no flags.
	Flags func() *pflag.FlagSet

	// MinArgs and MaxArgs bound the positional argument count.
	// MaxArgs -1 means unlimited.
	MinArgs int
	MaxArgs int

	// Run executes the command.
	Run func(*Context, *Invocation) error

	// Complete, when set, proposes completions for a positional
	// argument prefix.
	Complete func(*Context, string) []string

	// FileArgs marks positionals as file paths for completion.
	FileArgs bool

	// Hidden commands are dispatchable but not listed in help.
	Hidden bool
}

func (c *Command) segments() []string {
	return strings.Fields(c.Path)
}

// =============================================================================
// CONTEXT
// =============================================================================

// Context is the dependency bag handed to every command handler. It is
// built once at startup and passed by reference; there is no global
// application state.
type Context struct {
	Session  *session.Session
	Options  *options.Registry
	Registry *Registry
	Msg      session.Messenger
	Config   *config.Config

	// Watcher is the spectrum file watcher, nil when disabled.
	Watcher *spectrum.Watcher

	// Quit asks the surrounding input loop to terminate.
	Quit func()

	// ConfigPath is the startup config file in use, for
	// "config show --source" and "config write".
	ConfigPath string

	// Highlight renders source text (TOML, YAML) with syntax colors
	// when the display supports it. Nil means plain text.
	Highlight func(source, lexer string) string

	// Markdown renders help text for the display. Nil means plain text.
	Markdown func(text string) string
}

func (ctx *Context) msgf(format string, args ...any) {
	if ctx.Msg != nil {
		ctx.Msg.Msg(format, args...)
	}
}

func (ctx *Context) warnf(format string, args ...any) {
	if ctx.Msg != nil {
		ctx.Msg.Warn(format, args...)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// UnknownCommandError reports input that matches no registered command.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// AmbiguousCommandError reports an abbreviation matching several
// commands of equal level.
type AmbiguousCommandError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousCommandError) Error() string {
	return fmt.Sprintf("ambiguous command %q (matches %s)",
		e.Name, strings.Join(e.Candidates, ", "))
}

// ArgumentError reports flag or positional-argument trouble, carrying
// the usage line of the offending command.
type ArgumentError struct {
	Path  string
	Usage string
	Err   error
}

func (e *ArgumentError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%v\nusage: %s", e.Err, e.Usage)
	}
	return e.Err.Error()
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// AbortError carries a user-facing message without the command path
// prefix the dispatcher normally adds.
type AbortError struct {
	Message string
}

func (e *AbortError) Error() string { return e.Message }

// Abortf builds an AbortError.
func Abortf(format string, args ...any) error {
	return &AbortError{Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// REGISTRY
// =============================================================================

// node is one segment of the command path tree.
type node struct {
	children map[string]*node
	cmd      *Command
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Registry holds the command tree. It is explicitly constructed and
// owned by the application context.
type Registry struct {
	root *node
	cmds []*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{root: newNode()}
}

// Register adds a command. A duplicate path is an error.
func (r *Registry) Register(cmd *Command) error {
	segs := cmd.segments()
	if len(segs) == 0 {
		return fmt.Errorf("empty command path")
	}
	n := r.root
	for _, seg := range segs {
		child, ok := n.children[seg]
		if !ok {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	if n.cmd != nil {
		return fmt.Errorf("command %q already registered", cmd.Path)
	}
	n.cmd = cmd
	r.cmds = append(r.cmds, cmd)
	return nil
}

// MustRegister is Register for construction-time wiring.
func (r *Registry) MustRegister(cmd *Command) {
	if err := r.Register(cmd); err != nil {
		panic(err)
	}
}

// All returns every registered command, sorted by path.
func (r *Registry) All() []*Command {
	out := append([]*Command(nil), r.cmds...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Lookup returns the command registered under the exact path.
func (r *Registry) Lookup(path string) *Command {
	n := r.root
	for _, seg := range strings.Fields(path) {
		child, ok := n.children[seg]
		if !ok {
			return nil
		}
		n = child
	}
	return n.cmd
}

// =============================================================================
// RESOLUTION
// =============================================================================

// candidate pairs a resolvable command with the tokens left over after
// consuming its path.
type candidate struct {
	cmd  *Command
	rest []string
}

// resolve finds the commands an input token list can reach. Longer path
// matches shadow shorter ones, exact segment matches shadow prefix
// matches, and each segment may be abbreviated to any unique prefix.
func resolve(n *node, tokens []string) []candidate {
	if len(tokens) > 0 {
		tok := tokens[0]
		if child, ok := n.children[tok]; ok {
			if cands := resolve(child, tokens[1:]); len(cands) > 0 {
				return cands
			}
		} else {
			var cands []candidate
			for seg, child := range n.children {
				if strings.HasPrefix(seg, tok) {
					cands = append(cands, resolve(child, tokens[1:])...)
				}
			}
			if len(cands) > 0 {
				return cands
			}
		}
	}
	if n.cmd != nil {
		return []candidate{{cmd: n.cmd, rest: tokens}}
	}
	if len(tokens) == 0 {
		// Input stops at an inner node ("fit" alone): every command
		// below is a candidate and the level tie-break picks the
		// preferred one.
		return subtree(n)
	}
	return nil
}

// subtree collects the commands below a node, argument-free.
func subtree(n *node) []candidate {
	var cands []candidate
	if n.cmd != nil {
		cands = append(cands, candidate{cmd: n.cmd})
	}
	for _, child := range n.children {
		cands = append(cands, subtree(child)...)
	}
	return cands
}

// find resolves tokens to a single command, applying the level
// tie-break among ambiguous candidates.
func (r *Registry) find(tokens []string) (*Command, []string, error) {
	name := strings.Join(tokens, " ")
	cands := resolve(r.root, tokens)
	switch len(cands) {
	case 0:
		return nil, nil, &UnknownCommandError{Name: name}
	case 1:
		return cands[0].cmd, cands[0].rest, nil
	}

	best := cands[0]
	unique := true
	for _, c := range cands[1:] {
		switch {
		case c.cmd.Level < best.cmd.Level:
			best = c
			unique = true
		case c.cmd.Level == best.cmd.Level:
			unique = false
		}
	}
	if unique {
		return best.cmd, best.rest, nil
	}

	paths := make([]string, len(cands))
	for i, c := range cands {
		paths[i] = c.cmd.Path
	}
	sort.Strings(paths)
	return nil, nil, &AmbiguousCommandError{Name: name, Candidates: paths}
}
