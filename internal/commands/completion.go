// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// =============================================================================
// COMPLETION
// =============================================================================

// Completion is one tab-completion proposal. Text replaces the word
// being completed; Display may carry extra context for list rendering.
type Completion struct {
	Text    string
	Display string
}

// Complete proposes completions for a partial input line. Both the
// liner REPL and the TUI command line feed their current line through
// here.
func (r *Registry) Complete(ctx *Context, line string) []Completion {
	tokens := Tokenize(line)
	endsOpen := line == "" || !strings.HasSuffix(line, " ")

	partial := ""
	if endsOpen && len(tokens) > 0 {
		partial = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	// Walk the tree along the complete tokens.
	n := r.root
	for _, tok := range tokens {
		child, ok := n.children[tok]
		if !ok {
			// Accept a unique abbreviation mid-line.
			var matches []*node
			for seg, c := range n.children {
				if strings.HasPrefix(seg, tok) {
					matches = append(matches, c)
				}
			}
			if len(matches) != 1 {
				// Path segments exhausted: complete the command's
				// own arguments when one is reachable.
				if cmd := n.cmd; cmd != nil {
					return completeArgs(ctx, cmd, partial)
				}
				return nil
			}
			child = matches[0]
		}
		n = child
	}

	var out []Completion
	for seg := range n.children {
		if strings.HasPrefix(seg, partial) {
			out = append(out, Completion{Text: seg})
		}
	}
	if len(out) > 0 {
		sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
		return out
	}
	if n.cmd != nil {
		return completeArgs(ctx, n.cmd, partial)
	}
	return nil
}

// completeArgs completes a positional argument of a resolved command.
func completeArgs(ctx *Context, cmd *Command, partial string) []Completion {
	var words []string
	if cmd.Complete != nil {
		words = cmd.Complete(ctx, partial)
	} else if cmd.FileArgs {
		words = completeFiles(partial)
	}

	var out []Completion
	for _, w := range words {
		if strings.HasPrefix(w, partial) {
			out = append(out, Completion{Text: w})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// completeFiles proposes matching paths in the partial's directory.
// Directories come back with a trailing separator so completion can
// continue into them.
func completeFiles(partial string) []string {
	dir, stem := filepath.Split(partial)
	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	entries, err := os.ReadDir(readDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, stem) {
			continue
		}
		if stem == "" && strings.HasPrefix(name, ".") {
			continue
		}
		full := dir + name
		if e.IsDir() {
			full += string(filepath.Separator)
		}
		out = append(out, full)
	}
	return out
}
