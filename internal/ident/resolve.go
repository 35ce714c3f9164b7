// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ident

import (
	"fmt"
	"strings"
)

// =============================================================================
// COLLECTION VIEW
// =============================================================================

// Collection is the view of a container the resolver needs. Has answers by
// major id only: a dotted identifier exists when its whole-object root does.
type Collection interface {
	// IDs returns all major ids, sorted.
	IDs() []ID

	// Has reports whether the major id of the given ID is present.
	Has(ID) bool

	// ActiveID returns the active id, if one is set.
	ActiveID() (ID, bool)

	// VisibleIDs returns the currently displayed ids, sorted.
	VisibleIDs() []ID
}

// =============================================================================
// ERRORS
// =============================================================================

// InvalidExprError reports a malformed identifier expression. A single bad
// token fails the whole expression; resolution is all or nothing.
type InvalidExprError struct {
	Expr  string
	Token string
}

func (e *InvalidExprError) Error() string {
	return fmt.Sprintf("invalid identifier expression %q: bad token %q", e.Expr, e.Token)
}

// =============================================================================
// RESOLVER
// =============================================================================

type resolveConfig struct {
	keepMissing bool
	keywords    []string
}

// Option configures ParseIDs and Resolve.
type Option func(*resolveConfig)

// KeepMissing disables the existence filter, so ids absent from the
// collection survive resolution. Used by operations that must report on
// requested-but-missing objects themselves.
func KeepMissing() Option {
	return func(c *resolveConfig) { c.keepMissing = true }
}

// WithKeywords registers command-specific words the caller handles
// itself. A matching token short-circuits resolution; Resolve returns
// it through Result.Keyword instead of expanding ids.
func WithKeywords(words ...string) Option {
	return func(c *resolveConfig) {
		for _, w := range words {
			c.keywords = append(c.keywords, strings.ToLower(w))
		}
	}
}

// Result is the outcome of Resolve: either the expanded ids, or the
// caller keyword that was found in the expression.
type Result struct {
	IDs     []ID
	Keyword string
}

// ParseIDs expands an identifier expression against a collection.
//
// The expression is split on whitespace and commas. Each token is either a
// plain id ("3"), a dotted id ("3.2"), an inclusive major range ("2-4"), or
// one of the keywords all, none, active, visible, next, prev, first, last
// (case-insensitive). The result is sorted and duplicate-free. Unless
// KeepMissing is given, ids whose major is not in the collection are
// silently dropped. An empty expression resolves to no ids and no error.
func ParseIDs(expr string, c Collection, opts ...Option) ([]ID, error) {
	res, err := Resolve(expr, c, opts...)
	return res.IDs, err
}

// Resolve is ParseIDs with caller-keyword support: a token registered
// through WithKeywords wins over id expansion and comes back in
// Result.Keyword, lowercased.
func Resolve(expr string, c Collection, opts ...Option) (Result, error) {
	var cfg resolveConfig
	for _, o := range opts {
		o(&cfg)
	}

	tokens := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	seen := make(map[ID]bool)
	var ids []ID
	add := func(id ID) {
		if seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, tok := range tokens {
		low := strings.ToLower(tok)
		for _, kw := range cfg.keywords {
			if low == kw {
				return Result{Keyword: kw}, nil
			}
		}
		switch low {
		case "none":
			continue
		case "all":
			for _, id := range c.IDs() {
				add(id)
			}
			continue
		case "active":
			if id, ok := c.ActiveID(); ok {
				add(id.Root())
			}
			continue
		case "visible":
			for _, id := range c.VisibleIDs() {
				add(id)
			}
			continue
		case "next":
			if id, ok := cycle(c, +1); ok {
				add(id)
			}
			continue
		case "prev":
			if id, ok := cycle(c, -1); ok {
				add(id)
			}
			continue
		case "first":
			if all := c.IDs(); len(all) > 0 {
				add(all[0])
			}
			continue
		case "last":
			if all := c.IDs(); len(all) > 0 {
				add(all[len(all)-1])
			}
			continue
		}

		if lo, hi, ok := splitRange(tok); ok {
			for m := lo; m <= hi; m++ {
				add(New(m))
			}
			continue
		}

		id, err := Parse(tok)
		if err != nil {
			return Result{}, &InvalidExprError{Expr: expr, Token: tok}
		}
		add(id)
	}

	if !cfg.keepMissing {
		kept := ids[:0]
		for _, id := range ids {
			if c.Has(id) {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	Sort(ids)
	return Result{IDs: ids}, nil
}

// cycle returns the id one step after (dir > 0) or before (dir < 0) the
// active id in the sorted id list, wrapping around. Without an active id it
// falls back to the first or last id.
func cycle(c Collection, dir int) (ID, bool) {
	all := c.IDs()
	if len(all) == 0 {
		return ID{}, false
	}
	active, ok := c.ActiveID()
	if !ok {
		if dir > 0 {
			return all[0], true
		}
		return all[len(all)-1], true
	}
	for i, id := range all {
		if id.Major == active.Major {
			return all[(i+dir+len(all))%len(all)], true
		}
	}
	return all[0], true
}

// splitRange recognizes "a-b" with two bare non-negative majors. Reversed
// bounds produce an empty range rather than an error.
func splitRange(tok string) (lo, hi int, ok bool) {
	a, b, found := strings.Cut(tok, "-")
	if !found || a == "" || b == "" {
		return 0, 0, false
	}
	la, err := Parse(a)
	if err != nil || la.HasMinor() {
		return 0, 0, false
	}
	lb, err := Parse(b)
	if err != nil || lb.HasMinor() {
		return 0, 0, false
	}
	return la.Major, lb.Major, true
}
