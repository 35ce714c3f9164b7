// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ident implements object identifiers and the resolver that expands
// user-typed identifier expressions ("2-4,7", "3.1", "all") against a
// container of numbered objects.
package ident

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NoMinor is the Minor value of an identifier without a sub-object part.
const NoMinor = -1

// ID identifies an object within a container. Major selects the object
// itself; Minor, when present, selects a sub-object (for fits, a single
// peak). An ID with Minor == NoMinor refers to the whole object.
type ID struct {
	Major int
	Minor int
}

// New returns an ID without a minor part.
func New(major int) ID {
	return ID{Major: major, Minor: NoMinor}
}

// WithMinor returns an ID with both parts set.
func WithMinor(major, minor int) ID {
	return ID{Major: major, Minor: minor}
}

// HasMinor reports whether the ID carries a sub-object part.
func (id ID) HasMinor() bool {
	return id.Minor != NoMinor
}

// Root returns the ID with the minor part stripped.
func (id ID) Root() ID {
	return ID{Major: id.Major, Minor: NoMinor}
}

// String renders "3" or "3.2".
func (id ID) String() string {
	if id.HasMinor() {
		return strconv.Itoa(id.Major) + "." + strconv.Itoa(id.Minor)
	}
	return strconv.Itoa(id.Major)
}

// Less orders by major, then minor, whole-object references first.
func (id ID) Less(other ID) bool {
	if id.Major != other.Major {
		return id.Major < other.Major
	}
	return id.Minor < other.Minor
}

// Parse converts a single token of the form "3" or "3.2" into an ID.
func Parse(token string) (ID, error) {
	major, minor, found := strings.Cut(token, ".")
	m, err := strconv.Atoi(major)
	if err != nil || m < 0 {
		return ID{}, fmt.Errorf("invalid identifier %q", token)
	}
	if !found {
		return New(m), nil
	}
	n, err := strconv.Atoi(minor)
	if err != nil || n < 0 {
		return ID{}, fmt.Errorf("invalid identifier %q", token)
	}
	return WithMinor(m, n), nil
}

// Sort sorts ids in place by (major, minor).
func Sort(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// Strings renders ids for display, comma separated.
func Strings(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
