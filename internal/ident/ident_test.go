// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ident

import (
	"errors"
	"testing"
)

// fakeCollection implements Collection for resolver tests.
type fakeCollection struct {
	ids     []int
	active  int // -1 = none
	visible []int
}

func (f *fakeCollection) IDs() []ID {
	out := make([]ID, len(f.ids))
	for i, m := range f.ids {
		out[i] = New(m)
	}
	return out
}

func (f *fakeCollection) Has(id ID) bool {
	for _, m := range f.ids {
		if m == id.Major {
			return true
		}
	}
	return false
}

func (f *fakeCollection) ActiveID() (ID, bool) {
	if f.active < 0 {
		return ID{}, false
	}
	return New(f.active), true
}

func (f *fakeCollection) VisibleIDs() []ID {
	out := make([]ID, len(f.visible))
	for i, m := range f.visible {
		out[i] = New(m)
	}
	return out
}

func majors(ids []ID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = id.Major
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParse(t *testing.T) {
	tests := []struct {
		token   string
		want    ID
		wantErr bool
	}{
		{"3", New(3), false},
		{"0", New(0), false},
		{"3.2", WithMinor(3, 2), false},
		{"10.0", WithMinor(10, 0), false},
		{"", ID{}, true},
		{"x", ID{}, true},
		{"-1", ID{}, true},
		{"3.", ID{}, true},
		{"3.x", ID{}, true},
		{"3.-1", ID{}, true},
	}

	for _, tc := range tests {
		got, err := Parse(tc.token)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) = %v, want error", tc.token, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tc.token, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestIDString(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{New(3), "3"},
		{WithMinor(3, 2), "3.2"},
		{New(0), "0"},
	}
	for _, tc := range tests {
		if got := tc.id.String(); got != tc.want {
			t.Errorf("%#v.String() = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestParseIDsRangesAndLists(t *testing.T) {
	c := &fakeCollection{ids: []int{1, 2, 3, 4, 5, 7}, active: -1}

	tests := []struct {
		expr string
		want []int
	}{
		{"2-4,7", []int{2, 3, 4, 7}},
		{"2-4 7", []int{2, 3, 4, 7}},
		{"7, 2-4", []int{2, 3, 4, 7}},
		{"1-3,2-4", []int{1, 2, 3, 4}},
		{"4-2", nil},
		{"", nil},
		{"none", nil},
		{"all", []int{1, 2, 3, 4, 5, 7}},
		{"9", nil},           // not in container, dropped
		{"5-9", []int{5, 7}}, // intersected with existing keys
	}

	for _, tc := range tests {
		got, err := ParseIDs(tc.expr, c)
		if err != nil {
			t.Errorf("ParseIDs(%q) unexpected error: %v", tc.expr, err)
			continue
		}
		if !equalInts(majors(got), tc.want) {
			t.Errorf("ParseIDs(%q) = %v, want %v", tc.expr, majors(got), tc.want)
		}
	}
}

func TestResolveCallerKeywords(t *testing.T) {
	c := &fakeCollection{ids: []int{1, 2, 3}, active: -1}

	r, err := Resolve("shown", c, WithKeywords("shown"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Keyword != "shown" || len(r.IDs) != 0 {
		t.Errorf("Resolve(\"shown\") = %+v, want keyword only", r)
	}

	// Case-insensitive, and a keyword wins over id expansion.
	r, err = Resolve("SHOWN", c, WithKeywords("shown"))
	if err != nil || r.Keyword != "shown" {
		t.Errorf("Resolve(\"SHOWN\") = %+v, %v", r, err)
	}
	r, err = Resolve("1 shown", c, WithKeywords("shown"))
	if err != nil || r.Keyword != "shown" {
		t.Errorf("Resolve(\"1 shown\") = %+v, %v", r, err)
	}

	// Without registration the word is a malformed token.
	if _, err := Resolve("shown", c); err == nil {
		t.Error("Resolve(\"shown\") without WithKeywords expected error")
	}

	// Plain expressions still expand.
	r, err = Resolve("1-2", c, WithKeywords("shown"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Keyword != "" || !equalInts(majors(r.IDs), []int{1, 2}) {
		t.Errorf("Resolve(\"1-2\") = %+v", r)
	}
}

func TestParseIDsMalformed(t *testing.T) {
	c := &fakeCollection{ids: []int{1, 2}, active: -1}

	for _, expr := range []string{"x", "1,x", "2-4,zz", "1.2.3", "--"} {
		_, err := ParseIDs(expr, c)
		if err == nil {
			t.Errorf("ParseIDs(%q) expected error", expr)
			continue
		}
		var ie *InvalidExprError
		if !errors.As(err, &ie) {
			t.Errorf("ParseIDs(%q) error type = %T, want *InvalidExprError", expr, err)
		}
	}
}

func TestParseIDsKeywords(t *testing.T) {
	c := &fakeCollection{ids: []int{0, 2, 5}, active: 2, visible: []int{0, 5}}

	tests := []struct {
		expr string
		want []int
	}{
		{"active", []int{2}},
		{"visible", []int{0, 5}},
		{"first", []int{0}},
		{"last", []int{5}},
		{"next", []int{5}},
		{"prev", []int{0}},
		{"ALL", []int{0, 2, 5}},
	}

	for _, tc := range tests {
		got, err := ParseIDs(tc.expr, c)
		if err != nil {
			t.Errorf("ParseIDs(%q) unexpected error: %v", tc.expr, err)
			continue
		}
		if !equalInts(majors(got), tc.want) {
			t.Errorf("ParseIDs(%q) = %v, want %v", tc.expr, majors(got), tc.want)
		}
	}
}

func TestParseIDsCycleWrapsAndDefaults(t *testing.T) {
	// Active at the end: next wraps to the first id.
	c := &fakeCollection{ids: []int{1, 3}, active: 3}
	got, err := ParseIDs("next", c)
	if err != nil {
		t.Fatalf("ParseIDs(next) error: %v", err)
	}
	if !equalInts(majors(got), []int{1}) {
		t.Errorf("next from last = %v, want [1]", majors(got))
	}

	// No active id: next falls back to first, prev to last.
	c = &fakeCollection{ids: []int{1, 3}, active: -1}
	got, _ = ParseIDs("next", c)
	if !equalInts(majors(got), []int{1}) {
		t.Errorf("next without active = %v, want [1]", majors(got))
	}
	got, _ = ParseIDs("prev", c)
	if !equalInts(majors(got), []int{3}) {
		t.Errorf("prev without active = %v, want [3]", majors(got))
	}
}

func TestParseIDsKeepMissing(t *testing.T) {
	c := &fakeCollection{ids: []int{1}, active: -1}

	got, err := ParseIDs("1,4,2.1", c, KeepMissing())
	if err != nil {
		t.Fatalf("ParseIDs error: %v", err)
	}
	want := []ID{New(1), WithMinor(2, 1), New(4)}
	if len(got) != len(want) {
		t.Fatalf("ParseIDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseIDs[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseIDsMinorAgainstExistingMajor(t *testing.T) {
	c := &fakeCollection{ids: []int{3}, active: -1}

	got, err := ParseIDs("3.2", c)
	if err != nil {
		t.Fatalf("ParseIDs error: %v", err)
	}
	if len(got) != 1 || got[0] != WithMinor(3, 2) {
		t.Errorf("ParseIDs(3.2) = %v, want [3.2]", got)
	}
}
