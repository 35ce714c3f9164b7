// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package collection

import (
	"errors"
	"testing"

	"github.com/jeranaias/specterm/internal/ident"
)

func idList(majors ...int) []ident.ID {
	ids := make([]ident.ID, len(majors))
	for i, m := range majors {
		ids[i] = ident.New(m)
	}
	return ids
}

func sameIDs(a []ident.ID, majors ...int) bool {
	if len(a) != len(majors) {
		return false
	}
	for i := range a {
		if a[i].Major != majors[i] {
			return false
		}
	}
	return true
}

func TestInsertAllocatesSmallestFreeID(t *testing.T) {
	c := New[string]()

	if id := c.Insert("a"); id.Major != 0 {
		t.Fatalf("first insert got id %v, want 0", id)
	}
	if id := c.Insert("b"); id.Major != 1 {
		t.Fatalf("second insert got id %v, want 1", id)
	}

	// A popped id is reused before extending the range.
	if _, err := c.Pop(ident.New(0)); err != nil {
		t.Fatalf("Pop(0) error: %v", err)
	}
	if id := c.Insert("c"); id.Major != 0 {
		t.Fatalf("insert after pop got id %v, want 0", id)
	}
	if id := c.Insert("d"); id.Major != 2 {
		t.Fatalf("next insert got id %v, want 2", id)
	}
}

func TestPopMaintainsInvariants(t *testing.T) {
	c := New[string]()
	c.Put(ident.New(0), "a")
	c.Put(ident.New(1), "b")
	if err := c.Activate(ident.New(1)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	c.ShowAll()

	if _, err := c.Pop(ident.New(1)); err != nil {
		t.Fatalf("Pop(1) error: %v", err)
	}
	if _, ok := c.ActiveID(); ok {
		t.Error("active id survived Pop of the active object")
	}
	if c.IsVisible(ident.New(1)) {
		t.Error("popped id still visible")
	}
	if !sameIDs(c.VisibleIDs(), 0) {
		t.Errorf("VisibleIDs = %v, want [0]", c.VisibleIDs())
	}

	_, err := c.Pop(ident.New(9))
	if !errors.Is(err, ErrNoSuchID) {
		t.Errorf("Pop(9) error = %v, want ErrNoSuchID", err)
	}
}

func TestActivateUnknownID(t *testing.T) {
	c := New[string]()
	c.Put(ident.New(0), "a")

	if err := c.Activate(ident.New(3)); !errors.Is(err, ErrNoSuchID) {
		t.Errorf("Activate(3) error = %v, want ErrNoSuchID", err)
	}
	if _, ok := c.ActiveID(); ok {
		t.Error("failed Activate set the active pointer")
	}
}

func TestVisibleSubsetOfKeys(t *testing.T) {
	c := New[string]()
	c.Put(ident.New(0), "a")
	c.Put(ident.New(2), "b")

	c.Show(idList(0, 2, 5)) // 5 does not exist
	if !sameIDs(c.VisibleIDs(), 0, 2) {
		t.Errorf("VisibleIDs = %v, want [0 2]", c.VisibleIDs())
	}

	c.ShowOnly(idList(2))
	if !sameIDs(c.VisibleIDs(), 2) {
		t.Errorf("ShowOnly: VisibleIDs = %v, want [2]", c.VisibleIDs())
	}

	c.HideAll()
	if len(c.VisibleIDs()) != 0 {
		t.Errorf("HideAll: VisibleIDs = %v, want empty", c.VisibleIDs())
	}
}

func TestDisplayCycle(t *testing.T) {
	c := New[string]()
	for _, m := range []int{0, 2, 5} {
		c.Put(ident.New(m), "x")
	}

	c.ShowNext() // nothing visible: start at first
	if !sameIDs(c.VisibleIDs(), 0) {
		t.Fatalf("ShowNext from empty = %v, want [0]", c.VisibleIDs())
	}
	c.ShowNext()
	if !sameIDs(c.VisibleIDs(), 2) {
		t.Fatalf("ShowNext = %v, want [2]", c.VisibleIDs())
	}
	c.ShowNext()
	c.ShowNext() // wraps
	if !sameIDs(c.VisibleIDs(), 0) {
		t.Fatalf("ShowNext wrap = %v, want [0]", c.VisibleIDs())
	}
	c.ShowPrev() // wraps backwards
	if !sameIDs(c.VisibleIDs(), 5) {
		t.Fatalf("ShowPrev wrap = %v, want [5]", c.VisibleIDs())
	}
	c.ShowFirst()
	if !sameIDs(c.VisibleIDs(), 0) {
		t.Fatalf("ShowFirst = %v, want [0]", c.VisibleIDs())
	}
	c.ShowLast()
	if !sameIDs(c.VisibleIDs(), 5) {
		t.Fatalf("ShowLast = %v, want [5]", c.VisibleIDs())
	}
}

func TestBulkResult(t *testing.T) {
	var r BulkResult
	if !r.Ok() {
		t.Error("empty result should be Ok")
	}
	r.Add(ident.New(1))
	r.Fail(ident.New(2), ErrNoSuchID)
	if r.Ok() {
		t.Error("result with failure reported Ok")
	}
	if len(r.Done) != 1 || r.Done[0].Major != 1 {
		t.Errorf("Done = %v, want [1]", r.Done)
	}
	if len(r.Failed) != 1 || !errors.Is(r.Failed[0].Err, ErrNoSuchID) {
		t.Errorf("Failed = %v, want one ErrNoSuchID entry", r.Failed)
	}
}
