// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package collection implements the ordered, id-keyed object container used
// for spectra and for each spectrum's stored fits: an integer-keyed mapping
// with an active pointer, a visible subset, and a smallest-free-id
// allocator.
package collection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jeranaias/specterm/internal/ident"
)

// ErrNoSuchID is returned for operations against an id that is not in the
// container.
var ErrNoSuchID = errors.New("no such id")

// Container is an ordered mapping from major id to object. The zero value
// is not usable; create with New.
//
// Invariants: the active id, when set, exists in the mapping; visible ids
// are always a subset of the mapping keys. All mutators uphold both.
type Container[T any] struct {
	objects map[int]T
	active  int // -1 when unset
	visible map[int]bool
	changed func()
}

// New creates an empty container.
func New[T any]() *Container[T] {
	return &Container[T]{
		objects: make(map[int]T),
		active:  -1,
		visible: make(map[int]bool),
	}
}

// OnChange registers a hook invoked after every visible-state or content
// mutation, used by owners to schedule a redraw.
func (c *Container[T]) OnChange(fn func()) {
	c.changed = fn
}

func (c *Container[T]) notify() {
	if c.changed != nil {
		c.changed()
	}
}

// =============================================================================
// CONTENT
// =============================================================================

// Len returns the number of stored objects.
func (c *Container[T]) Len() int {
	return len(c.objects)
}

// FreeID returns the smallest unused non-negative major id.
func (c *Container[T]) FreeID() ident.ID {
	n := 0
	for {
		if _, ok := c.objects[n]; !ok {
			return ident.New(n)
		}
		n++
	}
}

// Put stores obj under the major part of id, replacing any previous object.
func (c *Container[T]) Put(id ident.ID, obj T) {
	c.objects[id.Major] = obj
	c.notify()
}

// Insert stores obj under the next free id and returns that id.
func (c *Container[T]) Insert(obj T) ident.ID {
	id := c.FreeID()
	c.Put(id, obj)
	return id
}

// Get returns the object stored under the major part of id.
func (c *Container[T]) Get(id ident.ID) (T, bool) {
	obj, ok := c.objects[id.Major]
	return obj, ok
}

// Pop removes and returns the object under id. Removing the active object
// clears the active pointer; the id also leaves the visible set.
func (c *Container[T]) Pop(id ident.ID) (T, error) {
	obj, ok := c.objects[id.Major]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNoSuchID, id)
	}
	delete(c.objects, id.Major)
	delete(c.visible, id.Major)
	if c.active == id.Major {
		c.active = -1
	}
	c.notify()
	return obj, nil
}

// IDs returns all major ids, sorted.
func (c *Container[T]) IDs() []ident.ID {
	majors := make([]int, 0, len(c.objects))
	for m := range c.objects {
		majors = append(majors, m)
	}
	sort.Ints(majors)
	ids := make([]ident.ID, len(majors))
	for i, m := range majors {
		ids[i] = ident.New(m)
	}
	return ids
}

// Has reports whether the major part of id is present.
func (c *Container[T]) Has(id ident.ID) bool {
	_, ok := c.objects[id.Major]
	return ok
}

// Each calls fn for every object in id order.
func (c *Container[T]) Each(fn func(ident.ID, T)) {
	for _, id := range c.IDs() {
		fn(id, c.objects[id.Major])
	}
}

// =============================================================================
// ACTIVE POINTER
// =============================================================================

// Activate marks id as the active object.
func (c *Container[T]) Activate(id ident.ID) error {
	if _, ok := c.objects[id.Major]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchID, id)
	}
	c.active = id.Major
	c.notify()
	return nil
}

// Deactivate clears the active pointer.
func (c *Container[T]) Deactivate() {
	c.active = -1
	c.notify()
}

// ActiveID returns the active id, if set.
func (c *Container[T]) ActiveID() (ident.ID, bool) {
	if c.active < 0 {
		return ident.ID{}, false
	}
	return ident.New(c.active), true
}

// Active returns the active object, if set.
func (c *Container[T]) Active() (T, bool) {
	if c.active < 0 {
		var zero T
		return zero, false
	}
	obj, ok := c.objects[c.active]
	return obj, ok
}

// =============================================================================
// VISIBLE SET
// =============================================================================

// Show adds ids to the visible set. Unknown ids are ignored.
func (c *Container[T]) Show(ids []ident.ID) {
	for _, id := range ids {
		if _, ok := c.objects[id.Major]; ok {
			c.visible[id.Major] = true
		}
	}
	c.notify()
}

// Hide removes ids from the visible set.
func (c *Container[T]) Hide(ids []ident.ID) {
	for _, id := range ids {
		delete(c.visible, id.Major)
	}
	c.notify()
}

// ShowOnly replaces the visible set with the given ids.
func (c *Container[T]) ShowOnly(ids []ident.ID) {
	c.visible = make(map[int]bool)
	c.Show(ids)
}

// ShowAll makes every object visible.
func (c *Container[T]) ShowAll() {
	for m := range c.objects {
		c.visible[m] = true
	}
	c.notify()
}

// HideAll empties the visible set.
func (c *Container[T]) HideAll() {
	c.visible = make(map[int]bool)
	c.notify()
}

// VisibleIDs returns the visible ids, sorted.
func (c *Container[T]) VisibleIDs() []ident.ID {
	majors := make([]int, 0, len(c.visible))
	for m := range c.visible {
		majors = append(majors, m)
	}
	sort.Ints(majors)
	ids := make([]ident.ID, len(majors))
	for i, m := range majors {
		ids[i] = ident.New(m)
	}
	return ids
}

// IsVisible reports whether id is in the visible set.
func (c *Container[T]) IsVisible(id ident.ID) bool {
	return c.visible[id.Major]
}

// =============================================================================
// DISPLAY CYCLE
// =============================================================================

// ShowNext slides the single-object display window to the id following the
// currently highest visible id, wrapping around. With nothing visible (or
// everything visible) it starts at the first id.
func (c *Container[T]) ShowNext() {
	ids := c.IDs()
	if len(ids) == 0 {
		return
	}
	vis := c.VisibleIDs()
	if len(vis) == 0 || len(vis) == len(ids) {
		c.ShowFirst()
		return
	}
	top := vis[len(vis)-1]
	for i, id := range ids {
		if id.Major == top.Major {
			c.ShowOnly([]ident.ID{ids[(i+1)%len(ids)]})
			return
		}
	}
	c.ShowFirst()
}

// ShowPrev slides the display window to the id preceding the currently
// lowest visible id, wrapping around.
func (c *Container[T]) ShowPrev() {
	ids := c.IDs()
	if len(ids) == 0 {
		return
	}
	vis := c.VisibleIDs()
	if len(vis) == 0 || len(vis) == len(ids) {
		c.ShowLast()
		return
	}
	bottom := vis[0]
	for i, id := range ids {
		if id.Major == bottom.Major {
			c.ShowOnly([]ident.ID{ids[(i-1+len(ids))%len(ids)]})
			return
		}
	}
	c.ShowLast()
}

// ShowFirst shows only the lowest id.
func (c *Container[T]) ShowFirst() {
	ids := c.IDs()
	if len(ids) == 0 {
		return
	}
	c.ShowOnly(ids[:1])
}

// ShowLast shows only the highest id.
func (c *Container[T]) ShowLast() {
	ids := c.IDs()
	if len(ids) == 0 {
		return
	}
	c.ShowOnly(ids[len(ids)-1:])
}
