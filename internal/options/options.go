// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package options implements the store of named configuration variables.
// Interfaces register their variables at construction time; the config
// command layer and the startup config file mutate them through Set, which
// funnels every raw value through the variable's parse function.
package options

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownOption is returned when a variable name is not registered.
var ErrUnknownOption = errors.New("no such option")

// InvalidValueError reports a raw value the variable's parse function
// rejected. The prior value stays in place.
type InvalidValueError struct {
	Name string
	Raw  string
	Err  error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("Invalid value (%s) for option %s. %v", e.Raw, e.Name, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// =============================================================================
// OPTION
// =============================================================================

// ParseFunc converts a raw string into the variable's typed value.
type ParseFunc func(string) (any, error)

// Option is a single configuration variable: a default, a parse function,
// and an optional change callback fired after every successful Set or
// Reset. The stored value is always either the default or a value that
// round-tripped through Parse.
type Option struct {
	Default any
	Parse   ParseFunc
	Change  func(any)

	value any
	set   bool
}

// NewOption creates a variable with the given default and parse function.
func NewOption(def any, parse ParseFunc) *Option {
	return &Option{Default: def, Parse: parse}
}

// WithChange attaches a change callback and returns the option.
func (o *Option) WithChange(fn func(any)) *Option {
	o.Change = fn
	return o
}

// Value returns the current value.
func (o *Option) Value() any {
	if o.set {
		return o.value
	}
	return o.Default
}

// Set parses raw and stores the result, then fires the change callback.
func (o *Option) Set(raw string) error {
	parse := o.Parse
	if parse == nil {
		parse = ParseString
	}
	v, err := parse(raw)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	if o.Change != nil {
		o.Change(v)
	}
	return nil
}

// Reset restores the default value and fires the change callback.
func (o *Option) Reset() {
	o.value = nil
	o.set = false
	if o.Change != nil {
		o.Change(o.Default)
	}
}

// IsSet reports whether the value was explicitly set since the last
// Reset.
func (o *Option) IsSet() bool {
	return o.set
}

// String formats the current value for display.
func (o *Option) String() string {
	return FormatValue(o.Value())
}

// FormatValue renders a typed option value. Floats always carry a decimal
// part, so setting "15" on a float variable shows back as "15.0".
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds all registered variables. It is explicitly constructed
// and passed by reference to whoever needs it; there is no process-wide
// instance.
type Registry struct {
	opts map[string]*Option
}

// NewRegistry creates an empty variable store.
func NewRegistry() *Registry {
	return &Registry{opts: make(map[string]*Option)}
}

// RegisterOption adds a variable under a globally unique name.
func (r *Registry) RegisterOption(name string, opt *Option) error {
	if _, ok := r.opts[name]; ok {
		return fmt.Errorf("option %s already registered", name)
	}
	r.opts[name] = opt
	return nil
}

// MustRegister is RegisterOption for construction-time wiring, where a
// duplicate name is a programming error.
func (r *Registry) MustRegister(name string, opt *Option) {
	if err := r.RegisterOption(name, opt); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(name string) (*Option, error) {
	opt, ok := r.opts[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownOption)
	}
	return opt, nil
}

// Set parses raw through the named variable's parse function and stores
// the result. A parse failure leaves the prior value untouched.
func (r *Registry) Set(name, raw string) error {
	opt, err := r.lookup(name)
	if err != nil {
		return err
	}
	if err := opt.Set(raw); err != nil {
		return &InvalidValueError{Name: name, Raw: raw, Err: err}
	}
	return nil
}

// Get returns the named variable's current typed value.
func (r *Registry) Get(name string) (any, error) {
	opt, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return opt.Value(), nil
}

// IsDefault reports whether the named variable still holds its default.
// Unknown names count as default.
func (r *Registry) IsDefault(name string) bool {
	opt, err := r.lookup(name)
	if err != nil {
		return true
	}
	return !opt.IsSet()
}

// Show renders "name: value" for a single variable.
func (r *Registry) Show(name string) (string, error) {
	opt, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return name + ": " + opt.String(), nil
}

// Reset restores the named variable to its default.
func (r *Registry) Reset(name string) error {
	opt, err := r.lookup(name)
	if err != nil {
		return err
	}
	opt.Reset()
	return nil
}

// ResetAll restores every variable to its default.
func (r *Registry) ResetAll() {
	for _, opt := range r.opts {
		opt.Reset()
	}
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.opts))
	for name := range r.opts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the whole store, one "name: value" line per variable,
// sorted by name.
func (r *Registry) String() string {
	var b strings.Builder
	for _, name := range r.Names() {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(r.opts[name].String())
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// TYPED ACCESS
// =============================================================================

// Float returns a float-typed variable's value.
func (r *Registry) Float(name string) (float64, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("option %s is not a float", name)
	}
	return f, nil
}

// Bool returns a bool-typed variable's value.
func (r *Registry) Bool(name string) (bool, error) {
	v, err := r.Get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("option %s is not a bool", name)
	}
	return b, nil
}

// Int returns an int-typed variable's value.
func (r *Registry) Int(name string) (int, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("option %s is not an int", name)
	}
	return n, nil
}

// Str returns a string-typed variable's value.
func (r *Registry) Str(name string) (string, error) {
	v, err := r.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %s is not a string", name)
	}
	return s, nil
}
