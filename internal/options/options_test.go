// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package options

import (
	"errors"
	"testing"
)

func TestSetGetRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("fit.quickfit.region", NewOption(20.0, ParseFloat))

	if err := r.Set("fit.quickfit.region", "15"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := r.Get("fit.quickfit.region")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(float64) != 15.0 {
		t.Errorf("Get = %v, want 15.0", v)
	}

	// Floats display with at least one decimal place.
	s, err := r.Show("fit.quickfit.region")
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if s != "fit.quickfit.region: 15.0" {
		t.Errorf("Show = %q, want %q", s, "fit.quickfit.region: 15.0")
	}
}

func TestFailedParseLeavesPriorValue(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("fit.quickfit.region", NewOption(20.0, ParseFloat))

	if err := r.Set("fit.quickfit.region", "12.5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err := r.Set("fit.quickfit.region", "bogus")
	if err == nil {
		t.Fatal("Set with unparseable value succeeded")
	}
	var ive *InvalidValueError
	if !errors.As(err, &ive) {
		t.Fatalf("error type = %T, want *InvalidValueError", err)
	}
	if ive.Name != "fit.quickfit.region" || ive.Raw != "bogus" {
		t.Errorf("InvalidValueError = %+v", ive)
	}

	v, _ := r.Get("fit.quickfit.region")
	if v.(float64) != 12.5 {
		t.Errorf("value after failed parse = %v, want 12.5", v)
	}
}

func TestUnknownOption(t *testing.T) {
	r := NewRegistry()

	if err := r.Set("nope", "1"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Set: error = %v, want ErrUnknownOption", err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Get: error = %v, want ErrUnknownOption", err)
	}
	if err := r.Reset("nope"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Reset: error = %v, want ErrUnknownOption", err)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterOption("a", NewOption("x", ParseString)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.RegisterOption("a", NewOption("y", ParseString)); err == nil {
		t.Error("duplicate register succeeded")
	}
}

func TestChangeCallbackFiresOnSetAndReset(t *testing.T) {
	var got []any
	opt := NewOption(false, ParseBool).WithChange(func(v any) { got = append(got, v) })
	r := NewRegistry()
	r.MustRegister("fit.display.decomp", opt)

	if err := r.Set("fit.display.decomp", "on"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := r.Reset("fit.display.decomp"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("callback values = %v, want [true false]", got)
	}

	// A failed parse must not fire the callback.
	_ = r.Set("fit.display.decomp", "maybe")
	if len(got) != 2 {
		t.Errorf("callback fired on failed parse: %v", got)
	}
}

func TestParseBool(t *testing.T) {
	truthy := []string{"true", "True", "YES", "on", "1"}
	falsy := []string{"false", "no", "OFF", "0"}

	for _, s := range truthy {
		v, err := ParseBool(s)
		if err != nil || v != true {
			t.Errorf("ParseBool(%q) = %v, %v, want true", s, v, err)
		}
	}
	for _, s := range falsy {
		v, err := ParseBool(s)
		if err != nil || v != false {
			t.Errorf("ParseBool(%q) = %v, %v, want false", s, v, err)
		}
	}
	if _, err := ParseBool("maybe"); err == nil {
		t.Error("ParseBool(maybe) succeeded")
	}
}

func TestParseChoice(t *testing.T) {
	parse := ParseChoice("gauss", "step")

	v, err := parse("GAUSS")
	if err != nil || v != "gauss" {
		t.Errorf("parse(GAUSS) = %v, %v, want gauss", v, err)
	}
	if _, err := parse("lorentz"); err == nil {
		t.Error("parse(lorentz) succeeded")
	}
}

func TestRegistryString(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("b.two", NewOption(2, ParseInt))
	r.MustRegister("a.one", NewOption("x", ParseString))

	want := "a.one: x\nb.two: 2\n"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
