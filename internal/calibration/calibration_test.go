// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calibration

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestIdentity(t *testing.T) {
	var c Calibration
	if !c.IsIdentity() {
		t.Error("zero value is not identity")
	}
	if got := c.Apply(123.5); got != 123.5 {
		t.Errorf("identity Apply = %v", got)
	}
	if got := c.Invert(123.5); got != 123.5 {
		t.Errorf("identity Invert = %v", got)
	}
}

func TestApplyLinear(t *testing.T) {
	c := New(10, 0.5)

	if got := c.Apply(100); got != 60 {
		t.Errorf("Apply(100) = %v, want 60", got)
	}
	if got := c.Invert(60); math.Abs(got-100) > 1e-9 {
		t.Errorf("Invert(60) = %v, want 100", got)
	}
}

func TestApplyQuadraticRoundTrip(t *testing.T) {
	c := New(5, 2, 0.001)

	for _, ch := range []float64{0, 10, 100, 1000} {
		e := c.Apply(ch)
		back := c.Invert(e)
		if math.Abs(back-ch) > 1e-6 {
			t.Errorf("Invert(Apply(%v)) = %v", ch, back)
		}
	}
}

func TestFromPairsLinear(t *testing.T) {
	c, err := FromPairs([][2]float64{{100, 60}, {200, 110}})
	if err != nil {
		t.Fatalf("FromPairs: %v", err)
	}

	coeffs := c.Coeffs()
	if math.Abs(coeffs[0]-10) > 1e-9 || math.Abs(coeffs[1]-0.5) > 1e-9 {
		t.Errorf("coeffs = %v, want [10 0.5]", coeffs)
	}
}

func TestPolyfitLeastSquares(t *testing.T) {
	// Overdetermined linear fit through points on y = 3 + 2x.
	xs := []float64{0, 1, 2, 3, 4}
	ys := []float64{3, 5, 7, 9, 11}
	coeffs, err := Polyfit(xs, ys, 1)
	if err != nil {
		t.Fatalf("Polyfit: %v", err)
	}
	if math.Abs(coeffs[0]-3) > 1e-9 || math.Abs(coeffs[1]-2) > 1e-9 {
		t.Errorf("coeffs = %v, want [3 2]", coeffs)
	}

	if _, err := Polyfit([]float64{1, 2}, []float64{1, 2}, 2); err == nil {
		t.Error("Polyfit accepted degree 2 with two points")
	}
	if _, err := Polyfit([]float64{1, 1, 1}, []float64{1, 2, 3}, 1); err == nil {
		t.Error("Polyfit accepted degenerate sample points")
	}
}

func TestFromPairsDegenerate(t *testing.T) {
	if _, err := FromPairs([][2]float64{{100, 60}, {100, 70}}); err == nil {
		t.Error("duplicate channels accepted")
	}
	if _, err := FromPairs(nil); err == nil {
		t.Error("empty pair list accepted")
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.cal")
	content := "# energy calibration\n10 0.5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if got := c.Apply(100); got != 60 {
		t.Errorf("Apply(100) = %v, want 60", got)
	}

	if _, err := FromFile(filepath.Join(dir, "missing.cal")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestReadListSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "all.callist")
	content := "# comment line\n" +
		"co60: 10 0.5\n" +
		"\n" +
		"broken line without colon\n" +
		"eu152: 0 0.25 1e-6  # trailing comment\n" +
		"bad: 1 x 3\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, skipped, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (%v)", len(entries), entries)
	}
	if entries[0].Name != "co60" || entries[1].Name != "eu152" {
		t.Errorf("entry names = %q, %q", entries[0].Name, entries[1].Name)
	}
	if len(entries[1].Cal.Coeffs()) != 3 {
		t.Errorf("eu152 coeffs = %v", entries[1].Cal.Coeffs())
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped = %v, want 2 entries", skipped)
	}
	if skipped[0].Line != 4 || skipped[1].Line != 6 {
		t.Errorf("skipped lines = %d, %d, want 4 and 6", skipped[0].Line, skipped[1].Line)
	}
}

func TestWriteListRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.callist")

	in := []ListEntry{
		{Name: "co60", Cal: New(10, 0.5)},
		{Name: "eu152", Cal: New(0, 0.25)},
	}
	if err := WriteList(path, in); err != nil {
		t.Fatalf("WriteList: %v", err)
	}

	out, skipped, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped lines: %v", skipped)
	}
	if len(out) != 2 || out[0].Name != "co60" || out[1].Name != "eu152" {
		t.Fatalf("round trip entries = %v", out)
	}
	if got := out[0].Cal.Apply(100); got != 60 {
		t.Errorf("round-tripped cal Apply(100) = %v, want 60", got)
	}
}
