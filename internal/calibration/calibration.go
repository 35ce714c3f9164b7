// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package calibration implements the polynomial channel-to-energy mapping
// attached to a spectrum, construction from coefficient lists, from
// channel/energy pairs, and from calibration files.
package calibration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Calibration maps channel positions to energies through a polynomial
// E(ch) = c0 + c1*ch + c2*ch^2 + ... The zero value is the identity
// mapping.
type Calibration struct {
	coeffs []float64
}

// New builds a calibration from polynomial coefficients, lowest order
// first. No coefficients yields the identity mapping.
func New(coeffs ...float64) Calibration {
	cp := make([]float64, len(coeffs))
	copy(cp, coeffs)
	return Calibration{coeffs: cp}
}

// IsIdentity reports whether the calibration leaves channels unchanged.
func (c Calibration) IsIdentity() bool {
	if len(c.coeffs) == 0 {
		return true
	}
	for i, co := range c.coeffs {
		want := 0.0
		if i == 1 {
			want = 1.0
		}
		if co != want {
			return false
		}
	}
	return true
}

// Degree returns the polynomial degree, 1 for the identity.
func (c Calibration) Degree() int {
	if len(c.coeffs) == 0 {
		return 1
	}
	return len(c.coeffs) - 1
}

// Coeffs returns a copy of the coefficients, lowest order first. The
// identity reports [0, 1].
func (c Calibration) Coeffs() []float64 {
	if len(c.coeffs) == 0 {
		return []float64{0, 1}
	}
	cp := make([]float64, len(c.coeffs))
	copy(cp, c.coeffs)
	return cp
}

// Apply evaluates the polynomial at a channel position.
func (c Calibration) Apply(ch float64) float64 {
	if len(c.coeffs) == 0 {
		return ch
	}
	// Horner evaluation, highest order first.
	e := 0.0
	for i := len(c.coeffs) - 1; i >= 0; i-- {
		e = e*ch + c.coeffs[i]
	}
	return e
}

// Invert finds the channel mapping to the given energy. The polynomial is
// assumed monotone over the range of interest; Newton iteration from the
// linear estimate is refined until convergence, with a bisection fallback
// for flat derivatives.
func (c Calibration) Invert(energy float64) float64 {
	if len(c.coeffs) == 0 {
		return energy
	}
	if len(c.coeffs) <= 2 {
		c0 := c.coeffs[0]
		c1 := 1.0
		if len(c.coeffs) == 2 {
			c1 = c.coeffs[1]
		}
		if c1 == 0 {
			return 0
		}
		return (energy - c0) / c1
	}

	ch := energy
	if c1 := c.coeffs[1]; c1 != 0 {
		ch = (energy - c.coeffs[0]) / c1
	}
	for i := 0; i < 64; i++ {
		f := c.Apply(ch) - energy
		if math.Abs(f) < 1e-9 {
			return ch
		}
		d := c.derivative(ch)
		if math.Abs(d) < 1e-12 {
			break
		}
		ch -= f / d
	}
	return c.bisect(energy)
}

func (c Calibration) derivative(ch float64) float64 {
	d := 0.0
	for i := len(c.coeffs) - 1; i >= 1; i-- {
		d = d*ch + float64(i)*c.coeffs[i]
	}
	return d
}

func (c Calibration) bisect(energy float64) float64 {
	lo, hi := -1e7, 1e7
	flo := c.Apply(lo) - energy
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fm := c.Apply(mid) - energy
		if math.Abs(fm) < 1e-9 {
			return mid
		}
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// String renders the coefficients space-separated, the form used in
// calibration list files.
func (c Calibration) String() string {
	coeffs := c.Coeffs()
	parts := make([]string, len(coeffs))
	for i, co := range coeffs {
		parts[i] = strconv.FormatFloat(co, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// FromPairs builds the exact polynomial through the given channel/energy
// pairs: N pairs define a degree N-1 calibration. Duplicate channels make
// the system singular.
func FromPairs(pairs [][2]float64) (Calibration, error) {
	if len(pairs) == 0 {
		return Calibration{}, fmt.Errorf("no calibration pairs given")
	}
	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		xs[i] = p[0]
		ys[i] = p[1]
	}
	coeffs, err := Polyfit(xs, ys, len(pairs)-1)
	if err != nil {
		return Calibration{}, fmt.Errorf("calibration pairs are degenerate")
	}
	return New(coeffs...), nil
}

// Polyfit computes the least squares polynomial of the given degree
// through the sample points, lowest order coefficient first. With
// degree+1 points the fit is exact.
func Polyfit(xs, ys []float64, degree int) ([]float64, error) {
	if degree < 0 {
		return nil, fmt.Errorf("negative polynomial degree")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("mismatched sample slices")
	}
	n := degree + 1
	if len(xs) < n {
		return nil, fmt.Errorf("need at least %d points for degree %d, got %d", n, degree, len(xs))
	}

	// Normal equations A^T A c = A^T y, assembled as an augmented
	// matrix. Degrees stay small, so this is well behaved.
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n+1)
	}
	for k, x := range xs {
		pow := make([]float64, n)
		v := 1.0
		for j := 0; j < n; j++ {
			pow[j] = v
			v *= x
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				a[i][j] += pow[i] * pow[j]
			}
			a[i][n] += pow[i] * ys[k]
		}
	}
	return solveAugmented(a, n)
}

// solveAugmented runs Gaussian elimination with partial pivoting on an
// n by n+1 augmented matrix.
func solveAugmented(a [][]float64, n int) ([]float64, error) {
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("sample points are degenerate")
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for j := col; j <= n; j++ {
				a[r][j] -= f * a[col][j]
			}
		}
	}

	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := a[i][n]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * out[j]
		}
		out[i] = sum / a[i][i]
	}
	return out, nil
}
