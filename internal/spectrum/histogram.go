// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package spectrum implements 1-D histograms, the spectrum objects that
// own them, file readers and writers, and the watcher that reloads
// spectra whose source files change on disk.
package spectrum

// Histogram is a 1-D histogram with uniform binning: bin i holds the
// counts of channel i.
type Histogram struct {
	counts []float64
}

// NewHistogram wraps the given per-channel counts. The slice is owned by
// the histogram afterwards.
func NewHistogram(counts []float64) *Histogram {
	return &Histogram{counts: counts}
}

// NBins returns the number of channels.
func (h *Histogram) NBins() int {
	return len(h.counts)
}

// At returns the counts in channel i, 0 outside the range.
func (h *Histogram) At(i int) float64 {
	if i < 0 || i >= len(h.counts) {
		return 0
	}
	return h.counts[i]
}

// Sum adds the counts of channels lo..hi inclusive, clipped to the valid
// range.
func (h *Histogram) Sum(lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi >= len(h.counts) {
		hi = len(h.counts) - 1
	}
	total := 0.0
	for i := lo; i <= hi; i++ {
		total += h.counts[i]
	}
	return total
}

// Max returns the largest bin content, 0 for an empty histogram.
func (h *Histogram) Max() float64 {
	m := 0.0
	for _, c := range h.counts {
		if c > m {
			m = c
		}
	}
	return m
}

// Counts returns the backing slice. Callers must not modify it.
func (h *Histogram) Counts() []float64 {
	return h.counts
}

// Scale multiplies every bin by f, used for normalization.
func (h *Histogram) Scale(f float64) {
	for i := range h.counts {
		h.counts[i] *= f
	}
}

// Clone returns an independent copy.
func (h *Histogram) Clone() *Histogram {
	cp := make([]float64, len(h.counts))
	copy(cp, h.counts)
	return &Histogram{counts: cp}
}
