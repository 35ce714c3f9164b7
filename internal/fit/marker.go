// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fit implements fit markers, the fitter configuration, the
// moments-based fit engine and the fit objects that hold their results.
// Positions are always in calibrated units; the engine converts to
// channels internally.
package fit

import (
	"fmt"
	"math"
	"sort"
)

// ===== MARKER KINDS =====

// MarkerKind names one of the three marker collections of a fit.
type MarkerKind string

const (
	MarkerBg     MarkerKind = "bg"
	MarkerRegion MarkerKind = "region"
	MarkerPeak   MarkerKind = "peak"
)

// MarkerKinds lists all marker kinds in canonical order.
func MarkerKinds() []MarkerKind {
	return []MarkerKind{MarkerBg, MarkerRegion, MarkerPeak}
}

// markerNames maps the accepted spellings to their kinds. "background"
// is the long form of "bg"; both resolve to MarkerBg.
var markerNames = []struct {
	name string
	kind MarkerKind
}{
	{"bg", MarkerBg},
	{"background", MarkerBg},
	{"region", MarkerRegion},
	{"peak", MarkerPeak},
}

// ParseMarkerKind resolves a marker kind from user input, accepting
// unique prefixes such as "r" for region or "back" for background.
func ParseMarkerKind(s string) (MarkerKind, error) {
	matched := make(map[MarkerKind]bool)
	var match MarkerKind
	for _, n := range markerNames {
		if len(s) > 0 && len(s) <= len(n.name) && n.name[:len(s)] == s {
			matched[n.kind] = true
			match = n.kind
		}
	}
	switch len(matched) {
	case 1:
		return match, nil
	case 0:
		return "", fmt.Errorf("invalid marker type %q", s)
	default:
		return "", fmt.Errorf("ambiguous marker type %q", s)
	}
}

// ===== MARKER LISTS =====

// Marker is a single marker or, for paired kinds, a pair of positions.
// P2 is only meaningful once HasP2 is set.
type Marker struct {
	P1    float64
	P2    float64
	HasP2 bool
}

// Range returns the ordered bounds of a complete pair.
func (m *Marker) Range() (lo, hi float64) {
	if m.P1 <= m.P2 {
		return m.P1, m.P2
	}
	return m.P2, m.P1
}

// MarkerList collects the markers of one kind. Background and region
// markers come in pairs, peak markers are single positions. The region
// list holds at most one pair, setting another position starts over.
type MarkerList struct {
	Kind     MarkerKind
	paired   bool
	maxPairs int
	markers  []*Marker
}

// NewMarkerList creates an empty marker list for the given kind.
func NewMarkerList(kind MarkerKind) *MarkerList {
	l := &MarkerList{Kind: kind, maxPairs: -1}
	switch kind {
	case MarkerBg:
		l.paired = true
	case MarkerRegion:
		l.paired = true
		l.maxPairs = 1
	}
	return l
}

// Set places a marker at pos. For paired kinds the position completes
// an open pair if one exists and starts a new pair otherwise.
func (l *MarkerList) Set(pos float64) {
	if !l.paired {
		l.markers = append(l.markers, &Marker{P1: pos})
		return
	}
	if n := len(l.markers); n > 0 && !l.markers[n-1].HasP2 {
		l.markers[n-1].P2 = pos
		l.markers[n-1].HasP2 = true
		return
	}
	if l.maxPairs >= 0 && len(l.markers) >= l.maxPairs {
		l.markers = l.markers[:0]
	}
	l.markers = append(l.markers, &Marker{P1: pos})
}

// Remove deletes the marker nearest to pos. Paired markers are removed
// as a whole. Removing from an empty list is a no-op.
func (l *MarkerList) Remove(pos float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, m := range l.markers {
		d := math.Abs(m.P1 - pos)
		if m.HasP2 {
			if d2 := math.Abs(m.P2 - pos); d2 < d {
				d = d2
			}
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best >= 0 {
		l.markers = append(l.markers[:best], l.markers[best+1:]...)
	}
}

// Clear removes all markers.
func (l *MarkerList) Clear() {
	l.markers = nil
}

// Len returns the number of markers (pairs count once).
func (l *MarkerList) Len() int {
	return len(l.markers)
}

// Positions returns every set position, sorted. Incomplete pairs
// contribute their first position only.
func (l *MarkerList) Positions() []float64 {
	var out []float64
	for _, m := range l.markers {
		out = append(out, m.P1)
		if m.HasP2 {
			out = append(out, m.P2)
		}
	}
	sort.Float64s(out)
	return out
}

// Ranges returns the completed pairs as ordered bounds. For single
// marker kinds it returns nil.
func (l *MarkerList) Ranges() [][2]float64 {
	if !l.paired {
		return nil
	}
	var out [][2]float64
	for _, m := range l.markers {
		if !m.HasP2 {
			continue
		}
		lo, hi := m.Range()
		out = append(out, [2]float64{lo, hi})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Copy returns a deep copy of the list.
func (l *MarkerList) Copy() *MarkerList {
	cp := &MarkerList{Kind: l.Kind, paired: l.paired, maxPairs: l.maxPairs}
	for _, m := range l.markers {
		mc := *m
		cp.markers = append(cp.markers, &mc)
	}
	return cp
}
