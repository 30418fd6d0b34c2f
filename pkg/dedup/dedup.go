// Package dedup removes near-duplicate detections from a candidate list.
//
// Vision detectors routinely report the same UI element several times with
// slightly different bounds (inner and outer contour of a border, for
// example). [Deduplicate] performs greedy non-max suppression keyed on area:
// larger candidates are accepted first and any later candidate overlapping an
// accepted one by more than the IoU threshold is dropped.
//
// Degenerate rectangles must be filtered by the caller before deduplication.
package dedup

import (
	"slices"

	"github.com/matzehuels/wiretree/pkg/geom"
)

// DefaultThreshold is the IoU above which two candidates count as the same
// element.
const DefaultThreshold = 0.8

// Candidate is a detected rectangle with a precomputed area. Index records
// the candidate's position in the detector output so callers can map
// survivors back to their source.
type Candidate struct {
	Index int
	Rect  geom.Rect
	Area  float64
}

// FromRects wraps rects as candidates using W*H as the area.
func FromRects(rects []geom.Rect) []Candidate {
	out := make([]Candidate, len(rects))
	for i, r := range rects {
		out[i] = Candidate{Index: i, Rect: r, Area: r.Area()}
	}
	return out
}

// Deduplicate returns the candidates that survive IoU suppression, ordered by
// area descending. Equal areas keep their input order. A threshold <= 0
// selects [DefaultThreshold]. The input slice is not modified.
func Deduplicate(cands []Candidate, threshold float64) []Candidate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		switch {
		case a.Area > b.Area:
			return -1
		case a.Area < b.Area:
			return 1
		}
		return 0
	})

	accepted := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		if !duplicates(c, accepted, threshold) {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

func duplicates(c Candidate, accepted []Candidate, threshold float64) bool {
	for _, a := range accepted {
		if geom.IoU(c.Rect, a.Rect, c.Area, a.Area) > threshold {
			return true
		}
	}
	return false
}

// MaxOverlap returns the largest pairwise IoU among cands, or 0 when fewer
// than two candidates are given. A deduplicated list never exceeds the
// threshold it was built with.
func MaxOverlap(cands []Candidate) float64 {
	var worst float64
	for i := range cands {
		for j := i + 1; j < len(cands); j++ {
			a, b := cands[i], cands[j]
			if v := geom.IoU(a.Rect, b.Rect, a.Area, b.Area); v > worst {
				worst = v
			}
		}
	}
	return worst
}
