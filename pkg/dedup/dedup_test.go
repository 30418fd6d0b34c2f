package dedup

import (
	"slices"
	"testing"

	"github.com/matzehuels/wiretree/pkg/geom"
)

func TestDeduplicate_KeepsLargerOfNearDuplicates(t *testing.T) {
	cands := FromRects([]geom.Rect{
		{X: 2, Y: 2, W: 48, H: 48},
		{X: 0, Y: 0, W: 50, H: 50},
	})

	got := Deduplicate(cands, DefaultThreshold)

	if len(got) != 1 {
		t.Fatalf("Deduplicate() kept %d candidates, want 1", len(got))
	}
	if got[0].Index != 1 {
		t.Errorf("kept candidate %d, want the larger one (1)", got[0].Index)
	}
}

func TestDeduplicate_KeepsDistinctBoxes(t *testing.T) {
	cands := FromRects([]geom.Rect{
		{X: 0, Y: 0, W: 100, H: 100},
		{X: 10, Y: 10, W: 80, H: 80}, // IoU 0.64
		{X: 200, Y: 0, W: 10, H: 10},
	})

	got := Deduplicate(cands, DefaultThreshold)

	if len(got) != 3 {
		t.Fatalf("Deduplicate() kept %d candidates, want 3", len(got))
	}
	wantOrder := []int{0, 1, 2}
	for i, c := range got {
		if c.Index != wantOrder[i] {
			t.Errorf("position %d: got index %d, want %d", i, c.Index, wantOrder[i])
		}
	}
}

func TestDeduplicate_ThresholdIsExclusive(t *testing.T) {
	// IoU of exactly 0.8 is not a duplicate.
	a := geom.Rect{X: 0, Y: 0, W: 10, H: 10}
	b := geom.Rect{X: 0, Y: 0, W: 10, H: 8}
	got := Deduplicate(FromRects([]geom.Rect{a, b}), 0.8)
	if len(got) != 2 {
		t.Errorf("Deduplicate() kept %d candidates, want 2 at IoU == threshold", len(got))
	}
}

func TestDeduplicate_StableOnEqualArea(t *testing.T) {
	cands := FromRects([]geom.Rect{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 100, Y: 0, W: 10, H: 10},
		{X: 0, Y: 100, W: 10, H: 10},
	})

	got := Deduplicate(cands, DefaultThreshold)

	for i, c := range got {
		if c.Index != i {
			t.Errorf("position %d: got index %d, want input order preserved", i, c.Index)
		}
	}
}

func TestDeduplicate_UsesPrecomputedArea(t *testing.T) {
	// The caller-supplied area decides processing order, not W*H.
	cands := []Candidate{
		{Index: 0, Rect: geom.Rect{X: 0, Y: 0, W: 50, H: 50}, Area: 100},
		{Index: 1, Rect: geom.Rect{X: 1, Y: 1, W: 48, H: 48}, Area: 2000},
	}
	got := Deduplicate(cands, DefaultThreshold)
	if len(got) != 1 || got[0].Index != 1 {
		t.Errorf("Deduplicate() = %+v, want only candidate 1", got)
	}
}

func TestDeduplicate_ZeroAreaUnionIsNotDuplicate(t *testing.T) {
	cands := []Candidate{
		{Index: 0, Rect: geom.Rect{X: 5, Y: 5}},
		{Index: 1, Rect: geom.Rect{X: 5, Y: 5}},
	}
	got := Deduplicate(cands, DefaultThreshold)
	if len(got) != 2 {
		t.Errorf("Deduplicate() kept %d, want 2", len(got))
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	cands := FromRects([]geom.Rect{
		{X: 0, Y: 0, W: 100, H: 100},
		{X: 1, Y: 1, W: 98, H: 98},
		{X: 10, Y: 10, W: 30, H: 30},
		{X: 11, Y: 10, W: 30, H: 30},
		{X: 60, Y: 60, W: 20, H: 20},
	})

	once := Deduplicate(cands, DefaultThreshold)
	twice := Deduplicate(once, DefaultThreshold)

	if !slices.Equal(once, twice) {
		t.Errorf("Deduplicate() not idempotent:\n once  %+v\n twice %+v", once, twice)
	}
	if v := MaxOverlap(once); v > DefaultThreshold {
		t.Errorf("MaxOverlap() = %v after dedup, want <= %v", v, DefaultThreshold)
	}
}

func TestDeduplicate_DoesNotModifyInput(t *testing.T) {
	cands := FromRects([]geom.Rect{
		{X: 0, Y: 0, W: 1, H: 1},
		{X: 0, Y: 0, W: 10, H: 10},
	})
	orig := slices.Clone(cands)
	_ = Deduplicate(cands, 0)
	if !slices.Equal(cands, orig) {
		t.Error("Deduplicate() modified its input")
	}
}

func TestMaxOverlap(t *testing.T) {
	if got := MaxOverlap(nil); got != 0 {
		t.Errorf("MaxOverlap(nil) = %v, want 0", got)
	}
	cands := FromRects([]geom.Rect{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 5, Y: 0, W: 10, H: 10},
	})
	want := 50.0 / 150.0
	if got := MaxOverlap(cands); got != want {
		t.Errorf("MaxOverlap() = %v, want %v", got, want)
	}
}
