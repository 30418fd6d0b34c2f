package transform

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/wiretree/pkg/geom"
	"github.com/matzehuels/wiretree/pkg/tree"
)

// RootID is the identifier given to the synthetic outer node.
const RootID = "outer_0"

var (
	// ErrNoElements is returned by [BuildHierarchy] when there is nothing to
	// place under the root.
	ErrNoElements = errors.New("no elements to build a hierarchy from")

	// ErrDegenerateElement is returned by [BuildHierarchy] when an element
	// has no positive width or height. Callers filter these beforehand.
	ErrDegenerateElement = errors.New("degenerate element rect")
)

// Element is a detected rectangle to be placed in the hierarchy.
type Element struct {
	ID   string
	Kind tree.Kind
	Rect geom.Rect
	Text string
}

// Options configures hierarchy construction.
type Options struct {
	// Tolerance is the slack allowed when testing containment.
	Tolerance float64
}

// BuildHierarchy assigns every element to its tightest enclosing parent and
// returns the resulting tree. The root's rect is the bounding union of all
// elements.
//
// Elements are processed smallest first. A candidate parent must be strictly
// larger than the element and contain it within Tolerance; the smallest such
// candidate wins, with ties broken by the distance between centroids and then
// by arena index. The root is the fallback parent. Each element is appended as
// the last child of its parent, so siblings are ordered by ascending area.
//
// Arena indices follow the order of elems, after the root at index 0.
func BuildHierarchy(elems []Element, opts Options) (*tree.Tree, error) {
	if len(elems) == 0 {
		return nil, ErrNoElements
	}

	rects := make([]geom.Rect, len(elems))
	for i, e := range elems {
		if e.Rect.Degenerate() {
			return nil, fmt.Errorf("%w: %s %v", ErrDegenerateElement, e.ID, e.Rect)
		}
		rects[i] = e.Rect
	}
	rootRect, _ := geom.Union(rects...)

	t := tree.New(RootID, rootRect)
	for _, e := range elems {
		if _, err := t.AddNode(e.ID, e.Kind, e.Rect, e.Text); err != nil {
			return nil, fmt.Errorf("add %s: %w", e.ID, err)
		}
	}

	areas := make([]float64, t.Len())
	for i := range areas {
		areas[i] = t.Node(i).Rect.Area()
	}

	for _, i := range placementOrder(areas) {
		p := nearestParent(t, areas, i, opts.Tolerance)
		if err := t.Attach(p, i); err != nil {
			return nil, fmt.Errorf("attach %s: %w", t.Node(i).ID, err)
		}
	}
	return t, nil
}

// placementOrder returns the non-root indices sorted by ascending area,
// keeping arena order for equal areas.
func placementOrder(areas []float64) []int {
	order := make([]int, 0, len(areas)-1)
	for i := 1; i < len(areas); i++ {
		order = append(order, i)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case areas[a] < areas[b]:
			return -1
		case areas[a] > areas[b]:
			return 1
		}
		return 0
	})
	return order
}

func nearestParent(t *tree.Tree, areas []float64, i int, tol float64) int {
	rect := t.Node(i).Rect
	best := t.Root()
	bestArea := areas[best]
	bestDist := geom.CenterDistance(t.Node(best).Rect, rect)

	for j := 0; j < t.Len(); j++ {
		if j == i || areas[j] <= areas[i] {
			continue
		}
		cand := t.Node(j).Rect
		if !cand.Contains(rect, tol) {
			continue
		}
		if areas[j] > bestArea {
			continue
		}
		dist := geom.CenterDistance(cand, rect)
		if areas[j] < bestArea || dist < bestDist || (dist == bestDist && j < best) {
			best, bestArea, bestDist = j, areas[j], dist
		}
	}
	return best
}
