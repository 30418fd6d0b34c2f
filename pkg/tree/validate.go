package tree

import (
	"fmt"
	"slices"

	"github.com/matzehuels/wiretree/pkg/geom"
)

// Validate checks the structural invariants of a built tree:
//
//   - the root rect is the bounding union of every other node
//   - every non-root node has a parent that lists it as a child
//   - every node lies inside its parent within tol
//   - every parent other than the root is strictly larger than each child
//   - every parent chain reaches the root within Len steps
//
// It returns the first violation found, wrapped with the offending node ID.
func (t *Tree) Validate(tol float64) error {
	n := len(t.nodes)
	if n > 1 {
		rects := make([]geom.Rect, 0, n-1)
		for _, nd := range t.nodes[1:] {
			rects = append(rects, nd.Rect)
		}
		if u, _ := geom.Union(rects...); u != t.nodes[0].Rect {
			return fmt.Errorf("%w: root %v, union %v", ErrRootBounds, t.nodes[0].Rect, u)
		}
	}

	for i := 1; i < n; i++ {
		nd := &t.nodes[i]
		p := nd.Parent
		if p == NoParent {
			return fmt.Errorf("%w: %s", ErrDetachedNode, nd.ID)
		}
		if p < 0 || p >= n || !slices.Contains(t.nodes[p].Children, i) {
			return fmt.Errorf("%w: %s", ErrChildLink, nd.ID)
		}
		parent := &t.nodes[p]
		if !parent.Rect.Contains(nd.Rect, tol) {
			return fmt.Errorf("%w: %s in %s", ErrNotContained, nd.ID, parent.ID)
		}
		// The root is the fallback parent, so a single element spanning the
		// whole union sits under a root of equal area.
		if p != t.Root() && parent.Rect.Area() <= nd.Rect.Area() {
			return fmt.Errorf("%w: %s in %s", ErrAreaOrder, nd.ID, parent.ID)
		}
	}

	for i := 1; i < n; i++ {
		steps, cur := 0, i
		for cur != t.Root() {
			cur = t.nodes[cur].Parent
			steps++
			if cur == NoParent || steps > n {
				return fmt.Errorf("%w: %s", ErrCycle, t.nodes[i].ID)
			}
		}
	}

	return nil
}
