// Package tree provides the arena-backed layout tree built from detected
// rectangles.
//
// # Overview
//
// A [Tree] stores its nodes in a flat slice. Each [Node] refers to its parent
// and children by integer index rather than by pointer, so the structure has
// no ownership cycles and a whole tree is discarded by dropping one value.
// Index 0 is always the synthetic root created by [New].
//
// # Invariants
//
// A tree produced by the hierarchy builder satisfies:
//
//   - exactly one root, whose rect is the bounding union of all other nodes
//   - every non-root node has exactly one parent and lies inside it
//   - area(parent) > area(child) for every edge below the root
//
// The strict area ordering makes the parent relation a strict partial order,
// which rules out cycles. The root may equal a child in area when one
// element spans the whole union. [Tree.Validate] checks all three.
//
// # Usage
//
//	t := tree.New("outer_0", geom.Rect{W: 100, H: 100})
//	a, _ := t.AddNode("ui_0", tree.KindBox, geom.Rect{X: 10, Y: 10, W: 80, H: 80}, "")
//	_ = t.Attach(t.Root(), a)
//	if err := t.Validate(0); err != nil {
//	    return err
//	}
//
// Traversals ([Tree.PreOrder], [Tree.Depth]) use explicit stacks.
package tree
