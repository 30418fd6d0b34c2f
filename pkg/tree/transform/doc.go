// Package transform builds and annotates layout trees.
//
// # Hierarchy
//
// [BuildHierarchy] turns a flat list of detected rectangles into a rooted
// tree by nearest geometric enclosure. Elements are placed smallest first and
// each picks the tightest strictly-larger rectangle containing it; the
// synthetic root covering every element is the fallback. This is an O(n²)
// pass over all candidate pairs, which is fine for the few hundred elements a
// single screenshot yields.
//
// # Normalization
//
// [Normalize] walks the tree top-down and expresses each node's rectangle
// relative to its parent: margins to each parent edge, width and height
// fractions, and for text nodes the height relative to the whole layout. Two
// inputs differing only by a uniform scale produce identical relative fields.
//
// # Usage
//
//	t, err := transform.BuildHierarchy(elems, transform.Options{Tolerance: 0})
//	if err != nil {
//	    return err
//	}
//	transform.Normalize(t)
package transform
