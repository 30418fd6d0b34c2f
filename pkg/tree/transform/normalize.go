package transform

import "github.com/matzehuels/wiretree/pkg/tree"

// Normalize annotates every node with geometry relative to its parent:
// absolute and relative margins, relative size, and for text nodes the
// height as a fraction of the root's height.
//
// The root gets zero margins and a relative size of 1. Any ratio whose
// denominator is zero is set to 0 instead. Nodes are visited parents first
// using an explicit stack. Normalize returns t for chaining.
func Normalize(t *tree.Tree) *tree.Tree {
	rootH := t.Node(t.Root()).Rect.H

	for _, i := range t.PreOrder() {
		n := t.Node(i)
		if n.IsRoot() {
			n.Margins = tree.Margins{}
			n.SizeRel = tree.Size{W: 1, H: 1}
		} else {
			p := t.Node(n.Parent).Rect
			r := n.Rect

			m := tree.Margins{
				Left:   r.X - p.X,
				Top:    r.Y - p.Y,
				Right:  p.Right() - r.Right(),
				Bottom: p.Bottom() - r.Bottom(),
			}
			m.LeftRel = ratio(m.Left, p.W)
			m.RightRel = ratio(m.Right, p.W)
			m.TopRel = ratio(m.Top, p.H)
			m.BottomRel = ratio(m.Bottom, p.H)

			n.Margins = m
			n.SizeRel = tree.Size{W: ratio(r.W, p.W), H: ratio(r.H, p.H)}
		}

		if n.IsText() {
			n.FontSizeRelOuter = ratio(n.Rect.H, rootH)
		}
	}

	t.MarkNormalized()
	return t
}

func ratio(v, d float64) float64 {
	if d == 0 {
		return 0
	}
	return v / d
}
