package layout

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/wiretree/pkg/tree"
)

// Simplify projects a normalized tree into its wire form. Every relative
// value is rounded to [Precision] decimal places. The tree itself is not
// modified, so repeated calls yield identical output.
//
// Simplify returns an error if t has not been normalized.
func Simplify(t *tree.Tree) (*Node, error) {
	if !t.Normalized() {
		return nil, fmt.Errorf("simplify: tree is not normalized")
	}

	nodes := make([]*Node, t.Len())
	order := t.PreOrder()
	for _, i := range order {
		nodes[i] = simplifyNode(t.Node(i))
	}
	for _, i := range order {
		for _, c := range t.Node(i).Children {
			nodes[i].Children = append(nodes[i].Children, nodes[c])
		}
	}
	return nodes[t.Root()], nil
}

func simplifyNode(n *tree.Node) *Node {
	out := &Node{
		ID:   n.ID,
		Type: n.Kind.String(),
		Layout: Box{
			Top:    Round(n.Margins.TopRel),
			Left:   Round(n.Margins.LeftRel),
			Right:  Round(n.Margins.RightRel),
			Bottom: Round(n.Margins.BottomRel),
			Width:  Round(n.SizeRel.W),
			Height: Round(n.SizeRel.H),
		},
		Children: make([]*Node, 0, len(n.Children)),
	}
	if n.IsText() {
		text := n.Text
		out.Text = &text
		out.Font = &Font{SizeRelOuter: Round(n.FontSizeRelOuter)}
	}
	return out
}

// Round rounds x to [Precision] decimal places by formatting and reparsing
// it, so results print without float noise. Negative zero becomes zero.
func Round(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', Precision, 64), 64)
	if err != nil || r == 0 {
		return 0
	}
	return r
}
