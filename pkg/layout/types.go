package layout

import "github.com/matzehuels/wiretree/pkg/geom"

// =============================================================================
// Constants
// =============================================================================

// Node type tags as they appear on the wire.
const (
	TypeRoot = "root"
	TypeBox  = "box"
	TypeText = "text"
)

// Precision is the number of decimal places kept for relative values.
const Precision = 4

// =============================================================================
// Input - Detector Output
// =============================================================================

// Input is the raw detection result for one image.
type Input struct {
	ImagePath  string      `json:"image_path,omitempty" bson:"image_path,omitempty"`
	UIBoxes    []geom.Rect `json:"ui_boxes" bson:"ui_boxes"`
	TextLabels []TextLabel `json:"text_labels" bson:"text_labels"`
}

// TextLabel is a recognized string and its bounding box.
type TextLabel struct {
	Text string    `json:"text" bson:"text"`
	BBox geom.Rect `json:"bbox" bson:"bbox"`
}

// Empty reports whether the input has neither boxes nor labels.
func (in *Input) Empty() bool {
	return len(in.UIBoxes) == 0 && len(in.TextLabels) == 0
}

// =============================================================================
// Output - Simplified Layout Tree
// =============================================================================

// Output is the simplified layout for one image.
type Output struct {
	ImagePath string `json:"image_path" bson:"image_path"`
	Layout    *Node  `json:"layout" bson:"layout"`
}

// Node is one element of the simplified tree. Children keep the order
// assigned during hierarchy construction.
type Node struct {
	ID       string  `json:"id" bson:"id"`
	Type     string  `json:"type" bson:"type"`
	Layout   Box     `json:"layout" bson:"layout"`
	Children []*Node `json:"children" bson:"children"`
	Text     *string `json:"text,omitempty" bson:"text,omitempty"` // Set only for text nodes
	Font     *Font   `json:"font,omitempty" bson:"font,omitempty"` // Set only for text nodes
}

// Box holds the six relative placement values of a node inside its parent.
type Box struct {
	Top    float64 `json:"top" bson:"top"`
	Left   float64 `json:"left" bson:"left"`
	Right  float64 `json:"right" bson:"right"`
	Bottom float64 `json:"bottom" bson:"bottom"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Font carries the text height relative to the whole layout.
type Font struct {
	SizeRelOuter float64 `json:"size_rel_outer" bson:"size_rel_outer"`
}

// IsText returns true if this is a text node.
func (n *Node) IsText() bool { return n.Type == TypeText }

// IsRoot returns true if this is the synthetic root.
func (n *Node) IsRoot() bool { return n.Type == TypeRoot }

// TextValue returns the label text, or "" for non-text nodes.
func (n *Node) TextValue() string {
	if n.Text == nil {
		return ""
	}
	return *n.Text
}

// Walk calls fn for n and every descendant in pre-order, passing each node's
// depth below n. It uses an explicit stack. If fn returns false the node's
// children are skipped.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{n, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.node, f.depth) {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}
