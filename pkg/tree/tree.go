package tree

import (
	"errors"

	"github.com/matzehuels/wiretree/pkg/geom"
)

var (
	// ErrInvalidNodeID is returned by [Tree.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Tree.AddNode] when a node with the
	// same ID already exists in the tree.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownParent is returned by [Tree.Attach] when the parent index is
	// out of range.
	ErrUnknownParent = errors.New("unknown parent node")

	// ErrAlreadyAttached is returned by [Tree.Attach] when the child already
	// has a parent, or when attaching the root.
	ErrAlreadyAttached = errors.New("node already has a parent")

	// ErrDetachedNode is returned by [Tree.Validate] when a non-root node has
	// no parent.
	ErrDetachedNode = errors.New("node has no parent")

	// ErrRootBounds is returned by [Tree.Validate] when the root rectangle is
	// not the bounding union of the other nodes.
	ErrRootBounds = errors.New("root rect is not the bounding union of its descendants")

	// ErrNotContained is returned by [Tree.Validate] when a node extends past
	// its parent beyond the tolerance.
	ErrNotContained = errors.New("node is not contained in its parent")

	// ErrAreaOrder is returned by [Tree.Validate] when a parent is not
	// strictly larger than its child.
	ErrAreaOrder = errors.New("parent area must exceed child area")

	// ErrCycle is returned by [Tree.Validate] when following parent links
	// does not reach the root.
	ErrCycle = errors.New("parent chain does not reach the root")

	// ErrChildLink is returned by [Tree.Validate] when parent and children
	// links disagree.
	ErrChildLink = errors.New("parent and child links disagree")
)

// Kind distinguishes the synthetic root from detected boxes and text.
type Kind int

const (
	// KindRoot is the synthetic outer box covering every detection.
	KindRoot Kind = iota
	// KindBox is a detected UI element.
	KindBox
	// KindText is a recognized text label.
	KindText
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindBox:
		return "box"
	case KindText:
		return "text"
	}
	return "unknown"
}

// NoParent is the Parent value of the root and of nodes not yet attached.
const NoParent = -1

// Margins holds a node's distance to each edge of its parent, in absolute
// units and as a fraction of the parent's width (left/right) or height
// (top/bottom).
type Margins struct {
	Top, Left, Right, Bottom             float64
	TopRel, LeftRel, RightRel, BottomRel float64
}

// Size holds width and height as fractions of the parent's.
type Size struct {
	W, H float64
}

// Node is one element of the layout tree. Parent and Children are indices
// into the owning [Tree].
type Node struct {
	ID       string
	Kind     Kind
	Rect     geom.Rect
	Text     string
	Parent   int
	Children []int

	// Derived fields, populated by normalization.
	Margins          Margins
	SizeRel          Size
	FontSizeRelOuter float64
}

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool { return n.Kind == KindRoot }

// IsText reports whether n is a text label.
func (n *Node) IsText() bool { return n.Kind == KindText }

// Tree is an arena of nodes rooted at index 0.
//
// The zero value is not usable; create trees with [New].
// Tree is not safe for concurrent use.
type Tree struct {
	nodes      []Node
	ids        map[string]int
	normalized bool
}

// New creates a tree holding only a root node with the given ID and rect.
func New(rootID string, rootRect geom.Rect) *Tree {
	t := &Tree{ids: make(map[string]int)}
	t.nodes = append(t.nodes, Node{ID: rootID, Kind: KindRoot, Rect: rootRect, Parent: NoParent})
	t.ids[rootID] = 0
	return t
}

// Root returns the index of the root node, always 0.
func (t *Tree) Root() int { return 0 }

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a pointer to the node at index i. The pointer is invalidated
// by subsequent calls to AddNode.
func (t *Tree) Node(i int) *Node { return &t.nodes[i] }

// Lookup returns the index of the node with the given ID.
func (t *Tree) Lookup(id string) (int, bool) {
	i, ok := t.ids[id]
	return i, ok
}

// Normalized reports whether relative geometry has been computed.
func (t *Tree) Normalized() bool { return t.normalized }

// MarkNormalized records that derived geometry fields are populated.
func (t *Tree) MarkNormalized() { t.normalized = true }

// AddNode appends an unattached node and returns its index. Use [Tree.Attach]
// to link it to a parent.
func (t *Tree) AddNode(id string, kind Kind, rect geom.Rect, text string) (int, error) {
	if id == "" {
		return NoParent, ErrInvalidNodeID
	}
	if _, exists := t.ids[id]; exists {
		return NoParent, ErrDuplicateNodeID
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{ID: id, Kind: kind, Rect: rect, Text: text, Parent: NoParent})
	t.ids[id] = idx
	return idx, nil
}

// Attach makes child the last child of parent.
func (t *Tree) Attach(parent, child int) error {
	if parent < 0 || parent >= len(t.nodes) {
		return ErrUnknownParent
	}
	if child <= 0 || child >= len(t.nodes) || t.nodes[child].Parent != NoParent || parent == child {
		return ErrAlreadyAttached
	}
	t.nodes[child].Parent = parent
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
	return nil
}

// PreOrder returns node indices in depth-first order, parents before
// children and siblings in child-list order. It uses an explicit stack so
// arbitrarily deep trees do not grow the call stack.
func (t *Tree) PreOrder() []int {
	order := make([]int, 0, len(t.nodes))
	stack := []int{t.Root()}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, i)
		children := t.nodes[i].Children
		for j := len(children) - 1; j >= 0; j-- {
			stack = append(stack, children[j])
		}
	}
	return order
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	depth := make([]int, len(t.nodes))
	deepest := 0
	for _, i := range t.PreOrder() {
		if p := t.nodes[i].Parent; p != NoParent {
			depth[i] = depth[p] + 1
			deepest = max(deepest, depth[i])
		}
	}
	return deepest
}

// ParentOf returns the parent index of node i, or NoParent for the root.
func (t *Tree) ParentOf(i int) int { return t.nodes[i].Parent }
