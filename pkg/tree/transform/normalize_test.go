package transform

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/matzehuels/wiretree/pkg/geom"
	"github.com/matzehuels/wiretree/pkg/tree"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNormalize_Margins(t *testing.T) {
	elems := []Element{
		box("ui_0", 10, 10, 80, 80),
		box("ui_1", 20, 20, 30, 30),
		text("text_0", "a", 0, 0, 5, 5),
		text("text_1", "b", 95, 95, 5, 5),
	}
	tr, err := BuildHierarchy(elems, Options{})
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	Normalize(tr)

	if !tr.Normalized() {
		t.Error("Normalized() = false after Normalize")
	}

	root := tr.Node(tr.Root())
	if root.Margins != (tree.Margins{}) || root.SizeRel != (tree.Size{W: 1, H: 1}) {
		t.Errorf("root margins = %+v size = %+v", root.Margins, root.SizeRel)
	}

	i, _ := tr.Lookup("ui_1")
	n := tr.Node(i)
	want := tree.Margins{
		Top: 10, Left: 10, Right: 40, Bottom: 40,
		TopRel: 0.125, LeftRel: 0.125, RightRel: 0.5, BottomRel: 0.5,
	}
	if n.Margins != want {
		t.Errorf("ui_1 margins = %+v, want %+v", n.Margins, want)
	}
	if n.SizeRel != (tree.Size{W: 0.375, H: 0.375}) {
		t.Errorf("ui_1 size = %+v, want 0.375x0.375", n.SizeRel)
	}
	if n.FontSizeRelOuter != 0 {
		t.Errorf("box font size = %v, want 0", n.FontSizeRelOuter)
	}
}

func TestNormalize_TextFontSize(t *testing.T) {
	elems := []Element{
		box("ui_0", 0, 0, 100, 100),
		text("text_0", "Sign in", 10, 40, 50, 10),
	}
	tr, err := BuildHierarchy(elems, Options{})
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	Normalize(tr)

	i, _ := tr.Lookup("text_0")
	if got := tr.Node(i).FontSizeRelOuter; got != 0.1 {
		t.Errorf("font size = %v, want 0.1", got)
	}
}

func TestNormalize_ZeroParentExtent(t *testing.T) {
	// Hierarchy building never yields a zero-width parent, so the tree is
	// assembled by hand.
	tr := tree.New(RootID, geom.Rect{X: 5, Y: 0, W: 0, H: 0})
	c, _ := tr.AddNode("text_0", tree.KindText, geom.Rect{X: 5, Y: 0, W: 0, H: 0}, "x")
	if err := tr.Attach(tr.Root(), c); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	Normalize(tr)

	n := tr.Node(c)
	if n.Margins != (tree.Margins{}) {
		t.Errorf("margins = %+v, want zero", n.Margins)
	}
	if n.SizeRel != (tree.Size{}) {
		t.Errorf("size = %+v, want zero", n.SizeRel)
	}
	if n.FontSizeRelOuter != 0 {
		t.Errorf("font size = %v, want 0", n.FontSizeRelOuter)
	}
}

func TestNormalize_ScaleInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 9))
	elems := randomElements(r, 40)

	scaled := make([]Element, len(elems))
	for i, e := range elems {
		e.Rect = geom.Rect{X: e.Rect.X * 3, Y: e.Rect.Y * 3, W: e.Rect.W * 3, H: e.Rect.H * 3}
		scaled[i] = e
	}

	a, err := BuildHierarchy(elems, Options{})
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	b, err := BuildHierarchy(scaled, Options{})
	if err != nil {
		t.Fatalf("BuildHierarchy(scaled): %v", err)
	}
	Normalize(a)
	Normalize(b)

	for i := 0; i < a.Len(); i++ {
		na, nb := a.Node(i), b.Node(i)
		if a.ParentOf(i) != b.ParentOf(i) {
			t.Fatalf("%s: parent differs after scaling", na.ID)
		}
		ma, mb := na.Margins, nb.Margins
		pairs := [][2]float64{
			{ma.TopRel, mb.TopRel}, {ma.LeftRel, mb.LeftRel},
			{ma.RightRel, mb.RightRel}, {ma.BottomRel, mb.BottomRel},
			{na.SizeRel.W, nb.SizeRel.W}, {na.SizeRel.H, nb.SizeRel.H},
			{na.FontSizeRelOuter, nb.FontSizeRelOuter},
		}
		for _, p := range pairs {
			if !near(p[0], p[1]) {
				t.Fatalf("%s: relative field %v != %v after scaling", na.ID, p[0], p[1])
			}
		}
	}
}
