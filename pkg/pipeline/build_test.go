package pipeline

import (
	"bytes"
	"math"
	"testing"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/geom"
	"github.com/matzehuels/wiretree/pkg/layout"
)

func rect(x, y, w, h float64) geom.Rect { return geom.Rect{X: x, Y: y, W: w, H: h} }

func label(text string, x, y, w, h float64) layout.TextLabel {
	return layout.TextLabel{Text: text, BBox: rect(x, y, w, h)}
}

// index maps node IDs to nodes and their parents' IDs.
func index(root *layout.Node) (map[string]*layout.Node, map[string]string) {
	nodes := map[string]*layout.Node{}
	parents := map[string]string{}
	root.Walk(func(n *layout.Node, _ int) bool {
		nodes[n.ID] = n
		for _, c := range n.Children {
			parents[c.ID] = n.ID
		}
		return true
	})
	return nodes, parents
}

func TestBuildNestedBox(t *testing.T) {
	// Corner labels stretch the outer box to 0,0..100,100.
	in := &layout.Input{
		UIBoxes: []geom.Rect{rect(10, 10, 80, 80), rect(20, 20, 30, 30)},
		TextLabels: []layout.TextLabel{
			label("a", 0, 0, 5, 5),
			label("b", 95, 95, 5, 5),
		},
	}

	b, err := Build(in, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	root := b.Output.Layout
	if root.ID != "outer_0" || root.Type != layout.TypeRoot {
		t.Fatalf("root = %s/%s, want outer_0/root", root.ID, root.Type)
	}
	if root.Layout.Width != 1 || root.Layout.Height != 1 {
		t.Errorf("root size = %v x %v, want 1 x 1", root.Layout.Width, root.Layout.Height)
	}

	_, parents := index(root)
	if got := parents["ui_1"]; got != "ui_0" {
		t.Errorf("parent(ui_1) = %q, want ui_0", got)
	}
	if got := parents["ui_0"]; got != "outer_0" {
		t.Errorf("parent(ui_0) = %q, want outer_0", got)
	}
	if b.Stats.Nodes != 5 || b.Stats.Depth != 2 {
		t.Errorf("stats = %+v, want 5 nodes depth 2", b.Stats)
	}
}

func TestBuildDedup(t *testing.T) {
	in := &layout.Input{UIBoxes: []geom.Rect{rect(2, 2, 48, 48), rect(0, 0, 50, 50)}}

	b, err := Build(in, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	nodes, _ := index(b.Output.Layout)
	if _, ok := nodes["ui_1"]; !ok {
		t.Error("larger box ui_1 was suppressed")
	}
	if _, ok := nodes["ui_0"]; ok {
		t.Error("smaller duplicate ui_0 survived")
	}
	if b.Stats.Duplicates != 1 || b.Stats.UIAccepted != 1 {
		t.Errorf("stats = %+v, want 1 duplicate 1 accepted", b.Stats)
	}
}

func TestBuildSkipDedup(t *testing.T) {
	in := &layout.Input{UIBoxes: []geom.Rect{rect(0, 0, 50, 50), rect(2, 2, 48, 48)}}

	b, err := Build(in, Options{SkipDedup: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, parents := index(b.Output.Layout)
	if got := parents["ui_1"]; got != "ui_0" {
		t.Errorf("parent(ui_1) = %q, want ui_0", got)
	}
	if b.Stats.Duplicates != 0 {
		t.Errorf("Duplicates = %d, want 0", b.Stats.Duplicates)
	}
}

func TestBuildDedupThreshold(t *testing.T) {
	// IoU of these two is 0.64.
	in := &layout.Input{UIBoxes: []geom.Rect{rect(0, 0, 100, 100), rect(0, 0, 80, 80)}}

	b, err := Build(in, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Stats.UIAccepted != 2 {
		t.Errorf("default threshold accepted %d boxes, want 2", b.Stats.UIAccepted)
	}

	b, err = Build(in, Options{IoUThreshold: 0.5})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Stats.UIAccepted != 1 {
		t.Errorf("threshold 0.5 accepted %d boxes, want 1", b.Stats.UIAccepted)
	}
}

func TestBuildTextFontSize(t *testing.T) {
	in := &layout.Input{
		UIBoxes:    []geom.Rect{rect(0, 0, 60, 100), rect(70, 0, 30, 30)},
		TextLabels: []layout.TextLabel{label("Sign in", 10, 10, 40, 10)},
	}

	b, err := Build(in, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	nodes, parents := index(b.Output.Layout)
	txt := nodes["text_0"]
	if txt == nil {
		t.Fatal("text_0 missing")
	}
	if txt.Font == nil || txt.Font.SizeRelOuter != 0.1 {
		t.Errorf("font = %+v, want size_rel_outer 0.1", txt.Font)
	}
	if txt.TextValue() != "Sign in" {
		t.Errorf("text = %q", txt.TextValue())
	}
	if parents["text_0"] != "ui_0" {
		t.Errorf("parent(text_0) = %q, want ui_0", parents["text_0"])
	}
}

func TestBuildDegenerateWarnings(t *testing.T) {
	in := &layout.Input{
		UIBoxes:    []geom.Rect{rect(0, 0, 100, 100), rect(10, 10, 0, 20), rect(20, 20, 10, 10)},
		TextLabels: []layout.TextLabel{label("x", 5, 5, 10, -1)},
	}

	b, err := Build(in, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(b.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", b.Warnings)
	}
	if b.Warnings[0].ID != "ui_1" || b.Warnings[1].ID != "text_0" {
		t.Errorf("warning IDs = %s, %s", b.Warnings[0].ID, b.Warnings[1].ID)
	}
	if b.Stats.Degenerate != 2 {
		t.Errorf("Degenerate = %d, want 2", b.Stats.Degenerate)
	}

	// Surviving IDs keep their input index.
	nodes, _ := index(b.Output.Layout)
	if _, ok := nodes["ui_2"]; !ok {
		t.Error("ui_2 missing")
	}
	if _, ok := nodes["ui_1"]; ok {
		t.Error("degenerate ui_1 present")
	}
}

func TestBuildEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   *layout.Input
	}{
		{"no elements", &layout.Input{}},
		{"all degenerate", &layout.Input{
			UIBoxes:    []geom.Rect{rect(0, 0, 0, 0)},
			TextLabels: []layout.TextLabel{label("x", 0, 0, 5, 0)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Build(tt.in, Options{})
			if b != nil {
				t.Error("partial output returned on error")
			}
			if !errors.Is(err, errors.ErrCodeEmptyInput) {
				t.Errorf("err = %v, want EMPTY_INPUT", err)
			}
		})
	}
}

func TestBuildNonFinite(t *testing.T) {
	tests := []struct {
		name string
		in   *layout.Input
	}{
		{"infinite box", &layout.Input{UIBoxes: []geom.Rect{rect(0, 0, math.Inf(1), 10)}}},
		{"nan label", &layout.Input{TextLabels: []layout.TextLabel{label("a", math.NaN(), 0, 5, 5)}}},
		{"right edge overflows", &layout.Input{UIBoxes: []geom.Rect{rect(1e308, 0, 1e308, 10), rect(1, 1, 2, 2)}}},
		{"union overflows", &layout.Input{UIBoxes: []geom.Rect{rect(-1.5e308, 0, 10, 10), rect(1.5e308, 0, 10, 10)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Build(tt.in, Options{})
			if b != nil {
				t.Error("partial output returned on error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestBuildInvalidOptions(t *testing.T) {
	in := &layout.Input{UIBoxes: []geom.Rect{rect(0, 0, 10, 10)}}
	if _, err := Build(in, Options{Tolerance: -1}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestBuildDeterministic(t *testing.T) {
	in := &layout.Input{
		ImagePath: "shot.png",
		UIBoxes: []geom.Rect{
			rect(0, 0, 400, 300), rect(10, 10, 180, 120), rect(210, 10, 180, 120),
			rect(20, 20, 50, 30), rect(11, 11, 178, 118),
		},
		TextLabels: []layout.TextLabel{label("OK", 25, 25, 30, 12), label("Cancel", 220, 20, 60, 12)},
	}

	first, err := BuildLayout(in)
	if err != nil {
		t.Fatalf("BuildLayout: %v", err)
	}
	want, _ := layout.MarshalOutput(first)
	for range 5 {
		out, err := BuildLayout(in)
		if err != nil {
			t.Fatalf("BuildLayout: %v", err)
		}
		got, _ := layout.MarshalOutput(out)
		if !bytes.Equal(got, want) {
			t.Fatalf("output differs between runs:\n%s\n%s", got, want)
		}
	}
	if first.ImagePath != "shot.png" {
		t.Errorf("ImagePath = %q", first.ImagePath)
	}
}
