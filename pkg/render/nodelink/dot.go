package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/wiretree/pkg/layout"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the relative layout values and label text in node
	// labels. When false, only the node ID and type are shown.
	Detailed bool
}

// maxLabelText bounds the label text shown in detailed mode.
const maxLabelText = 32

// ToDOT converts a layout tree to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Nodes are emitted in pre-order and edges in child order, so the same tree
// always yields the same DOT source. Text nodes are drawn as notes and the
// root with a bold outline.
func ToDOT(root *layout.Node, opts Options) string {
	var nodes, edges bytes.Buffer

	root.Walk(func(n *layout.Node, _ int) bool {
		fmt.Fprintf(&nodes, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, fmtLabel(n, opts.Detailed)), ", "))
		for _, c := range n.Children {
			fmt.Fprintf(&edges, "  %q -> %q;\n", n.ID, c.ID)
		}
		return true
	})

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")
	buf.Write(nodes.Bytes())
	buf.WriteString("\n")
	buf.Write(edges.Bytes())
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *layout.Node, detailed bool) string {
	head := n.ID + " (" + n.Type + ")"
	if !detailed {
		return head
	}

	l := n.Layout
	parts := []string{
		head,
		fmt.Sprintf("top %s  left %s", num(l.Top), num(l.Left)),
		fmt.Sprintf("right %s  bottom %s", num(l.Right), num(l.Bottom)),
		fmt.Sprintf("w %s  h %s", num(l.Width), num(l.Height)),
	}
	if n.IsText() {
		text := n.TextValue()
		if r := []rune(text); len(r) > maxLabelText {
			text = string(r[:maxLabelText-1]) + "…"
		}
		parts = append(parts, strconv.Quote(text))
		if n.Font != nil {
			parts = append(parts, "font "+num(n.Font.SizeRelOuter))
		}
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n *layout.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Type {
	case layout.TypeRoot:
		attrs = append(attrs, "penwidth=2")
	case layout.TypeText:
		attrs = append(attrs, "shape=note", "style=filled", "fillcolor=lightyellow")
	}
	return attrs
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root svg tag so the drawing scales to its
// container: origin at 0,0 and width/height taken from the view box.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
