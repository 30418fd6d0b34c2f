// Package render groups the diagram renderers for layout trees.
//
// The [nodelink] subpackage draws the hierarchy as a top-down Graphviz graph:
// one node per element, one edge per parent-child pair. It emits DOT source
// and renders SVG in-process through go-graphviz, so no system Graphviz
// install is needed.
//
//	dot := nodelink.ToDOT(out.Layout, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package render
