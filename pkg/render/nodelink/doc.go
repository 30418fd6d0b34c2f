// Package nodelink renders layout trees as node-link diagrams.
//
// # Overview
//
// Each layout node becomes a box and each parent/child relation an arrow,
// laid out top to bottom by Graphviz. The diagram is a debugging aid for
// checking which element ended up inside which.
//
// # Usage
//
//	dot := nodelink.ToDOT(out.Layout, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which embeds Graphviz as
// WebAssembly, so no system installation is needed.
package nodelink
