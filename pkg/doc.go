// Package pkg provides the libraries behind wiretree.
//
// # Overview
//
// Wiretree takes the flat output of a UI element detector (boxes and OCR text
// regions in pixel coordinates) and rebuilds the containment hierarchy a
// screen was drawn from. The pkg directory is organized as:
//
//  1. [geom], [dedup], [tree] - Geometry, duplicate suppression and the
//     hierarchy tree with its builder and normalizer
//  2. [layout] - Detector input parsing and the rounded wire format
//  3. [pipeline] - Orchestration (filter → dedup → hierarchy → normalize → simplify)
//  4. [cache], [store], [config] - Infrastructure
//  5. [api], [render], [observability] - Outer surfaces
//
// # Architecture
//
//	Detector JSON (ui_boxes, text_labels)
//	         ↓
//	    [layout] ParseInput
//	         ↓
//	    [dedup] drop near-duplicate boxes by IoU
//	         ↓
//	    [tree/transform] BuildHierarchy, Normalize
//	         ↓
//	    [layout] Simplify (4-decimal rounding)
//	         ↓
//	    layout.json, DOT/SVG diagram
//
// # Quick Start
//
//	in, _ := layout.ReadInputFile("login.json")
//	built, err := pipeline.Build(in, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	layout.WriteOutputFile(built.Output, "login.layout.json")
//
// For caching, logging and diagrams use [pipeline.Runner].
package pkg
