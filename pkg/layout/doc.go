// Package layout defines the wire format of wiretree: the raw detection input
// and the simplified layout tree handed to downstream consumers.
//
// # Architecture
//
// The package sits at the serialization boundary between the geometric core
// and external callers:
//
//   - [Input], [TextLabel]: detector output (this package)
//   - [Output], [Node]: simplified, rounded layout tree (this package)
//   - pkg/tree.Tree: internal arena with absolute and relative geometry
//
// [ParseInput] validates raw JSON strictly and converts it to an [Input].
// [Simplify] projects a normalized tree into a [Node] hierarchy.
//
// # Input Format
//
//	{
//	  "image_path": "screens/login.png",
//	  "ui_boxes": [{"x": 0, "y": 0, "w": 400, "h": 800}],
//	  "text_labels": [{"text": "Sign in", "bbox": {"x": 40, "y": 80, "w": 120, "h": 24}}]
//	}
//
// Missing or null "ui_boxes" and "text_labels" are treated as empty lists.
// Any other deviation (wrong types, missing coordinates, missing label text)
// is rejected with an INVALID_INPUT error and nothing is returned.
//
// # Output Format
//
//	{
//	  "image_path": "screens/login.png",
//	  "layout": {
//	    "id": "outer_0",
//	    "type": "root",
//	    "layout": {"top": 0, "left": 0, "right": 0, "bottom": 0, "width": 1, "height": 1},
//	    "children": [...]
//	  }
//	}
//
// Text nodes additionally carry "text" and "font": {"size_rel_outer": f}.
// Every float is rounded to 4 decimal places. Rounding happens only here and
// never feeds back into geometry.
//
// # Common Operations
//
//	in, _ := layout.ReadInputFile("raw.json")         // File → Input
//	out, _ := layout.ReadOutputFile("layout.json")    // File → Output
//	layout.WriteOutputFile(out, "layout.json")        // Output → File
//	data, _ := layout.MarshalOutput(out)              // Output → []byte
package layout
