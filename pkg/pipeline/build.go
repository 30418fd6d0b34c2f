package pipeline

import (
	"slices"
	"strconv"
	"time"

	"github.com/matzehuels/wiretree/pkg/dedup"
	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/geom"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/tree"
	"github.com/matzehuels/wiretree/pkg/tree/transform"
)

// Element ID prefixes. Suffixes are the element's index in the input lists,
// so IDs stay stable when other elements are dropped.
const (
	uiPrefix   = "ui_"
	textPrefix = "text_"
)

const reasonDegenerate = "has non-positive width or height"

// Built is the outcome of a pure build.
type Built struct {
	Output   *layout.Output
	Tree     *tree.Tree
	Stats    Stats
	Warnings []Warning
}

// BuildLayout converts detector input into a simplified layout using the
// default options.
//
// It fails with EMPTY_INPUT when the input has no boxes and no labels, or
// when every rect is degenerate. No partial output is returned on error.
func BuildLayout(in *layout.Input) (*layout.Output, error) {
	b, err := Build(in, Options{})
	if err != nil {
		return nil, err
	}
	return b.Output, nil
}

// Build runs the full transform on in. It performs no I/O and does not log;
// degenerate rects are reported in Built.Warnings.
func Build(in *layout.Input, opts Options) (*Built, error) {
	if err := opts.ValidateForBuild(); err != nil {
		return nil, err
	}
	if in.Empty() {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no ui_boxes or text_labels found")
	}

	if err := checkFinite(in); err != nil {
		return nil, err
	}

	start := time.Now()
	b := &Built{}
	b.Stats.UICandidates = len(in.UIBoxes)
	b.Stats.TextLabels = len(in.TextLabels)

	cands := make([]dedup.Candidate, 0, len(in.UIBoxes))
	for i, r := range in.UIBoxes {
		if r.Degenerate() {
			b.Warnings = append(b.Warnings, Warning{ID: uiPrefix + strconv.Itoa(i), Rect: r, Reason: reasonDegenerate})
			continue
		}
		cands = append(cands, dedup.Candidate{Index: i, Rect: r, Area: r.Area()})
	}

	accepted := cands
	if !opts.SkipDedup {
		accepted = dedup.Deduplicate(cands, opts.IoUThreshold)
		// Restore input order so arena indices, and with them tie-breaks,
		// follow the detector's ordering.
		slices.SortFunc(accepted, func(a, c dedup.Candidate) int { return a.Index - c.Index })
	}
	b.Stats.UIAccepted = len(accepted)
	b.Stats.Duplicates = len(cands) - len(accepted)

	elems := make([]transform.Element, 0, len(accepted)+len(in.TextLabels))
	for _, c := range accepted {
		elems = append(elems, transform.Element{
			ID:   uiPrefix + strconv.Itoa(c.Index),
			Kind: tree.KindBox,
			Rect: c.Rect,
		})
	}
	for i, l := range in.TextLabels {
		id := textPrefix + strconv.Itoa(i)
		if l.BBox.Degenerate() {
			b.Warnings = append(b.Warnings, Warning{ID: id, Rect: l.BBox, Reason: reasonDegenerate})
			continue
		}
		elems = append(elems, transform.Element{ID: id, Kind: tree.KindText, Rect: l.BBox, Text: l.Text})
	}
	b.Stats.Degenerate = len(b.Warnings)

	if len(elems) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "all %d rects are degenerate", b.Stats.Degenerate)
	}

	rects := make([]geom.Rect, len(elems))
	for i, e := range elems {
		rects[i] = e.Rect
	}
	if bounds, _ := geom.Union(rects...); !bounds.Finite() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "combined extent of all rects overflows")
	}

	t, err := transform.BuildHierarchy(elems, transform.Options{Tolerance: opts.Tolerance})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build hierarchy")
	}
	if err := t.Validate(opts.Tolerance); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvariant, err, "layout tree failed validation")
	}
	transform.Normalize(t)

	root, err := layout.Simplify(t)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "simplify")
	}

	b.Tree = t
	b.Output = &layout.Output{ImagePath: in.ImagePath, Layout: root}
	b.Stats.Nodes = t.Len()
	b.Stats.Depth = t.Depth()
	b.Stats.BuildTime = time.Since(start)
	return b, nil
}

// checkFinite rejects inputs built in code with coordinates the parser would
// have refused.
func checkFinite(in *layout.Input) error {
	for i, r := range in.UIBoxes {
		if !r.Finite() {
			return errors.New(errors.ErrCodeInvalidInput, "ui_boxes[%d]: extent is not finite", i)
		}
	}
	for i, l := range in.TextLabels {
		if !l.BBox.Finite() {
			return errors.New(errors.ErrCodeInvalidInput, "text_labels[%d].bbox: extent is not finite", i)
		}
	}
	return nil
}
