// Package pipeline provides the layout pipeline for wiretree.
//
// This package turns raw detector output into a simplified layout tree and
// can be used by both the CLI and the API server. By centralizing this logic,
// every entry point applies the same filtering, deduplication and checks.
//
// # Architecture
//
// A build runs these stages in order:
//
//  1. Filter: drop rects with non-positive width or height (recorded as warnings)
//  2. Dedup: suppress near-duplicate UI boxes by IoU
//  3. Hierarchy: assign each element its tightest enclosing parent
//  4. Validate: check the tree invariants
//  5. Normalize: compute parent-relative geometry
//  6. Simplify: project to the rounded wire format
//
// [Build] and [BuildLayout] are pure. [Runner] wraps them with caching,
// logging and observability hooks, and renders tree diagrams.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, raw, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	layout.WriteOutputFile(result.Output, "layout.json")
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wiretree/pkg/cache"
	"github.com/matzehuels/wiretree/pkg/dedup"
	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/geom"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/tree"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultTolerance is the containment slack. Detector output is integer
	// pixels, so exact containment is the default.
	DefaultTolerance = 0.0

	// DefaultIoUThreshold is the overlap above which two UI boxes are
	// considered the same element.
	DefaultIoUThreshold = dedup.DefaultThreshold
)

// Format constants for tree diagram outputs.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats lists the supported diagram formats.
var ValidFormats = []string{FormatDOT, FormatSVG}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a build.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Build options
	Tolerance    float64 `json:"tolerance,omitempty"`
	IoUThreshold float64 `json:"iou_threshold,omitempty"`
	SkipDedup    bool    `json:"skip_dedup,omitempty"`
	Refresh      bool    `json:"refresh,omitempty"` // Ignore cached layouts

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // Include relative geometry in diagram labels

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// BuildID uniquely identifies this run.
	BuildID string

	// InputHash is the content hash of the canonical input.
	InputHash string

	// Output is the simplified layout.
	Output *layout.Output

	// Tree is the full-precision tree. It is nil when Output came from cache.
	Tree *tree.Tree

	// Stats contains counts and timing.
	Stats Stats

	// Warnings lists recoverable problems found in the input.
	Warnings []Warning

	// CacheHit reports whether Output came from cache.
	CacheHit bool

	// Artifacts maps each requested diagram format to its bytes.
	Artifacts map[string][]byte
}

// Stats contains build statistics.
type Stats struct {
	UICandidates int           `json:"ui_candidates"`
	UIAccepted   int           `json:"ui_accepted"`
	Duplicates   int           `json:"duplicates"`
	TextLabels   int           `json:"text_labels"`
	Degenerate   int           `json:"degenerate"`
	Nodes        int           `json:"nodes"`
	Depth        int           `json:"depth"`
	BuildTime    time.Duration `json:"build_time"`
}

// Warning describes an input rect that was dropped without failing the build.
type Warning struct {
	ID     string    `json:"id"`
	Rect   geom.Rect `json:"rect"`
	Reason string    `json:"reason"`
}

// String formats the warning for logs.
func (w Warning) String() string {
	return fmt.Sprintf("%s %s: w=%g h=%g", w.ID, w.Reason, w.Rect.W, w.Rect.H)
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are supported diagram formats.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := errors.ValidateFormat(f, ValidFormats...); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetBuildDefaults sets default values for building.
func (o *Options) SetBuildDefaults() {
	if o.IoUThreshold == 0 {
		o.IoUThreshold = DefaultIoUThreshold
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForBuild validates and sets defaults for building.
func (o *Options) ValidateForBuild() error {
	if err := errors.ValidateTolerance(o.Tolerance); err != nil {
		return err
	}
	if err := errors.ValidateThreshold(o.IoUThreshold); err != nil {
		return err
	}
	o.SetBuildDefaults()
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// LayoutKeyOpts returns cache key options for a build.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Tolerance:    o.Tolerance,
		IoUThreshold: o.IoUThreshold,
		SkipDedup:    o.SkipDedup,
	}
}

// ArtifactKeyOpts returns cache key options for a diagram render.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Detailed: o.Detailed,
	}
}
