package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/wiretree/pkg/cache"
	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/observability"
	"github.com/matzehuels/wiretree/pkg/render/nodelink"
)

// Cache key types reported to cache hooks.
const (
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedBuild is the cache payload for a layout. The full-precision tree is
// not stored.
type cachedBuild struct {
	Output   *layout.Output `json:"output"`
	Stats    Stats          `json:"stats"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

// Execute parses raw detector JSON and builds its layout. Diagrams are
// rendered only for the formats listed in opts.Formats.
func (r *Runner) Execute(ctx context.Context, raw []byte, opts Options) (*Result, error) {
	in, err := layout.ParseInput(raw)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, in, opts)
}

// Run builds the layout for parsed input and renders any requested formats.
func (r *Runner) Run(ctx context.Context, in *layout.Input, opts Options) (*Result, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}
	formats := opts.Formats

	result, err := r.BuildWithCacheInfo(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return result, nil
	}

	artifacts, _, err := r.RenderWithCacheInfo(ctx, result.Output, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	return result, nil
}

// BuildWithCacheInfo builds a layout, consulting the cache first unless
// opts.Refresh is set. Result.CacheHit reports where the output came from.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, in *layout.Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForBuild(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	inputHash, err := InputHash(in)
	if err != nil {
		return nil, err
	}
	result := &Result{
		BuildID:   uuid.NewString(),
		InputHash: inputHash,
	}
	cacheKey := r.Keyer.LayoutKey(inputHash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached cachedBuild
			if err := json.Unmarshal(data, &cached); err == nil && cached.Output != nil && cached.Output.Layout != nil {
				observability.Cache().OnCacheHit(ctx, keyTypeLayout)
				result.Output = cached.Output
				result.Stats = cached.Stats
				result.Warnings = cached.Warnings
				result.CacheHit = true
				logger.Debug("layout cache hit", "build", result.BuildID, "input", shortHash(inputHash))
				return result, nil
			}
			// Undecodable entry: fall through and rebuild.
		} else if err != nil {
			logger.Warn("cache read failed", "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
	}

	hooks := observability.Pipeline()
	hooks.OnBuildStart(ctx, inputHash, len(in.UIBoxes)+len(in.TextLabels))
	start := time.Now()

	built, err := Build(in, opts)
	if err != nil {
		hooks.OnBuildComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	if !opts.SkipDedup {
		hooks.OnDedup(ctx, built.Stats.UIAccepted+built.Stats.Duplicates, built.Stats.UIAccepted)
	}
	if built.Stats.Degenerate > 0 {
		hooks.OnDegenerate(ctx, built.Stats.Degenerate)
	}
	hooks.OnBuildComplete(ctx, built.Stats.Nodes, built.Stats.Depth, built.Stats.BuildTime, nil)

	for _, w := range built.Warnings {
		logger.Warn("dropped rect", "id", w.ID, "reason", w.Reason, "w", w.Rect.W, "h", w.Rect.H)
	}
	logger.Info("built layout",
		"build", result.BuildID,
		"nodes", built.Stats.Nodes,
		"depth", built.Stats.Depth,
		"duplicates", built.Stats.Duplicates,
		"duration", built.Stats.BuildTime)

	result.Output = built.Output
	result.Tree = built.Tree
	result.Stats = built.Stats
	result.Warnings = built.Warnings

	if data, err := json.Marshal(cachedBuild{Output: built.Output, Stats: built.Stats, Warnings: built.Warnings}); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err != nil {
			logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeLayout, len(data))
		}
	}
	return result, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo.
func (r *Runner) Build(ctx context.Context, in *layout.Input, opts Options) (*layout.Output, error) {
	result, err := r.BuildWithCacheInfo(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

// RenderWithCacheInfo renders tree diagrams with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, out *layout.Output, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	if out == nil || out.Layout == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "layout has no root node")
	}

	// Compute cache key from layout data
	layoutData, err := layout.MarshalOutput(out)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)))
		if err != nil || !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)

	rendered, err := RenderDiagrams(ctx, out, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	opts.Logger.Info("rendered diagrams", "formats", opts.Formats)
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, out *layout.Output, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, out, opts)
	return artifacts, err
}

// RenderDiagrams renders out in each of opts.Formats without caching.
func RenderDiagrams(ctx context.Context, out *layout.Output, opts Options) (map[string][]byte, error) {
	dot := nodelink.ToDOT(out.Layout, nodelink.Options{Detailed: opts.Detailed})
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		start := time.Now()
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, dot)
		default:
			err = errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
		}
		observability.Pipeline().OnRenderComplete(ctx, format, time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// InputHash returns the content hash of the canonical JSON form of in.
// Inputs that differ only in whitespace or key order hash the same.
func InputHash(in *layout.Input) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode input")
	}
	return cache.Hash(data), nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
