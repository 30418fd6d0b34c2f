package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/pipeline"
	"github.com/matzehuels/wiretree/pkg/store"
)

// buildFlags holds the command-line flags of the build command.
type buildFlags struct {
	output     string
	formatsStr string
	noCache    bool
	noDedup    bool
	save       bool
	jobs       int
}

// buildCommand creates the build command for turning detector output into layouts.
func (c *CLI) buildCommand() *cobra.Command {
	var flags buildFlags
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "build [detections.json]...",
		Short: "Build layout trees from detector output",
		Long: `Build layout trees from detector output.

Each input is a JSON document with "ui_boxes" and "text_labels". The command
drops degenerate rects, suppresses duplicate boxes, nests every element in its
tightest enclosing box and writes <input>.layout.json with parent-relative
geometry rounded to four decimals.

Several inputs are built concurrently. Results are cached locally, keyed by
input content and options.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != "" && len(args) > 1 {
				return errors.New(errors.ErrCodeInvalidInput, "--output requires a single input")
			}
			return c.runBuild(cmd, args, opts, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&flags.formatsStr, "format", "f", "", "also render diagrams: dot, svg (comma-separated)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "include geometry in diagram labels")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", pipeline.DefaultTolerance, "containment slack in pixels")
	cmd.Flags().Float64Var(&opts.IoUThreshold, "iou", pipeline.DefaultIoUThreshold, "overlap above which two boxes are duplicates")
	cmd.Flags().BoolVar(&flags.noDedup, "no-dedup", false, "keep overlapping duplicate boxes")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached layouts")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&flags.save, "save", false, "archive results for 'wiretree history'")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", runtime.NumCPU(), "inputs to build concurrently")

	return cmd
}

// buildJob is one input and, once built, its result.
type buildJob struct {
	input   string
	output  string
	result  *pipeline.Result
	written []string
}

// runBuild merges flags over the config file and builds every input.
func (c *CLI) runBuild(cmd *cobra.Command, inputs []string, opts pipeline.Options, flags buildFlags) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	base := cfg.PipelineOptions()
	if cmd.Flags().Changed("tolerance") {
		base.Tolerance = opts.Tolerance
	}
	if cmd.Flags().Changed("iou") {
		base.IoUThreshold = opts.IoUThreshold
	}
	if cmd.Flags().Changed("no-dedup") {
		base.SkipDedup = flags.noDedup
	}
	base.Refresh = opts.Refresh
	base.Detailed = opts.Detailed
	if flags.formatsStr != "" {
		base.Formats = parseFormats(flags.formatsStr)
	}
	base.Logger = c.Logger
	if err := pipeline.ValidateFormats(base.Formats); err != nil {
		return err
	}
	if err := base.ValidateForBuild(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg.Cache, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var history store.Store
	if flags.save {
		h, err := newHistory()
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		history = h
		defer history.Close()
	}

	jobs := make([]*buildJob, len(inputs))
	for i, in := range inputs {
		out := flags.output
		if out == "" {
			out = outputBase(in) + ".layout.json"
		}
		jobs[i] = &buildJob{input: in, output: out}
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Building %d layout(s)...", len(jobs)))
	spinner.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(flags.jobs, 1))
	for _, job := range jobs {
		g.Go(func() error {
			return buildOne(gctx, runner, history, job, base)
		})
	}
	if err := g.Wait(); err != nil {
		spinner.StopWithError("Build failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done(fmt.Sprintf("Built %d layout(s)", len(jobs)))

	for _, job := range jobs {
		printSuccess("%s", job.input)
		for _, path := range job.written {
			printFile(path)
		}
		printStats(job.result.Stats, job.result.CacheHit)
		printWarnings(job.result.Warnings)
		if history != nil {
			printDetail("saved as %s", job.result.BuildID)
		}
	}
	printNewline()
	if len(base.Formats) == 0 {
		printNextStep("Render", appName+" render "+jobs[0].output)
	} else {
		printNextStep("Inspect", appName+" inspect "+jobs[0].output)
	}
	return nil
}

// buildOne builds a single input and writes its layout and diagrams.
func buildOne(ctx context.Context, runner *pipeline.Runner, history store.Store, job *buildJob, opts pipeline.Options) error {
	in, err := layout.ReadInputFile(job.input)
	if err != nil {
		return fmt.Errorf("%s: %w", job.input, err)
	}
	res, err := runner.Run(ctx, in, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", job.input, err)
	}

	if err := layout.WriteOutputFile(res.Output, job.output); err != nil {
		return fmt.Errorf("write output %s: %w", job.output, err)
	}
	job.written = append(job.written, job.output)

	for _, format := range opts.Formats {
		path := outputBase(job.output) + "." + format
		if err := os.WriteFile(path, res.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		job.written = append(job.written, path)
	}

	if history != nil {
		if err := history.Save(ctx, store.NewRecord(res)); err != nil {
			return fmt.Errorf("save %s: %w", job.input, err)
		}
	}
	job.result = res
	return nil
}
