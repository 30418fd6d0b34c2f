package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/wiretree/pkg/cache"
	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/observability"
)

// memCache is an in-memory cache.Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

// recordingHooks counts pipeline and cache hook calls.
type recordingHooks struct {
	observability.NoopPipelineHooks
	mu                     sync.Mutex
	builds, failed, dedups int
	hits, misses           map[string]int
}

func newRecordingHooks(t *testing.T) *recordingHooks {
	h := &recordingHooks{hits: map[string]int{}, misses: map[string]int{}}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	t.Cleanup(observability.Reset)
	return h
}

func (h *recordingHooks) OnBuildComplete(_ context.Context, _, _ int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.failed++
		return
	}
	h.builds++
}

func (h *recordingHooks) OnDedup(context.Context, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dedups++
}

func (h *recordingHooks) OnCacheHit(_ context.Context, keyType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits[keyType]++
}

func (h *recordingHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses[keyType]++
}

func (h *recordingHooks) OnCacheSet(context.Context, string, int) {}

const sampleInput = `{
  "image_path": "login.png",
  "ui_boxes": [
    {"x": 0, "y": 0, "w": 60, "h": 100},
    {"x": 5, "y": 5, "w": 50, "h": 20},
    {"x": 6, "y": 6, "w": 49, "h": 19}
  ],
  "text_labels": [{"text": "Sign in", "bbox": {"x": 10, "y": 10, "w": 40, "h": 10}}]
}`

func TestRunnerExecute(t *testing.T) {
	ctx := context.Background()
	hooks := newRecordingHooks(t)
	r := NewRunner(newMemCache(), nil, nil)

	res, err := r.Execute(ctx, []byte(sampleInput), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.BuildID == "" || res.InputHash == "" {
		t.Errorf("BuildID = %q, InputHash = %q", res.BuildID, res.InputHash)
	}
	if res.CacheHit {
		t.Error("first run reported a cache hit")
	}
	if res.Tree == nil {
		t.Error("Tree is nil on a fresh build")
	}
	if res.Output.ImagePath != "login.png" {
		t.Errorf("ImagePath = %q", res.Output.ImagePath)
	}
	if res.Stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Stats.Duplicates)
	}
	if res.Artifacts != nil {
		t.Errorf("Artifacts = %v, want none without formats", res.Artifacts)
	}
	if hooks.builds != 1 || hooks.dedups != 1 {
		t.Errorf("hooks: builds=%d dedups=%d, want 1 and 1", hooks.builds, hooks.dedups)
	}
}

func TestRunnerCache(t *testing.T) {
	ctx := context.Background()
	hooks := newRecordingHooks(t)
	c := newMemCache()
	r := NewRunner(c, nil, nil)

	first, err := r.Execute(ctx, []byte(sampleInput), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Same content, different formatting and key order.
	reordered := `{"text_labels":[{"bbox":{"y":10,"x":10,"h":10,"w":40},"text":"Sign in"}],"ui_boxes":[{"y":0,"x":0,"h":100,"w":60},{"y":5,"x":5,"h":20,"w":50},{"y":6,"x":6,"h":19,"w":49}],"image_path":"login.png"}`
	second, err := r.Execute(ctx, []byte(reordered), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second run missed the cache")
	}
	if second.Tree != nil {
		t.Error("Tree should be nil on a cache hit")
	}
	if second.InputHash != first.InputHash {
		t.Errorf("InputHash differs: %s vs %s", second.InputHash, first.InputHash)
	}
	if second.BuildID == first.BuildID {
		t.Error("BuildID reused across runs")
	}

	a, _ := layout.MarshalOutput(first.Output)
	b, _ := layout.MarshalOutput(second.Output)
	if !bytes.Equal(a, b) {
		t.Errorf("cached output differs:\n%s\n%s", a, b)
	}
	if second.Stats.Nodes != first.Stats.Nodes {
		t.Errorf("cached stats = %+v, want %+v", second.Stats, first.Stats)
	}

	if hooks.hits["layout"] != 1 || hooks.misses["layout"] != 1 {
		t.Errorf("layout hits=%d misses=%d, want 1 and 1", hooks.hits["layout"], hooks.misses["layout"])
	}
	if hooks.builds != 1 {
		t.Errorf("builds = %d, want 1", hooks.builds)
	}
}

func TestRunnerRefreshAndOptionsKey(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, nil, nil)

	if _, err := r.Execute(ctx, []byte(sampleInput), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	res, err := r.Execute(ctx, []byte(sampleInput), Options{Refresh: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheHit {
		t.Error("Refresh should bypass the cache")
	}

	res, err = r.Execute(ctx, []byte(sampleInput), Options{SkipDedup: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheHit {
		t.Error("different options should not share a cache entry")
	}
	if res.Stats.Duplicates != 0 {
		t.Errorf("Duplicates = %d with dedup skipped", res.Stats.Duplicates)
	}
}

func TestRunnerCorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, nil, nil)

	in, err := layout.ParseInput([]byte(sampleInput))
	if err != nil {
		t.Fatalf("ParseInput: %v", err)
	}
	hash, err := InputHash(in)
	if err != nil {
		t.Fatalf("InputHash: %v", err)
	}
	opts := Options{}
	if err := opts.ValidateForBuild(); err != nil {
		t.Fatal(err)
	}
	_ = c.Set(ctx, r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts()), []byte("not json"), 0)

	res, err := r.BuildWithCacheInfo(ctx, in, Options{})
	if err != nil {
		t.Fatalf("BuildWithCacheInfo: %v", err)
	}
	if res.CacheHit || res.Output == nil {
		t.Error("corrupt entry should be rebuilt")
	}
}

func TestRunnerErrors(t *testing.T) {
	ctx := context.Background()
	hooks := newRecordingHooks(t)
	r := NewRunner(nil, nil, nil)

	tests := []struct {
		name string
		raw  string
		opts Options
		code errors.Code
	}{
		{"malformed", `{"ui_boxes": [`, Options{}, errors.ErrCodeInvalidInput},
		{"empty", `{}`, Options{}, errors.ErrCodeEmptyInput},
		{"coordinate overflow", `{"ui_boxes": [{"x": 0, "y": 0, "w": 1e400, "h": 10}]}`, Options{}, errors.ErrCodeInvalidInput},
		{"bad format", sampleInput, Options{Formats: []string{"pdf"}}, errors.ErrCodeInvalidFormat},
		{"bad tolerance", sampleInput, Options{Tolerance: -2}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Execute(ctx, []byte(tt.raw), tt.opts)
			if res != nil {
				t.Error("result returned on error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
	if hooks.failed != 1 {
		t.Errorf("failed builds = %d, want 1", hooks.failed)
	}
}

func TestRunnerRenderDOT(t *testing.T) {
	ctx := context.Background()
	newRecordingHooks(t)
	c := newMemCache()
	r := NewRunner(c, cache.NewScopedKeyer(nil, "test"), nil)

	res, err := r.Execute(ctx, []byte(sampleInput), Options{Formats: []string{FormatDOT}, Detailed: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	dot := string(res.Artifacts[FormatDOT])
	for _, want := range []string{"digraph G {", `"outer_0" -> "ui_0"`, `"ui_0" -> "ui_1"`, `"ui_1" -> "text_0"`, "Sign in"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}

	artifacts, hit, err := r.RenderWithCacheInfo(ctx, res.Output, Options{Formats: []string{FormatDOT}, Detailed: true})
	if err != nil {
		t.Fatalf("RenderWithCacheInfo: %v", err)
	}
	if !hit {
		t.Error("second render missed the cache")
	}
	if string(artifacts[FormatDOT]) != dot {
		t.Error("cached DOT differs")
	}

	if _, _, err := r.RenderWithCacheInfo(ctx, &layout.Output{}, Options{Formats: []string{FormatDOT}}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("render without layout: err = %v, want INVALID_INPUT", err)
	}
}
