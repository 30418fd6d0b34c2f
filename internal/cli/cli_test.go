package cli

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/pipeline"
	"github.com/matzehuels/wiretree/pkg/store"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"svg"}},
		{"dot", []string{"dot"}},
		{"dot,svg", []string{"dot", "svg"}},
		{" dot , svg ,", []string{"dot", "svg"}},
	}

	for _, tt := range tests {
		if got := parseFormats(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		name   string
		format string
		n      int
		input  string
		output string
		want   string
	}{
		{"next to input", "svg", 1, "shots/login.layout.json", "", "shots/login.svg"},
		{"plain json input", "dot", 2, "login.json", "", "login.dot"},
		{"single explicit output", "svg", 1, "login.layout.json", "out/tree.image", "out/tree.image"},
		{"output as base path", "dot", 2, "login.layout.json", "out/tree.svg", "out/tree.dot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := artifactPath(tt.format, tt.n, tt.input, tt.output); got != tt.want {
				t.Errorf("artifactPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatsLine(t *testing.T) {
	stats := pipeline.Stats{Nodes: 7, Depth: 3, Duplicates: 2}

	line := statsLine(stats, true)
	for _, want := range []string{"7 nodes", "depth 3", "2 duplicates", iconCached} {
		if !strings.Contains(line, want) {
			t.Errorf("statsLine() = %q, missing %q", line, want)
		}
	}
	if strings.Contains(line, "degenerate") {
		t.Errorf("statsLine() = %q, should omit zero counts", line)
	}
	if !strings.Contains(statsLine(stats, false), iconFresh) {
		t.Error("uncached builds should be marked fresh")
	}
}

func TestHistoryTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []*store.Record{
		{
			ID:        "0b6f3d0e-54d5-4a53-9a31-2c3c8a1f6a10",
			ImagePath: "login.png",
			Layout:    &layout.Output{},
			Stats:     pipeline.Stats{Nodes: 4, Depth: 2},
			CreatedAt: now.Add(-90 * time.Minute),
		},
		{
			ID:        "5d0e4c7b-1f0a-4c3e-8d7a-9b6c5e4d3f21",
			Layout:    &layout.Output{},
			CreatedAt: now.Add(-30 * time.Second),
		},
	}

	out := historyTable(recs, now)
	for _, want := range []string{recs[0].ID, "login.png", "1h ago", recs[1].ID, "just now", "—"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAge(t *testing.T) {
	at := time.Date(2025, 11, 4, 9, 0, 0, 0, time.Local)
	tests := []struct {
		d    time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{30 * 24 * time.Hour, "Nov 4, 2025"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d, at); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
