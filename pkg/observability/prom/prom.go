// Package prom implements the observability hooks with Prometheus metrics.
//
//	m := prom.New(prometheus.DefaultRegisterer)
//	observability.SetPipelineHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetHTTPHooks(m)
//	r.Handle("/metrics", promhttp.Handler())
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/wiretree/pkg/observability"
)

const namespace = "wiretree"

// Metrics holds every collector and satisfies all hook interfaces.
type Metrics struct {
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	layoutNodes   prometheus.Histogram
	layoutDepth   prometheus.Histogram
	suppressed    prometheus.Counter
	degenerate    prometheus.Counter
	renders       *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// New registers the collectors with reg and returns the hooks.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Layout builds by result",
		}, []string{"result"}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time spent building one layout",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		layoutNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_nodes",
			Help:      "Nodes per built layout, root included",
			Buckets:   prometheus.ExponentialBuckets(2, 2, 10),
		}),
		layoutDepth: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_depth",
			Help:      "Longest root-to-leaf path per built layout",
			Buckets:   prometheus.LinearBuckets(1, 1, 12),
		}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_suppressed_total",
			Help:      "UI boxes dropped as near-duplicates",
		}),
		degenerate: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_rects_total",
			Help:      "Rects dropped for non-positive width or height",
		}),
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Tree diagram renders by format and result",
		}, []string{"format", "result"}),

		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by key type",
		}, []string{"key_type"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by key type",
		}, []string{"key_type"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),

		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served API requests",
		}, []string{"method", "route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "API requests currently being served",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnBuildStart is a no-op; builds are counted on completion.
func (m *Metrics) OnBuildStart(context.Context, string, int) {}

// OnBuildComplete records the build outcome, latency and tree shape.
func (m *Metrics) OnBuildComplete(_ context.Context, nodes, depth int, d time.Duration, err error) {
	m.builds.WithLabelValues(result(err)).Inc()
	m.buildDuration.Observe(d.Seconds())
	if err == nil {
		m.layoutNodes.Observe(float64(nodes))
		m.layoutDepth.Observe(float64(depth))
	}
}

// OnDedup counts suppressed duplicates.
func (m *Metrics) OnDedup(_ context.Context, candidates, accepted int) {
	m.suppressed.Add(float64(candidates - accepted))
}

// OnDegenerate counts dropped rects.
func (m *Metrics) OnDegenerate(_ context.Context, count int) {
	m.degenerate.Add(float64(count))
}

// OnRenderComplete counts renders.
func (m *Metrics) OnRenderComplete(_ context.Context, format string, _ time.Duration, err error) {
	m.renders.WithLabelValues(format, result(err)).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.inFlight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	m.inFlight.Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
