// Package metrics provides a Prometheus-backed implementation of the
// engine's observability hooks. Register the hooks when constructing
// plugins and mount [Handler] on the serve API to expose them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/depfuse/depfuse/pkg/depgraph"
)

// Hooks implements depgraph.BuilderHooks, resolve.Hooks and
// resolve.CacheHooks on one Prometheus registry.
type Hooks struct {
	registry *prometheus.Registry

	internTotal  *prometheus.CounterVec
	resolveTotal *prometheus.CounterVec
	cacheTotal   *prometheus.CounterVec
	nodeCount    prometheus.Gauge
}

// NewHooks creates hooks on a fresh registry.
func NewHooks() *Hooks {
	h := &Hooks{
		registry: prometheus.NewRegistry(),
		internTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depfuse_intern_total",
				Help: "Number of fragment intern operations by outcome.",
			},
			[]string{"ecosystem", "outcome"},
		),
		resolveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depfuse_resolve_total",
				Help: "Number of package metadata resolutions by result.",
			},
			[]string{"ecosystem", "result"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depfuse_metadata_cache_total",
				Help: "Persistent metadata cache lookups by outcome.",
			},
			[]string{"ecosystem", "outcome"},
		),
		nodeCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depfuse_graph_nodes",
				Help: "Number of distinct graph nodes interned so far.",
			},
		),
	}
	h.registry.MustRegister(h.internTotal, h.resolveTotal, h.cacheTotal, h.nodeCount)
	return h
}

// OnIntern implements depgraph.BuilderHooks.
func (h *Hooks) OnIntern(id depgraph.Identifier, index int, reused bool) {
	outcome := "new"
	if reused {
		outcome = "reused"
	} else {
		h.nodeCount.Inc()
	}
	h.internTotal.WithLabelValues(id.Type, outcome).Inc()
}

// OnResolve implements resolve.Hooks.
func (h *Hooks) OnResolve(id depgraph.Identifier, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	h.resolveTotal.WithLabelValues(id.Type, result).Inc()
}

// OnCacheHit implements resolve.CacheHooks.
func (h *Hooks) OnCacheHit(id depgraph.Identifier) {
	h.cacheTotal.WithLabelValues(id.Type, "hit").Inc()
}

// OnCacheMiss implements resolve.CacheHooks.
func (h *Hooks) OnCacheMiss(id depgraph.Identifier) {
	h.cacheTotal.WithLabelValues(id.Type, "miss").Inc()
}

// Handler returns an HTTP handler serving the metrics in Prometheus
// exposition format.
func (h *Hooks) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}

var _ depgraph.BuilderHooks = (*Hooks)(nil)
