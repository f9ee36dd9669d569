// Package metrics exposes Prometheus collectors for evaluation runs.
//
// Each Collector owns its registry so that several runs (or tests) in one
// process never share counters. Batch hosts export the registry with
// WriteTextfile for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records per-node outcomes and per-run timings. A nil *Collector
// is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	nodes       *prometheus.CounterVec
	runs        prometheus.Counter
	runDuration prometheus.Histogram
	layers      prometheus.Gauge
	detached    prometheus.Gauge
}

// New creates a Collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		nodes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formulagrid_nodes_evaluated_total",
			Help: "Formula nodes evaluated, by outcome and error kind.",
		}, []string{"status", "kind"}),
		runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "formulagrid_runs_total",
			Help: "Completed evaluation runs.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "formulagrid_run_duration_seconds",
			Help:    "Wall time of one evaluation run.",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
		layers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "formulagrid_last_run_layers",
			Help: "Number of topological layers in the last run.",
		}),
		detached: factory.NewGauge(prometheus.GaugeOpts{
			Name: "formulagrid_last_run_detached_nodes",
			Help: "Number of detached nodes in the last run.",
		}),
	}
}

// Registry returns the registry holding every collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// NodeEvaluated counts one node outcome. kind is empty for successes.
func (c *Collector) NodeEvaluated(status, kind string) {
	if c == nil {
		return
	}
	c.nodes.WithLabelValues(status, kind).Inc()
}

// RunFinished records the shape and duration of a completed run.
func (c *Collector) RunFinished(d time.Duration, layers, detached int) {
	if c == nil {
		return
	}
	c.runs.Inc()
	c.runDuration.Observe(d.Seconds())
	c.layers.Set(float64(layers))
	c.detached.Set(float64(detached))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
