// Package metrics provides Prometheus instrumentation for the conversation
// pipeline. All methods are safe on a nil *Collector so instrumentation stays
// strictly optional.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the metrics collector.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default collector configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// Collector aggregates the pipeline's Prometheus series.
type Collector struct {
	registry *prometheus.Registry

	turns             *prometheus.CounterVec
	turnLatency       prometheus.Histogram
	modelLatency      prometheus.Histogram
	retrievalFailures prometheus.Counter
	writebacks        *prometheus.CounterVec
}

// NewCollector creates and registers the pipeline metric series.
func NewCollector(cfg Config) *Collector {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memchat_turns_total",
			Help: "Conversation turns processed, by outcome.",
		}, []string{"status"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memchat_turn_duration_seconds",
			Help:    "End-to-end turn latency.",
			Buckets: cfg.LatencyBuckets,
		}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memchat_model_call_duration_seconds",
			Help:    "Model completion latency.",
			Buckets: cfg.LatencyBuckets,
		}),
		retrievalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memchat_retrieval_failures_total",
			Help: "Memory searches that degraded to an empty memory set.",
		}),
		writebacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memchat_writebacks_total",
			Help: "Best-effort memory write-backs, by outcome.",
		}, []string{"status"}),
	}

	registry.MustRegister(c.turns, c.turnLatency, c.modelLatency, c.retrievalFailures, c.writebacks)
	return c
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveTurn records a completed turn and its latency.
func (c *Collector) ObserveTurn(status string, dur time.Duration) {
	if c == nil {
		return
	}
	c.turns.WithLabelValues(status).Inc()
	c.turnLatency.Observe(dur.Seconds())
}

// ObserveModelCall records a model completion latency.
func (c *Collector) ObserveModelCall(dur time.Duration) {
	if c == nil {
		return
	}
	c.modelLatency.Observe(dur.Seconds())
}

// RetrievalFailure counts a search that degraded to empty memories.
func (c *Collector) RetrievalFailure() {
	if c == nil {
		return
	}
	c.retrievalFailures.Inc()
}

// ObserveWriteback records a write-back outcome.
func (c *Collector) ObserveWriteback(status string) {
	if c == nil {
		return
	}
	c.writebacks.WithLabelValues(status).Inc()
}
