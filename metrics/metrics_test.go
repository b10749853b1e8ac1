package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(Config{Registry: reg})

	c.ObserveTurn("ok", 10*time.Millisecond)
	c.ObserveTurn("ok", 20*time.Millisecond)
	c.ObserveTurn("generation_failed", 5*time.Millisecond)
	c.RetrievalFailure()
	c.ObserveWriteback("ok")
	c.ObserveWriteback("failed")

	assert.InDelta(t, 2, testutil.ToFloat64(c.turns.WithLabelValues("ok")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.turns.WithLabelValues("generation_failed")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.retrievalFailures), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.writebacks.WithLabelValues("failed")), 1e-9)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	// must not panic
	c.ObserveTurn("ok", time.Millisecond)
	c.ObserveModelCall(time.Millisecond)
	c.RetrievalFailure()
	c.ObserveWriteback("ok")
}
