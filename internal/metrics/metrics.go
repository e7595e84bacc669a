// Package metrics exports engine counters to Prometheus. A nil *Collector
// is valid and records nothing, which is how metrics are disabled.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hoststate"

// Tick outcomes.
const (
	TickChanged    = "changed"
	TickUnchanged  = "unchanged"
	TickProbeError = "probe_error"
	TickDiscarded  = "discarded"
)

type Collector struct {
	registry       *prometheus.Registry
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	rejected       *prometheus.CounterVec
	ticks          *prometheus.CounterVec
	pushes         *prometheus.CounterVec
	probeFailures  *prometheus.CounterVec
}

// New creates a collector backed by its own registry, which also carries
// the Go runtime and process collectors.
func New() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Observer sessions currently connected.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Observer sessions opened since start.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rejected_total",
			Help:      "Connection attempts refused by the session registry.",
		}, []string{"reason"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Session sample cycles by outcome.",
		}, []string{"outcome"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Messages pushed to observers by channel.",
		}, []string{"channel"}),
		probeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Failed host probe calls by operation.",
		}, []string{"op"}),
	}

	for _, col := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.sessionsActive,
		c.sessionsTotal,
		c.rejected,
		c.ticks,
		c.pushes,
		c.probeFailures,
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return c, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Inc()
	c.sessionsTotal.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
}

func (c *Collector) SessionRejected(reason string) {
	if c == nil {
		return
	}
	c.rejected.WithLabelValues(reason).Inc()
}

func (c *Collector) Tick(outcome string) {
	if c == nil {
		return
	}
	c.ticks.WithLabelValues(outcome).Inc()
}

func (c *Collector) Pushed(channel string) {
	if c == nil {
		return
	}
	c.pushes.WithLabelValues(channel).Inc()
}

func (c *Collector) ProbeFailed(op string) {
	if c == nil {
		return
	}
	c.probeFailures.WithLabelValues(op).Inc()
}
