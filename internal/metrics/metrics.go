// Package metrics records bridge calls in Prometheus collectors.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/wippyai/obd-bridge/bridge"
)

// Collector is a bridge.Observer backed by a private Prometheus registry.
type Collector struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	bytes    prometheus.Histogram
	latency  prometheus.Histogram
}

var _ bridge.Observer = (*Collector)(nil)

// New creates a Collector with its own registry. backend labels the calls,
// e.g. "host" or "wasm".
func New(backend string) *Collector {
	labels := prometheus.Labels{"backend": backend}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "obdbridge_calls_total",
				Help:        "Bridge calls by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		bytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "obdbridge_input_bytes",
			Help:        "Size of the host input view in bytes",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(8, 4, 6),
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "obdbridge_call_duration_seconds",
			Help:        "Bridge call duration in seconds",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 10, 6),
		}),
	}
	c.registry.MustRegister(c.calls, c.bytes, c.latency)
	return c
}

// ObserveCall implements bridge.Observer.
func (c *Collector) ObserveCall(outcome bridge.Outcome, inputBytes int, elapsed time.Duration) {
	c.calls.WithLabelValues(outcome.String()).Inc()
	c.bytes.Observe(float64(inputBytes))
	c.latency.Observe(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes all metrics in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
