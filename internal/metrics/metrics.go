// Package metrics exports weighted-average call statistics as Prometheus
// metrics.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/algo-wavg/stats/weighted"
)

// Outcome label values.
const (
	OutcomeOK              = "ok"
	OutcomeLengthMismatch  = "length_mismatch"
	OutcomeZeroTotalWeight = "zero_total_weight"
	OutcomeNonFinite       = "non_finite"
	OutcomeOther           = "other"
)

// Collector records weighted.Report values. It implements weighted.Observer.
type Collector struct {
	computations *prometheus.CounterVec
	elements     prometheus.Counter
	chunks       prometheus.Histogram
	duration     prometheus.Histogram
}

var _ weighted.Observer = (*Collector)(nil)

// NewCollector creates the wavg metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wavg_computations_total",
			Help: "Weighted average computations by outcome.",
		}, []string{"outcome"}),
		elements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavg_elements_total",
			Help: "Elements reduced by computations that passed the length check.",
		}),
		chunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wavg_chunks",
			Help:    "Number of chunks per reduction.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wavg_compute_duration_seconds",
			Help:    "Wall time of a weighted average computation.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}

	for _, m := range []prometheus.Collector{c.computations, c.elements, c.chunks, c.duration} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return c, nil
}

// ObserveCompute records one computation.
func (c *Collector) ObserveCompute(r weighted.Report) {
	outcome := Outcome(r.Err)
	c.computations.WithLabelValues(outcome).Inc()
	c.duration.Observe(r.Duration.Seconds())

	if outcome == OutcomeLengthMismatch {
		return
	}
	c.elements.Add(float64(r.Length))
	if r.Chunks > 0 {
		c.chunks.Observe(float64(r.Chunks))
	}
}

// Outcome maps a Compute error to its label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, weighted.ErrLengthMismatch):
		return OutcomeLengthMismatch
	case errors.Is(err, weighted.ErrZeroTotalWeight):
		return OutcomeZeroTotalWeight
	case errors.Is(err, weighted.ErrNonFinite):
		return OutcomeNonFinite
	default:
		return OutcomeOther
	}
}

// WriteFile writes the text exposition of g to path.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
