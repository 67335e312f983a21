package snapshot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the lifecycle metrics shared by all controllers of a
// process. A nil *Metrics records nothing.
type Metrics struct {
	transitions     *prometheus.CounterVec
	destroyFailures *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collsnap",
			Subsystem: "snapshot",
			Name:      "transitions_total",
			Help:      "Snapshot lifecycle transitions by base name and target state.",
		}, []string{"base_name", "state"}),
		destroyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collsnap",
			Subsystem: "snapshot",
			Name:      "destroy_failures_total",
			Help:      "Destroy attempts that left at least one collection behind.",
		}, []string{"base_name"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collsnap",
			Subsystem: "snapshot",
			Name:      "collections_dropped_total",
			Help:      "Snapshot collections dropped.",
		}, []string{"base_name"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "collsnap",
			Subsystem: "snapshot",
			Name:      "build_duration_seconds",
			Help:      "Duration of successful snapshot builds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"base_name"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.destroyFailures, m.dropped, m.buildDuration)
	}
	return m
}

func (m *Metrics) transition(base string, s State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(base, s.String()).Inc()
}

func (m *Metrics) destroyFailed(base string) {
	if m == nil {
		return
	}
	m.destroyFailures.WithLabelValues(base).Inc()
}

func (m *Metrics) collectionsDropped(base string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.WithLabelValues(base).Add(float64(n))
}

func (m *Metrics) buildObserved(base string, d time.Duration) {
	if m == nil {
		return
	}
	m.buildDuration.WithLabelValues(base).Observe(d.Seconds())
}
