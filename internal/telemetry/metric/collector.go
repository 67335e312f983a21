package metric

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordCounter reports how many snapshots of one base name are committed.
// *snapshot.Controller implements it.
type RecordCounter interface {
	BaseName() string
	Count(ctx context.Context) (int64, error)
}

// Collector reports committed record counts at scrape time.
type Collector struct {
	counters []RecordCounter
	timeout  time.Duration
	logger   *slog.Logger
	desc     *prometheus.Desc
}

// NewCollector creates a collector over counters.
func NewCollector(logger *slog.Logger, counters ...RecordCounter) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		counters: counters,
		timeout:  5 * time.Second,
		logger:   logger,
		desc: prometheus.NewDesc(
			"collsnap_records",
			"Committed snapshot records by base name.",
			[]string{"base_name"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector. Base names whose count fails
// are skipped.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	for _, rc := range c.counters {
		n, err := rc.Count(ctx)
		if err != nil {
			c.logger.Warn("count records for metrics", "base_name", rc.BaseName(), "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), rc.BaseName())
	}
}
