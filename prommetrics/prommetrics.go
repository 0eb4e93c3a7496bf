// Package prommetrics exports router metrics to Prometheus.
//
//	c := prommetrics.New(prometheus.DefaultRegisterer)
//	r, _ := routecache.New(cfg, client, routecache.WithMetricsCollector(c))
//	http.Handle("/metrics", promhttp.Handler())
package prommetrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/routecache"
	"github.com/hupe1980/routecache/patch"
	"github.com/hupe1980/routecache/reducer"
)

// Namespace prefixes every metric name.
const Namespace = "routecache"

// Collector implements routecache.MetricsCollector with Prometheus
// histograms and counters.
type Collector struct {
	dispatchLatency *prometheus.HistogramVec
	fetchLatency    *prometheus.HistogramVec
	prefetchPruned  prometheus.Counter
	superseded      *prometheus.CounterVec
	warnings        *prometheus.CounterVec
}

var _ routecache.MetricsCollector = (*Collector)(nil)

// NewCollector creates an unregistered collector.
func NewCollector() *Collector {
	return &Collector{
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Latency of reducer dispatches",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"action", "status"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of flight round trips",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode", "status"}),
		prefetchPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "prefetch_pruned_total",
			Help:      "Expired prefetch entries removed",
		}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "superseded_total",
			Help:      "Continuations discarded because a newer navigation started",
		}, []string{"fits"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "warnings_total",
			Help:      "Recoverable problems reported by dispatches",
		}, []string{"action", "kind"}),
	}
}

// New creates a collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := NewCollector()
	reg.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.dispatchLatency.Describe(ch)
	c.fetchLatency.Describe(ch)
	c.prefetchPruned.Describe(ch)
	c.superseded.Describe(ch)
	c.warnings.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.dispatchLatency.Collect(ch)
	c.fetchLatency.Collect(ch)
	c.prefetchPruned.Collect(ch)
	c.superseded.Collect(ch)
	c.warnings.Collect(ch)
}

// RecordDispatch implements routecache.MetricsCollector.
func (c *Collector) RecordDispatch(action string, duration time.Duration, fallback bool) {
	status := "ok"
	if fallback {
		status = "fallback"
	}
	c.dispatchLatency.WithLabelValues(action, status).Observe(duration.Seconds())
}

// RecordFetch implements routecache.MetricsCollector.
func (c *Collector) RecordFetch(mode string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.fetchLatency.WithLabelValues(mode, status).Observe(duration.Seconds())
}

// RecordPrefetchPruned implements routecache.MetricsCollector.
func (c *Collector) RecordPrefetchPruned(n int) {
	c.prefetchPruned.Add(float64(n))
}

// RecordSuperseded implements routecache.MetricsCollector.
func (c *Collector) RecordSuperseded(mismatch bool) {
	fits := "true"
	if mismatch {
		fits = "false"
	}
	c.superseded.WithLabelValues(fits).Inc()
}

// RecordWarning implements routecache.MetricsCollector.
func (c *Collector) RecordWarning(action string, err error) {
	c.warnings.WithLabelValues(action, warningKind(err)).Inc()
}

// warningKind keeps the label cardinality bounded.
func warningKind(err error) string {
	switch {
	case errors.Is(err, patch.ErrStructuralMismatch):
		return "structural-mismatch"
	case errors.Is(err, reducer.ErrStalePatch):
		return "stale-patch"
	case errors.Is(err, reducer.ErrPartialRefresh):
		return "partial-refresh"
	case errors.Is(err, reducer.ErrInvalidPrefetchKind):
		return "invalid-prefetch-kind"
	default:
		return "other"
	}
}
