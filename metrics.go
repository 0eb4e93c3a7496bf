package routecache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordDispatch is called after each reduction. fallback reports
	// whether the action ended in a document load.
	RecordDispatch(action string, duration time.Duration, fallback bool)

	// RecordFetch is called after each flight round trip.
	RecordFetch(mode string, duration time.Duration, err error)

	// RecordPrefetchPruned is called with the number of expired prefetch
	// entries a reduction removed.
	RecordPrefetchPruned(n int)

	// RecordSuperseded is called when a continuation is discarded because a
	// newer navigation started. mismatch reports whether the late response
	// no longer fit the tree.
	RecordSuperseded(mismatch bool)

	// RecordWarning is called for every recoverable warning.
	RecordWarning(action string, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordDispatch(string, time.Duration, bool) {}
func (NoopMetricsCollector) RecordFetch(string, time.Duration, error)   {}
func (NoopMetricsCollector) RecordPrefetchPruned(int)                   {}
func (NoopMetricsCollector) RecordSuperseded(bool)                      {}
func (NoopMetricsCollector) RecordWarning(string, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	DispatchCount      atomic.Int64
	DispatchTotalNanos atomic.Int64
	FallbackCount      atomic.Int64
	FetchCount         atomic.Int64
	FetchErrors        atomic.Int64
	FetchTotalNanos    atomic.Int64
	PrefetchPruned     atomic.Int64
	SupersededCount    atomic.Int64
	MismatchCount      atomic.Int64
	WarningCount       atomic.Int64
}

// RecordDispatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDispatch(_ string, duration time.Duration, fallback bool) {
	b.DispatchCount.Add(1)
	b.DispatchTotalNanos.Add(duration.Nanoseconds())
	if fallback {
		b.FallbackCount.Add(1)
	}
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(_ string, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
	}
}

// RecordPrefetchPruned implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPrefetchPruned(n int) {
	b.PrefetchPruned.Add(int64(n))
}

// RecordSuperseded implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSuperseded(mismatch bool) {
	b.SupersededCount.Add(1)
	if mismatch {
		b.MismatchCount.Add(1)
	}
}

// RecordWarning implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWarning(string, error) {
	b.WarningCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		DispatchCount:    b.DispatchCount.Load(),
		DispatchAvgNanos: avg(b.DispatchTotalNanos.Load(), b.DispatchCount.Load()),
		FallbackCount:    b.FallbackCount.Load(),
		FetchCount:       b.FetchCount.Load(),
		FetchErrors:      b.FetchErrors.Load(),
		FetchAvgNanos:    avg(b.FetchTotalNanos.Load(), b.FetchCount.Load()),
		PrefetchPruned:   b.PrefetchPruned.Load(),
		SupersededCount:  b.SupersededCount.Load(),
		MismatchCount:    b.MismatchCount.Load(),
		WarningCount:     b.WarningCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	DispatchCount    int64
	DispatchAvgNanos int64
	FallbackCount    int64
	FetchCount       int64
	FetchErrors      int64
	FetchAvgNanos    int64
	PrefetchPruned   int64
	SupersededCount  int64
	MismatchCount    int64
	WarningCount     int64
}
