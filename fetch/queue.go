package fetch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// QueueConfig bounds speculative work.
type QueueConfig struct {
	// MaxConcurrent is the maximum number of prefetches in flight.
	// If 0, defaults to 5.
	MaxConcurrent int64

	// RatePerSecond limits how many prefetches may start per second.
	// If 0, unlimited.
	RatePerSecond float64

	// Burst is the limiter burst. If 0, defaults to MaxConcurrent.
	Burst int
}

// DefaultQueueConfig returns the default prefetch limits.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{MaxConcurrent: 5}
}

// Queue admits prefetches. A nil *Queue admits everything.
type Queue struct {
	cfg     QueueConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	active  atomic.Int64
	waiting atomic.Int64
}

// NewQueue creates a queue with the given limits.
func NewQueue(cfg QueueConfig) *Queue {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	q := &Queue{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxConcurrent),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.MaxConcurrent)
		}
		q.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return q
}

// Acquire blocks until a slot is free and the rate limit allows a start.
func (q *Queue) Acquire(ctx context.Context) error {
	if q == nil {
		return nil
	}
	q.waiting.Add(1)
	defer q.waiting.Add(-1)

	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	q.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (q *Queue) TryAcquire() bool {
	if q == nil {
		return true
	}
	if q.limiter != nil && !q.limiter.Allow() {
		return false
	}
	if !q.sem.TryAcquire(1) {
		return false
	}
	q.active.Add(1)
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (q *Queue) Release() {
	if q == nil {
		return
	}
	q.active.Add(-1)
	q.sem.Release(1)
}

// Active returns the number of admitted prefetches.
func (q *Queue) Active() int64 {
	if q == nil {
		return 0
	}
	return q.active.Load()
}

// Waiting returns the number of prefetches blocked in Acquire.
func (q *Queue) Waiting() int64 {
	if q == nil {
		return 0
	}
	return q.waiting.Load()
}

// Config returns the effective configuration.
func (q *Queue) Config() QueueConfig {
	if q == nil {
		return QueueConfig{}
	}
	return q.cfg
}
