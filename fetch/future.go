package fetch

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/routecache/flight"
)

// ErrNotReady is returned by Future.Result while the fetch is in flight.
var ErrNotReady = errors.New("fetch not settled")

// Future is the settle-once result of a fetch. All readers observe the same
// settlement.
type Future struct {
	done chan struct{}
	once sync.Once
	resp *flight.Response
	err  error
}

// NewFuture returns a pending future and the function that settles it.
// Only the first call to the resolver has an effect.
func NewFuture() (*Future, func(*flight.Response, error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.settle
}

// Resolved returns an already settled future.
func Resolved(resp *flight.Response, err error) *Future {
	f, resolve := NewFuture()
	resolve(resp, err)
	return f
}

func (f *Future) settle(resp *flight.Response, err error) {
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has a result.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the settled result without blocking, or ErrNotReady.
func (f *Future) Result() (*flight.Response, error) {
	if !f.Settled() {
		return nil, ErrNotReady
	}
	return f.resp, f.err
}

// Wait blocks until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (*flight.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
