package fetch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/route"
)

// ErrClosed is returned for requests issued after Close.
var ErrClosed = errors.New("launcher closed")

// Observer is notified after every transport round trip.
type Observer func(mode Mode, duration time.Duration, err error)

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithQueue sets the queue prefetches wait in. Defaults to
// NewQueue(DefaultQueueConfig()).
func WithQueue(q *Queue) LauncherOption {
	return func(l *Launcher) { l.queue = q }
}

// WithObserver registers a round trip observer.
func WithObserver(o Observer) LauncherOption {
	return func(l *Launcher) { l.observe = o }
}

// WithTimeout bounds each round trip. Zero means no timeout.
func WithTimeout(d time.Duration) LauncherOption {
	return func(l *Launcher) { l.timeout = d }
}

// Launcher turns requests into futures.
type Launcher struct {
	client  Client
	queue   *Queue
	observe Observer
	timeout time.Duration

	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLauncher wraps client.
func NewLauncher(client Client, opts ...LauncherOption) *Launcher {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Launcher{
		client: client,
		queue:  NewQueue(DefaultQueueConfig()),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Fetch starts req immediately.
func (l *Launcher) Fetch(req *Request) *Future {
	return l.launch(req, false)
}

// Prefetch starts req once the queue admits it.
func (l *Launcher) Prefetch(req *Request) *Future {
	return l.launch(req, true)
}

// Queue returns the prefetch queue.
func (l *Launcher) Queue() *Queue { return l.queue }

func (l *Launcher) launch(req *Request, queued bool) *Future {
	f, resolve := NewFuture()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		resolve(nil, NewNetworkError(req, ErrClosed))
		return f
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()

		if queued {
			if err := l.queue.Acquire(l.ctx); err != nil {
				resolve(nil, NewNetworkError(req, err))
				return
			}
			defer l.queue.Release()
		}

		v, err, _ := l.group.Do(requestKey(req), func() (any, error) {
			return l.roundTrip(req)
		})
		if err != nil {
			resolve(nil, err)
			return
		}
		resolve(v.(*flight.Response), nil)
	}()

	return f
}

func (l *Launcher) roundTrip(req *Request) (*flight.Response, error) {
	ctx := l.ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := l.client.FetchTree(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if l.observe != nil {
		l.observe(req.Mode, time.Since(start), err)
	}
	if err != nil {
		var ne *NetworkError
		if errors.As(err, &ne) {
			return nil, err
		}
		return nil, NewNetworkError(req, err)
	}
	return resp, nil
}

// requestKey identifies requests that can share a round trip.
func requestKey(req *Request) string {
	var sb strings.Builder
	sb.WriteString(req.Mode.String())
	sb.WriteByte(' ')
	sb.WriteString(req.URL)
	sb.WriteByte(' ')
	sb.WriteString(req.NextURL)
	if req.Tree != nil {
		if h, err := route.EncodeHeader(req.Tree); err == nil {
			sb.WriteByte(' ')
			sb.WriteString(h)
		}
	}
	return sb.String()
}

// Close cancels outstanding requests and waits for their goroutines.
func (l *Launcher) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
	return nil
}
