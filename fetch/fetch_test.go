package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFuture(t *testing.T) {
	f, resolve := NewFuture()
	assert.False(t, f.Settled())

	_, err := f.Result()
	assert.ErrorIs(t, err, ErrNotReady)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	first := &flight.Response{CanonicalURL: "/first"}
	resolve(first, nil)
	resolve(&flight.Response{CanonicalURL: "/second"}, nil)

	assert.True(t, f.Settled())
	got, err := f.Result()
	require.NoError(t, err)
	assert.Same(t, first, got)

	got, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestLauncher_Fetch(t *testing.T) {
	t.Run("wraps transport errors", func(t *testing.T) {
		boom := errors.New("connection reset")
		l := NewLauncher(ClientFunc(func(context.Context, *Request) (*flight.Response, error) {
			return nil, boom
		}))
		defer l.Close()

		_, err := l.Fetch(&Request{URL: "/a"}).Wait(context.Background())
		assert.ErrorIs(t, err, ErrNetwork)
		assert.ErrorIs(t, err, boom)

		var ne *NetworkError
		require.ErrorAs(t, err, &ne)
		assert.Equal(t, "/a", ne.URL)
	})

	t.Run("observer sees round trips", func(t *testing.T) {
		var seen atomic.Int32
		l := NewLauncher(
			ClientFunc(func(context.Context, *Request) (*flight.Response, error) {
				return &flight.Response{}, nil
			}),
			WithObserver(func(mode Mode, _ time.Duration, err error) {
				assert.Equal(t, ModePrefetchFull, mode)
				assert.NoError(t, err)
				seen.Add(1)
			}),
		)
		defer l.Close()

		_, err := l.Prefetch(&Request{URL: "/p", Mode: ModePrefetchFull}).Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(1), seen.Load())
	})

	t.Run("identical requests share a round trip", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		l := NewLauncher(ClientFunc(func(context.Context, *Request) (*flight.Response, error) {
			calls.Add(1)
			<-release
			return &flight.Response{CanonicalURL: "/shared"}, nil
		}))
		defer l.Close()

		tree := route.New(segment.Root, nil)
		a := l.Fetch(&Request{URL: "/x", Tree: tree})
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

		b := l.Fetch(&Request{URL: "/x", Tree: tree})
		time.Sleep(20 * time.Millisecond)
		close(release)

		ra, err := a.Wait(context.Background())
		require.NoError(t, err)
		rb, err := b.Wait(context.Background())
		require.NoError(t, err)

		assert.NotSame(t, a, b, "each request gets its own future")
		assert.Same(t, ra, rb)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("close cancels in-flight requests", func(t *testing.T) {
		l := NewLauncher(ClientFunc(func(ctx context.Context, _ *Request) (*flight.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}))

		f := l.Fetch(&Request{URL: "/slow"})
		require.NoError(t, l.Close())

		_, err := f.Result()
		assert.ErrorIs(t, err, context.Canceled)

		_, err = l.Fetch(&Request{URL: "/late"}).Result()
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestQueue(t *testing.T) {
	q := NewQueue(QueueConfig{MaxConcurrent: 1})

	require.NoError(t, q.Acquire(context.Background()))
	assert.Equal(t, int64(1), q.Active())
	assert.False(t, q.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, q.Acquire(ctx))
	assert.Equal(t, int64(0), q.Waiting())

	q.Release()
	assert.True(t, q.TryAcquire())
	q.Release()

	t.Run("nil queue admits everything", func(t *testing.T) {
		var nq *Queue
		assert.NoError(t, nq.Acquire(context.Background()))
		assert.True(t, nq.TryAcquire())
		nq.Release()
		assert.Zero(t, nq.Active())
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := NewQueue(QueueConfig{}).Config()
		assert.Equal(t, int64(5), cfg.MaxConcurrent)
	})
}

func TestLauncher_PrefetchQueue(t *testing.T) {
	release := make(chan struct{})
	var inFlight, peak atomic.Int32
	l := NewLauncher(
		ClientFunc(func(_ context.Context, req *Request) (*flight.Response, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return &flight.Response{CanonicalURL: req.URL}, nil
		}),
		WithQueue(NewQueue(QueueConfig{MaxConcurrent: 2})),
	)
	defer l.Close()

	var futures []*Future
	for _, u := range []string{"/1", "/2", "/3", "/4"} {
		futures = append(futures, l.Prefetch(&Request{URL: u, Mode: ModePrefetchAuto}))
	}

	require.Eventually(t, func() bool { return l.Queue().Active() == 2 }, time.Second, time.Millisecond)
	close(release)

	for _, f := range futures {
		_, err := f.Wait(context.Background())
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
