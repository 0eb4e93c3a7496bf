package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts reads reaching the wrapped store.
type countingStore struct {
	Store

	mu   sync.Mutex
	gets map[string]int
	fail error
}

func newCountingStore() *countingStore {
	return &countingStore{Store: NewMemoryStore(), gets: make(map[string]int)}
}

func (s *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	s.gets[name]++
	fail := s.fail
	s.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	return s.Store.Get(ctx, name)
}

func (s *countingStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[name]
}

func TestCachingStore(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	s := NewCachingStore(inner, 1<<20)
	defer s.Close()

	require.NoError(t, inner.Put(ctx, "navigate/a/1", []byte("v1")))

	t.Run("read through", func(t *testing.T) {
		for range 3 {
			got, err := s.Get(ctx, "navigate/a/1")
			require.NoError(t, err)
			assert.Equal(t, "v1", string(got))
		}
		assert.Equal(t, 1, inner.count("navigate/a/1"))

		hits, misses := s.Stats()
		assert.Equal(t, int64(2), hits)
		assert.Equal(t, int64(1), misses)
	})

	t.Run("put invalidates", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "navigate/a/1", []byte("v2")))
		got, err := s.Get(ctx, "navigate/a/1")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
		assert.Equal(t, 2, inner.count("navigate/a/1"))
	})

	t.Run("delete invalidates", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "navigate/a/1"))
		_, err := s.Get(ctx, "navigate/a/1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 2, inner.count("missing"))
	})
}

func TestCachingStore_Warm(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	s := NewCachingStore(inner, 1<<20)
	defer s.Close()

	var names []string
	for i := range 40 {
		name := fmt.Sprintf("navigate/a/%d", i)
		require.NoError(t, inner.Put(ctx, name, []byte(name)))
		names = append(names, name)
	}

	require.NoError(t, s.Warm(ctx, append(names, "missing")...))

	for _, name := range names {
		_, err := s.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 1, inner.count(name))
	}

	t.Run("backend failure", func(t *testing.T) {
		boom := errors.New("backend down")
		failing := newCountingStore()
		failing.fail = boom
		err := NewCachingStore(failing, 1<<20).Warm(ctx, "a", "b")
		assert.ErrorIs(t, err, boom)
	})
}
