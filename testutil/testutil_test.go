package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

func TestArticleTree(t *testing.T) {
	tree := ArticleTree("7")

	assert.True(t, tree.RootLayout)
	leaf := route.At(tree, Path("", "a", Param("id", "7")))
	require.NotNil(t, leaf)
	assert.Equal(t, segment.Static(segment.Page), leaf.Segment)

	assert.Panics(t, func() { Tree("", "children") })
	assert.Panics(t, func() { Tree(42) })
}

func TestFakeFetcher(t *testing.T) {
	f := NewFakeFetcher()

	fut := f.Fetch(&fetch.Request{URL: "/a"})
	assert.False(t, fut.Settled())
	require.Len(t, f.Pending("/a"), 1)

	boom := errors.New("boom")
	f.Last().Resolve(nil, boom)
	_, err := fut.Result()
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.Pending("/a"))

	canned := &flight.Response{CanonicalURL: "/b"}
	f.Respond("/b", canned)
	got, err := f.Prefetch(&fetch.Request{URL: "/b"}).Result()
	require.NoError(t, err)
	assert.Same(t, canned, got)

	assert.Equal(t, 2, f.Len())
	assert.True(t, f.Calls()[1].Prefetch)
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), c.Now())
}
