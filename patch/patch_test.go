package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/rendercache"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

func node(seg segment.Segment, kv ...any) *route.Tree {
	t := route.New(seg, nil)
	for i := 0; i < len(kv); i += 2 {
		t.Children[kv[i].(string)] = kv[i+1].(*route.Tree)
	}
	return t
}

func page() *route.Tree { return node(segment.Static(segment.Page)) }

func id(v string) segment.Dynamic {
	return segment.Dynamic{Param: "id", Value: v, Kind: segment.KindDynamic}
}

func articleTree(v string) *route.Tree {
	root := node(segment.Root, route.ChildrenKey,
		node(segment.Static("a"), route.ChildrenKey,
			node(id(v), route.ChildrenKey, page())))
	root.RootLayout = true
	return root
}

var articlePath = route.Path{
	{Segment: segment.Root, Parallel: route.ChildrenKey},
	{Segment: segment.Static("a"), Parallel: route.ChildrenKey},
}

func initial(t *testing.T, v string) *Result {
	t.Helper()
	res, err := Apply(nil, nil, []flight.Entry{{
		Tree:    articleTree(v),
		Content: flight.NewPayload("root"),
		Head:    flight.NewPayload("head"),
	}})
	require.NoError(t, err)
	return res
}

func TestApply(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		start := initial(t, "1")
		patch := node(id("2"), route.ChildrenKey, page())
		content := flight.NewPayload("article 2")

		res, err := Apply(start.Tree, start.Cache, []flight.Entry{{
			Path:    articlePath,
			Tree:    patch,
			Content: content,
			Head:    flight.NewPayload("head 2"),
		}})
		require.NoError(t, err)

		assert.Same(t, patch, route.At(res.Tree, articlePath))
		assert.Same(t, content, rendercache.Lookup(res.Cache, articlePath, id("2")).Content())
		assert.Equal(t, 1, res.Applied)
		assert.False(t, res.NewRootLayout)

		assert.Nil(t, rendercache.Lookup(start.Cache, articlePath, id("2")), "input cache untouched")
		assert.Equal(t, id("1"), route.At(start.Tree, articlePath).Segment)
	})

	t.Run("tree-only entries leave the cache alone", func(t *testing.T) {
		start := initial(t, "1")

		res, err := Apply(start.Tree, start.Cache, []flight.Entry{{
			Path: articlePath,
			Tree: node(id("3"), route.ChildrenKey, page()),
		}})
		require.NoError(t, err)
		assert.Zero(t, res.Applied)
		assert.Same(t, start.Cache, res.Cache)
		assert.Equal(t, id("3"), route.At(res.Tree, articlePath).Segment)
	})

	t.Run("structural mismatch", func(t *testing.T) {
		start := initial(t, "1")
		bad := route.Path{
			{Segment: segment.Root, Parallel: route.ChildrenKey},
			{Segment: segment.Static("b"), Parallel: route.ChildrenKey},
		}
		entries := []flight.Entry{{Path: bad, Tree: page(), Content: flight.NewPayload("x")}}

		_, err := Apply(start.Tree, start.Cache, entries)
		require.ErrorIs(t, err, ErrStructuralMismatch)

		var sm *StructuralMismatchError
		require.ErrorAs(t, err, &sm)
		assert.Equal(t, bad, sm.Path)

		assert.ErrorIs(t, Fits(start.Tree, entries), ErrStructuralMismatch)
		assert.NoError(t, Fits(start.Tree, []flight.Entry{{Path: articlePath, Tree: page()}}))
	})

	t.Run("root layout change", func(t *testing.T) {
		start := initial(t, "1")
		other := node(segment.Static("(shop)"), route.ChildrenKey, page())
		other.RootLayout = true

		res, err := Apply(start.Tree, start.Cache, []flight.Entry{{Tree: other, Content: flight.NewPayload("shop")}})
		require.NoError(t, err)
		assert.True(t, res.NewRootLayout)
	})

	t.Run("idempotent", func(t *testing.T) {
		start := initial(t, "1")
		entries := []flight.Entry{{
			Path:    articlePath,
			Tree:    node(id("2"), route.ChildrenKey, page()),
			Content: flight.NewPayload("article 2"),
		}}

		once, err := Apply(start.Tree, start.Cache, entries)
		require.NoError(t, err)
		twice, err := Apply(once.Tree, once.Cache, entries)
		require.NoError(t, err)

		assert.True(t, route.Equal(once.Tree, twice.Tree))
		assert.Same(t,
			entries[0].Content,
			rendercache.Lookup(twice.Cache, articlePath, id("2")).Content())
	})
}

func TestAddRefetchToLeafSegments(t *testing.T) {
	start := initial(t, "1")
	fut := fetch.Resolved(&flight.Response{}, nil)
	e := flight.Entry{Path: articlePath, Tree: node(id("1"), route.ChildrenKey, page())}

	tx := rendercache.Begin(start.Cache)
	assert.True(t, AddRefetchToLeafSegments(tx, e, fut))
	cache := tx.Commit()

	leafPath := articlePath.Append(id("1"), route.ChildrenKey)
	leaf := rendercache.Lookup(cache, leafPath, segment.Static(segment.Page))
	require.NotNil(t, leaf)
	assert.Equal(t, rendercache.StatusFetching, leaf.Status())
	assert.Same(t, fut, leaf.Fetch())

	tx = rendercache.Begin(start.Cache)
	assert.False(t, AddRefetchToLeafSegments(tx, flight.Entry{
		Path: route.Path{{Segment: segment.Root, Parallel: "missing"}},
		Tree: page(),
	}, fut))
}

func TestHardNavigation(t *testing.T) {
	start := initial(t, "1")
	e := flight.Entry{
		Path:    articlePath,
		Tree:    node(id("2"), route.ChildrenKey, page()),
		Content: flight.NewPayload("article 2"),
	}

	assert.True(t, ShouldHardNavigate(start.Tree, e))
	assert.False(t, ShouldHardNavigate(start.Tree, flight.Entry{Path: articlePath, Tree: node(id("1"))}))
	assert.True(t, ShouldHardNavigate(start.Tree, flight.Entry{Path: articlePath, Tree: node(segment.Static("new"))}))
	assert.False(t, ShouldHardNavigate(start.Tree, flight.Entry{Path: articlePath[:1], Tree: node(segment.Static("b"))}))

	tx := rendercache.Begin(start.Cache)
	InvalidateForHardNavigation(tx, flight.Entry{Path: articlePath, Tree: node(id("1"))})
	cache := tx.Commit()
	assert.Nil(t, rendercache.Lookup(cache, articlePath, id("1")))
	assert.NotNil(t, rendercache.Lookup(start.Cache, articlePath, id("1")))
}

func TestConflicts(t *testing.T) {
	start := initial(t, "2")

	t.Run("other binding", func(t *testing.T) {
		late := []flight.Entry{{Path: articlePath, Tree: node(id("1"), route.ChildrenKey, page())}}
		require.NoError(t, Fits(start.Tree, late), "the entry still merges")

		err := Conflicts(start.Tree, late)
		require.ErrorIs(t, err, ErrStructuralMismatch)
		var sm *StructuralMismatchError
		require.ErrorAs(t, err, &sm)
		assert.Equal(t, id("1"), sm.Segment)
	})

	t.Run("same binding", func(t *testing.T) {
		assert.NoError(t, Conflicts(start.Tree, []flight.Entry{{Path: articlePath, Tree: node(id("2"), route.ChildrenKey, page())}}))
	})

	t.Run("additive", func(t *testing.T) {
		assert.NoError(t, Conflicts(start.Tree, []flight.Entry{{Path: articlePath[:1], Tree: node(segment.Static("b"), route.ChildrenKey, page())}}))
	})

	t.Run("unmergeable", func(t *testing.T) {
		bad := route.Path{{Segment: segment.Static("x"), Parallel: route.ChildrenKey}}
		assert.ErrorIs(t, Conflicts(start.Tree, []flight.Entry{{Path: bad, Tree: page()}}), ErrStructuralMismatch)
	})
}
