package route

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routecache/segment"
)

func node(seg segment.Segment, kv ...any) *Tree {
	t := New(seg, nil)
	for i := 0; i < len(kv); i += 2 {
		t.Children[kv[i].(string)] = kv[i+1].(*Tree)
	}
	return t
}

func page() *Tree { return node(segment.Static(segment.Page)) }

func id(v string) segment.Dynamic {
	return segment.Dynamic{Param: "id", Value: v, Kind: segment.KindDynamic}
}

// "" -> a -> [id] -> edit -> __PAGE__
func articleTree(v string) *Tree {
	root := node(segment.Root, "children",
		node(segment.Static("a"), "children",
			node(id(v), "children",
				node(segment.Static("edit"), "children", page()))))
	root.RootLayout = true
	return root
}

func rootPath() Path {
	return Path{{Segment: segment.Root, Parallel: ChildrenKey}}
}

func TestApplyPatch(t *testing.T) {
	t.Run("replaces mismatched subtree", func(t *testing.T) {
		current := articleTree("1")
		p := rootPath().Append(segment.Static("a"), ChildrenKey)
		patch := node(id("2"), "children", page())

		got := ApplyPatch(p, current, patch)
		require.NotNil(t, got)

		// Round trip: the subtree at p is the patch.
		assert.True(t, Equal(patch, At(got, p)))
		assert.True(t, got.RootLayout)
		assert.False(t, IsNavigatingToNewRootLayout(current, got))
	})

	t.Run("preserves parallel siblings", func(t *testing.T) {
		modal := node(segment.Static("(.)photo"), "children", page())
		current := node(segment.Root,
			"children", node(segment.Static("feed"), "children", page()),
			"modal", modal,
		)
		patch := node(segment.Static("feed"), "children", node(segment.Static("__PAGE__?x")))

		got := ApplyPatch(rootPath(), current, patch)
		require.NotNil(t, got)
		assert.Same(t, modal, got.Children["modal"])
		assert.Equal(t, segment.Static("__PAGE__?x"), got.Children["children"].Children["children"].Segment)
	})

	t.Run("default segment is a no-op", func(t *testing.T) {
		resolved := node(segment.Static("settings"), "children", page())
		current := node(segment.Root, "modal", resolved)
		patch := node(segment.Static(segment.Default))

		got := ApplyPatch(Path{{Segment: segment.Root, Parallel: "modal"}}, current, patch)
		require.NotNil(t, got)
		assert.Same(t, resolved, got.Children["modal"])
	})

	t.Run("mismatch returns nil", func(t *testing.T) {
		current := articleTree("2")
		p := rootPath().
			Append(segment.Static("a"), ChildrenKey).
			Append(id("1"), ChildrenKey)

		assert.Nil(t, ApplyPatch(p, current, node(segment.Static("edit"), "children", page())))
	})

	t.Run("missing intermediate slot returns nil", func(t *testing.T) {
		current := articleTree("1")
		p := Path{{Segment: segment.Root, Parallel: "sidebar"}, {Segment: segment.Static("x"), Parallel: ChildrenKey}}
		assert.Nil(t, ApplyPatch(p, current, page()))
	})

	t.Run("ancestors drop url and refresh", func(t *testing.T) {
		current := articleTree("1")
		current.Children["children"].URL = "/a"
		current.Children["children"].Refresh = RefreshRefetch

		p := rootPath().Append(segment.Static("a"), ChildrenKey)
		got := ApplyPatch(p, current, node(id("3"), "children", page()))
		require.NotNil(t, got)

		a := got.Children["children"]
		assert.Empty(t, a.URL)
		assert.Equal(t, RefreshNone, a.Refresh)
	})

	t.Run("input trees are untouched", func(t *testing.T) {
		current := articleTree("1")
		before := articleTree("1")
		_ = ApplyPatch(rootPath().Append(segment.Static("a"), ChildrenKey), current, node(id("9")))
		if diff := cmp.Diff(before, current); diff != "" {
			t.Fatalf("current mutated (-want +got):\n%s", diff)
		}
	})

	t.Run("root patch merges at root", func(t *testing.T) {
		current := articleTree("1")
		patch := node(segment.Root, "children", node(segment.Static("b"), "children", page()))
		got := ApplyPatch(nil, current, patch)
		require.NotNil(t, got)
		assert.Equal(t, segment.Static("b"), got.Children["children"].Segment)
		assert.True(t, got.RootLayout)
	})
}

func TestIsNavigatingToNewRootLayout(t *testing.T) {
	withLayout := func(name string) *Tree {
		l := node(segment.Static(name), "children", page())
		l.RootLayout = true
		return node(segment.Root, "children", l)
	}

	assert.False(t, IsNavigatingToNewRootLayout(withLayout("(shop)"), withLayout("(shop)")))
	assert.True(t, IsNavigatingToNewRootLayout(withLayout("(shop)"), withLayout("(blog)")))

	// The new tree lost the marker.
	deeper := node(segment.Root, "children", node(segment.Static("(shop)"), "children", page()))
	assert.True(t, IsNavigatingToNewRootLayout(withLayout("(shop)"), deeper))

	// Dynamic value changes inside the root layout keep the layout.
	dyn := func(v string) *Tree {
		l := node(segment.Dynamic{Param: "lang", Value: v, Kind: segment.KindDynamic}, "children", page())
		l.RootLayout = true
		return node(segment.Root, "children", l)
	}
	assert.False(t, IsNavigatingToNewRootLayout(dyn("en"), dyn("de")))
}

func TestShouldHardNavigate(t *testing.T) {
	tree := articleTree("1")

	t.Run("dynamic value differs", func(t *testing.T) {
		p := rootPath().
			Append(segment.Static("a"), ChildrenKey).
			Append(id("2"), ChildrenKey)
		assert.True(t, ShouldHardNavigate(p, tree))
	})

	t.Run("matching path", func(t *testing.T) {
		p := rootPath().
			Append(segment.Static("a"), ChildrenKey).
			Append(id("1"), ChildrenKey)
		assert.False(t, ShouldHardNavigate(p, tree))
	})

	t.Run("static divergence is additive", func(t *testing.T) {
		p := rootPath().
			Append(segment.Static("b"), ChildrenKey).
			Append(id("2"), ChildrenKey)
		assert.False(t, ShouldHardNavigate(p, tree))
	})

	t.Run("path beyond tree", func(t *testing.T) {
		p := rootPath().Append(segment.Static("a"), "sidebar").Append(id("5"), ChildrenKey)
		assert.False(t, ShouldHardNavigate(p, tree))
	})

	t.Run("dynamic tree segment left for a static one", func(t *testing.T) {
		p := rootPath().
			Append(segment.Static("a"), ChildrenKey).
			Append(segment.Static("new"), ChildrenKey)
		assert.True(t, ShouldHardNavigate(p, tree))
	})

	t.Run("static tree segment left for a dynamic one", func(t *testing.T) {
		guess := node(segment.Root, "children",
			node(segment.Static("a"), "children", node(segment.Static("2"))))
		p := rootPath().
			Append(segment.Static("a"), ChildrenKey).
			Append(id("2"), ChildrenKey)
		assert.False(t, ShouldHardNavigate(p, guess))
	})
}

func TestAddRefetchMarker(t *testing.T) {
	tree := articleTree("1")
	p := rootPath().Append(segment.Static("a"), ChildrenKey)

	got := AddRefetchMarker(tree, p)
	assert.Equal(t, RefreshRefetch, At(got, p).Refresh)
	assert.Equal(t, RefreshNone, At(tree, p).Refresh)

	// Unmatched paths leave the tree alone.
	assert.Same(t, tree, AddRefetchMarker(tree, Path{{Segment: segment.Static("x"), Parallel: ChildrenKey}}))

	assert.Equal(t, RefreshRefetch, WithRefetch(tree).Refresh)
	assert.Equal(t, RefreshNone, tree.Refresh)
}

func TestOptimistic(t *testing.T) {
	existing := articleTree("1")

	t.Run("reuses matching prefix", func(t *testing.T) {
		got := Optimistic(SegmentsFromPath("/a/2"), existing)

		assert.Equal(t, RefreshNone, got.Refresh)
		assert.True(t, got.RootLayout)
		a := got.Children["children"]
		assert.Equal(t, segment.Static("a"), a.Segment)
		assert.Equal(t, RefreshNone, a.Refresh)

		two := a.Children["children"]
		assert.Equal(t, segment.Static("2"), two.Segment)
		assert.Equal(t, RefreshRefetch, two.Refresh)

		leaf := two.Children["children"]
		assert.Equal(t, segment.Static(segment.Page), leaf.Segment)
		assert.Equal(t, RefreshNone, leaf.Refresh, "only the topmost refetch level is marked")
	})

	t.Run("dynamic segments matched by value", func(t *testing.T) {
		got := Optimistic(SegmentsFromPath("/a/1/edit"), existing)
		one := got.Children["children"].Children["children"]
		assert.Equal(t, id("1"), one.Segment)
		assert.Equal(t, RefreshNone, one.Refresh)
	})

	t.Run("without existing tree", func(t *testing.T) {
		got := Optimistic(SegmentsFromPath("/"), nil)
		assert.Equal(t, RefreshRefetch, got.Refresh)
		assert.Equal(t, segment.Static(segment.Page), got.Children["children"].Segment)
	})
}

func TestExtractPath(t *testing.T) {
	p, ok := ExtractPath(articleTree("42"))
	require.True(t, ok)
	assert.Equal(t, "/a/42/edit", p)

	grouped := node(segment.Root, "children",
		node(segment.Static("(shop)"), "children",
			node(segment.Static("cart"), "children", page())))
	p, ok = ExtractPath(grouped)
	require.True(t, ok)
	assert.Equal(t, "/cart", p)

	p, ok = ExtractPath(node(segment.Root, "children", page()))
	require.True(t, ok)
	assert.Equal(t, "/", p)

	_, ok = ExtractPath(node(segment.Static(segment.Default)))
	assert.False(t, ok)
}

func TestLeafPaths(t *testing.T) {
	tree := node(segment.Static("dash"),
		"children", page(),
		"analytics", node(segment.Static("views"), "children", page()),
	)

	leaves := LeafPaths(tree)
	require.Len(t, leaves, 2)

	assert.Equal(t, Path{{Segment: segment.Static("dash"), Parallel: "children"}}, leaves[0].Path)
	assert.Equal(t, segment.Static(segment.Page), leaves[0].Segment)

	assert.Equal(t, Path{
		{Segment: segment.Static("dash"), Parallel: "analytics"},
		{Segment: segment.Static("views"), Parallel: "children"},
	}, leaves[1].Path)
}

func TestWire(t *testing.T) {
	tree := articleTree("5")
	tree.Children["children"].URL = "/a"
	tree.Children["children"].Refresh = RefreshRefresh

	b, err := tree.MarshalJSON()
	require.NoError(t, err)

	var decoded Tree
	require.NoError(t, decoded.UnmarshalJSON(b))
	assert.True(t, Equal(tree, &decoded))

	t.Run("compact form", func(t *testing.T) {
		b, err := page().MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, `["__PAGE__",{}]`, string(b))
	})

	t.Run("header round trip", func(t *testing.T) {
		h, err := EncodeHeader(tree)
		require.NoError(t, err)
		assert.NotContains(t, h, "[")

		got, err := DecodeHeader(h)
		require.NoError(t, err)
		assert.True(t, Equal(tree, got))
	})

	t.Run("invalid", func(t *testing.T) {
		var tr Tree
		assert.ErrorIs(t, tr.UnmarshalJSON([]byte(`["a"]`)), ErrInvalidTree)
		assert.ErrorIs(t, tr.UnmarshalJSON([]byte(`[1,{}]`)), ErrInvalidTree)
	})
}
