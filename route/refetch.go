package route

import (
	"strings"

	"github.com/hupe1980/routecache/segment"
)

// WithRefetch returns a copy of t whose root asks for a full refetch.
func WithRefetch(t *Tree) *Tree {
	c := t.shallowCopy()
	c.Refresh = RefreshRefetch
	return c
}

// AddRefetchMarker returns a copy of t in which the subtree below the last
// step of path is marked for refetch. If path does not match t, t is
// returned unchanged.
func AddRefetchMarker(t *Tree, path Path) *Tree {
	if len(path) == 0 || t == nil {
		return t
	}
	step := path[0]
	if !segment.Match(t.Segment, step.Segment) {
		return t
	}
	child, ok := t.Children[step.Parallel]
	if !ok {
		return t
	}

	var marked *Tree
	if len(path) == 1 {
		marked = WithRefetch(child)
	} else {
		marked = AddRefetchMarker(child, path[1:])
	}
	c := t.shallowCopy()
	c.Children[step.Parallel] = marked
	return c
}

// SegmentsFromPath splits a URL pathname into the static segments an
// optimistic tree is built from: the root, every non-empty component and
// the page leaf.
func SegmentsFromPath(pathname string) []string {
	out := []string{""}
	for _, p := range strings.Split(pathname, "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return append(out, segment.Page)
}

// Optimistic builds a best-guess tree for the URL segments segs on top of
// existing. Levels that cannot be reused from existing are marked for
// refetch; only the topmost such level carries the marker.
func Optimistic(segs []string, existing *Tree) *Tree {
	if len(segs) == 0 {
		return existing
	}
	return optimistic(segs, existing, false)
}

func optimistic(segs []string, existing *Tree, parentRefetch bool) *Tree {
	value := segs[0]

	matches := existing != nil && matchesURL(existing.Segment, value)
	multi := existing != nil && len(existing.Children) > 1
	refetchHere := existing == nil || !matches || multi

	t := &Tree{Segment: segment.Static(value), Children: map[string]*Tree{}}
	if matches {
		t.Segment = existing.Segment
		for k, v := range existing.Children {
			t.Children[k] = v
		}
	}

	if len(segs) > 1 && !multi {
		var next *Tree
		if matches {
			next = existing.Children[ChildrenKey]
		}
		t.Children[ChildrenKey] = optimistic(segs[1:], next, parentRefetch || refetchHere)
	}

	if existing != nil && existing.URL != "" {
		t.URL = existing.URL
	}
	switch {
	case !parentRefetch && refetchHere:
		t.Refresh = RefreshRefetch
	case matches && existing.Refresh != RefreshNone:
		t.Refresh = existing.Refresh
	}
	if matches && existing.RootLayout {
		t.RootLayout = true
	}
	return t
}

// matchesURL reports whether a URL component selects s. The root is
// matched by the empty component and a dynamic segment by its value.
func matchesURL(s segment.Segment, value string) bool {
	switch x := s.(type) {
	case segment.Static:
		return string(x) == value
	case segment.Dynamic:
		return x.Kind == segment.KindDynamic && x.Value == value
	default:
		return false
	}
}

// ExtractPath returns the URL path rendered by t along its primary slots.
// Route groups and the page key contribute nothing. The second result is
// false when the active branch ends in an unresolved default or an
// intercepted route.
func ExtractPath(t *Tree) (string, bool) {
	parts, ok := extractParts(t)
	if !ok {
		return "", false
	}
	var sb strings.Builder
	for _, p := range parts {
		p = strings.TrimPrefix(p, "/")
		if p == "" || segment.IsGroup(segment.Static(p)) {
			continue
		}
		sb.WriteByte('/')
		sb.WriteString(p)
	}
	if sb.Len() == 0 {
		return "/", true
	}
	return sb.String(), true
}

func extractParts(t *Tree) ([]string, bool) {
	if segment.IsDefault(t.Segment) || segment.IsInterception(t.Segment) {
		return nil, false
	}
	if segment.IsPage(t.Segment) {
		return nil, true
	}

	parts := []string{segment.Value(t.Segment)}
	if c, ok := t.Children[ChildrenKey]; ok {
		if sub, ok := extractParts(c); ok {
			return append(parts, sub...), true
		}
	}
	for _, key := range t.Keys() {
		if key == ChildrenKey {
			continue
		}
		if sub, ok := extractParts(t.Children[key]); ok {
			parts = append(parts, sub...)
		}
	}
	return parts, true
}
