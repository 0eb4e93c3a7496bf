// Package route models the route state tree: which segment is active in
// every parallel slot of the current page.
//
// Trees are immutable once published. Every operation in this package
// returns a new tree that shares the untouched subtrees of its inputs.
package route

import (
	"slices"
	"strings"

	"github.com/hupe1980/routecache/segment"
)

// ChildrenKey is the implicit parallel slot of a layout.
const ChildrenKey = "children"

// Refresh is the server instruction attached to a subtree.
type Refresh string

const (
	// RefreshNone carries no instruction.
	RefreshNone Refresh = ""
	// RefreshRefetch asks the server to render the subtree from scratch.
	RefreshRefetch Refresh = "refetch"
	// RefreshRefresh asks the server to refresh the subtree in place.
	RefreshRefresh Refresh = "refresh"
)

// Tree is one node of the route state tree.
type Tree struct {
	Segment  segment.Segment
	Children map[string]*Tree
	// URL optionally overrides the URL to refetch this subtree from.
	URL        string
	Refresh    Refresh
	RootLayout bool
}

// New returns a tree node with the given segment and children.
func New(seg segment.Segment, children map[string]*Tree) *Tree {
	if children == nil {
		children = map[string]*Tree{}
	}
	return &Tree{Segment: seg, Children: children}
}

// IsLeaf reports whether t has no parallel slots.
func (t *Tree) IsLeaf() bool { return len(t.Children) == 0 }

// Keys returns the parallel slot keys of t, "children" first, the rest in
// lexical order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.Children))
	for k := range t.Children {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// primary returns the child followed when a single path through the tree is
// needed.
func (t *Tree) primary() *Tree {
	if c, ok := t.Children[ChildrenKey]; ok {
		return c
	}
	keys := t.Keys()
	if len(keys) == 0 {
		return nil
	}
	return t.Children[keys[0]]
}

func (t *Tree) shallowCopy() *Tree {
	c := *t
	c.Children = make(map[string]*Tree, len(t.Children))
	for k, v := range t.Children {
		c.Children[k] = v
	}
	return &c
}

func compareKeys(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == ChildrenKey:
		return -1
	case b == ChildrenKey:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// Step is one hop of a path: the segment that must be matched at the
// current depth and the parallel slot to descend into.
type Step struct {
	Segment  segment.Segment
	Parallel string
}

// Path addresses a parallel slot in a tree. The first step matches the root
// segment. An empty path addresses the root itself.
type Path []Step

// Append returns a copy of p extended by one step.
func (p Path) Append(seg segment.Segment, parallel string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Step{Segment: seg, Parallel: parallel})
}

// Concat returns a new path made of p followed by q.
func (p Path) Concat(q Path) Path {
	out := make(Path, 0, len(p)+len(q))
	out = append(out, p...)
	return append(out, q...)
}

func (p Path) String() string {
	var sb strings.Builder
	for i, s := range p {
		if i > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(s.Segment.String())
		sb.WriteByte('@')
		sb.WriteString(s.Parallel)
	}
	return sb.String()
}

// At returns the subtree that p leads to, or nil if some step does not
// match.
func At(t *Tree, p Path) *Tree {
	node := t
	for _, step := range p {
		if node == nil || !segment.Match(step.Segment, node.Segment) {
			return nil
		}
		node = node.Children[step.Parallel]
	}
	return node
}

// Equal reports deep structural equality.
func Equal(a, b *Tree) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if !segment.Equal(a.Segment, b.Segment) ||
		a.URL != b.URL ||
		a.Refresh != b.Refresh ||
		a.RootLayout != b.RootLayout ||
		len(a.Children) != len(b.Children) {
		return false
	}
	for k, ac := range a.Children {
		bc, ok := b.Children[k]
		if !ok || !Equal(ac, bc) {
			return false
		}
	}
	return true
}

// Leaf is a path from some tree node down to one of its leaves.
type Leaf struct {
	Path    Path
	Segment segment.Segment
}

// LeafPaths lists every leaf of t. Each path starts with a step for t.
func LeafPaths(t *Tree) []Leaf {
	if t.IsLeaf() {
		return []Leaf{{Segment: t.Segment}}
	}
	var out []Leaf
	for _, key := range t.Keys() {
		for _, l := range LeafPaths(t.Children[key]) {
			out = append(out, Leaf{
				Path:    Path{{Segment: t.Segment, Parallel: key}}.Concat(l.Path),
				Segment: l.Segment,
			})
		}
	}
	return out
}
