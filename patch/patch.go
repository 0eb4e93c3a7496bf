// Package patch applies server patches to a route tree and its render
// cache.
package patch

import (
	"errors"
	"fmt"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/rendercache"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

// ErrStructuralMismatch is returned when a patch path does not exist in the
// tree it is applied to.
var ErrStructuralMismatch = errors.New("structural mismatch")

// StructuralMismatchError reports the entry that did not fit.
type StructuralMismatchError struct {
	Path    route.Path
	Segment segment.Segment
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("patch %q at %q does not fit the current tree", e.Segment, e.Path)
}

func (e *StructuralMismatchError) Unwrap() error { return ErrStructuralMismatch }

func mismatch(e flight.Entry) error {
	var seg segment.Segment
	if e.Tree != nil {
		seg = e.Tree.Segment
	}
	return &StructuralMismatchError{Path: e.Path, Segment: seg}
}

// Result is the outcome of Apply.
type Result struct {
	Tree  *route.Tree
	Cache *rendercache.Node
	// NewRootLayout is set when some entry replaced the root layout.
	NewRootLayout bool
	// Applied counts the entries that wrote to the cache.
	Applied int
}

// ApplyEntry writes the content of e into the cache. Tree-only entries
// write nothing and report false.
func ApplyEntry(tx *rendercache.Tx, e flight.Entry, wasPrefetched bool) bool {
	if e.TreeOnly() {
		return false
	}
	if e.IsRoot() {
		tx.FillRoot(e.Tree, e.Content, e.Head, wasPrefetched)
	} else {
		tx.FillNewSubTreeData(e.Path, e.Tree, e.Content, e.Head, wasPrefetched)
	}
	return true
}

// Apply merges entries into tree in order and fills cache with their
// content. The inputs are not modified. A *StructuralMismatchError is
// returned as soon as one entry does not fit.
func Apply(tree *route.Tree, cache *rendercache.Node, entries []flight.Entry) (*Result, error) {
	tx := rendercache.Begin(cache)
	res := &Result{}

	current := tree
	for _, e := range entries {
		next := route.ApplyPatch(e.Path, current, e.Tree)
		if next == nil {
			return nil, mismatch(e)
		}
		if current != nil && route.IsNavigatingToNewRootLayout(current, next) {
			res.NewRootLayout = true
		}
		if ApplyEntry(tx, e, false) {
			res.Applied++
		}
		current = next
	}

	res.Tree = current
	res.Cache = tx.Commit()
	return res, nil
}

// Fits reports whether every entry can be merged into tree, without
// building anything that is kept.
func Fits(tree *route.Tree, entries []flight.Entry) error {
	current := tree
	for _, e := range entries {
		next := route.ApplyPatch(e.Path, current, e.Tree)
		if next == nil {
			return mismatch(e)
		}
		current = next
	}
	return nil
}

// Conflicts is Fits for entries computed against an older tree. An entry
// that would move a dynamic segment of tree to another binding conflicts
// even though it merges.
func Conflicts(tree *route.Tree, entries []flight.Entry) error {
	current := tree
	for _, e := range entries {
		if e.Tree != nil && ShouldHardNavigate(current, e) {
			return mismatch(e)
		}
		next := route.ApplyPatch(e.Path, current, e.Tree)
		if next == nil {
			return mismatch(e)
		}
		current = next
	}
	return nil
}

// AddRefetchToLeafSegments marks every leaf of e as fetching with fut. It is
// used when a prefetched tree can be trusted but its bodies are stale. It
// reports whether at least one placeholder was installed.
func AddRefetchToLeafSegments(tx *rendercache.Tx, e flight.Entry, fut *fetch.Future) bool {
	applied := false
	for _, leaf := range route.LeafPaths(e.Tree) {
		if !tx.FillDataProperty(e.Path.Concat(leaf.Path), leaf.Segment, fut, false) {
			applied = true
		}
	}
	return applied
}

// ShouldHardNavigate reports whether e moves tree to a different binding of
// a dynamic segment, so cached descendants must not be reused.
func ShouldHardNavigate(tree *route.Tree, e flight.Entry) bool {
	return route.ShouldHardNavigate(e.Path.Append(e.Tree.Segment, route.ChildrenKey), tree)
}

// InvalidateForHardNavigation drops the cached target of e so the following
// fill starts from nothing.
func InvalidateForHardNavigation(tx *rendercache.Tx, e flight.Entry) {
	tx.InvalidateBelow(e.Path, e.Tree.Segment)
}
