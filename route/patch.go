package route

import "github.com/hupe1980/routecache/segment"

// ApplyPatch merges patch into current at the slot addressed by path.
//
// Parallel slots of current that the patch does not mention are kept. A
// patch node carrying the default placeholder never replaces a resolved
// segment. Ancestors on the path lose their URL and refresh markers but
// keep the root layout marker.
//
// ApplyPatch returns nil when a step of path does not match current. The
// caller must treat that as a structural mismatch.
func ApplyPatch(path Path, current, patch *Tree) *Tree {
	if len(path) == 0 {
		if current == nil {
			return patch
		}
		return applyPatch(current, patch)
	}
	if current == nil {
		return nil
	}

	step := path[0]
	if !segment.Match(step.Segment, current.Segment) {
		return nil
	}

	child := current.Children[step.Parallel]

	var patched *Tree
	if len(path) == 1 {
		if child == nil {
			patched = patch
		} else {
			patched = applyPatch(child, patch)
		}
	} else {
		if child == nil {
			return nil
		}
		patched = ApplyPatch(path[1:], child, patch)
		if patched == nil {
			return nil
		}
	}

	children := make(map[string]*Tree, len(current.Children)+1)
	for k, v := range current.Children {
		children[k] = v
	}
	children[step.Parallel] = patched

	return &Tree{
		Segment:    current.Segment,
		Children:   children,
		RootLayout: current.RootLayout,
	}
}

func applyPatch(initial, patch *Tree) *Tree {
	if segment.IsDefault(patch.Segment) && !segment.IsDefault(initial.Segment) {
		return initial
	}
	if !segment.Match(initial.Segment, patch.Segment) {
		return patch
	}

	children := make(map[string]*Tree, len(initial.Children)+len(patch.Children))
	for k, ic := range initial.Children {
		if pc, ok := patch.Children[k]; ok {
			children[k] = applyPatch(ic, pc)
		} else {
			children[k] = ic
		}
	}
	for k, pc := range patch.Children {
		if _, ok := children[k]; !ok {
			children[k] = pc
		}
	}

	return &Tree{
		Segment:    initial.Segment,
		Children:   children,
		URL:        initial.URL,
		Refresh:    initial.Refresh,
		RootLayout: initial.RootLayout,
	}
}

// IsNavigatingToNewRootLayout reports whether moving from current to next
// changes the root layout. Both trees are walked along their primary slot
// until the root layout marker is found. Dynamic segments compare by
// parameter name and kind only, so a value change inside the root layout is
// not a layout change.
func IsNavigatingToNewRootLayout(current, next *Tree) bool {
	switch c := current.Segment.(type) {
	case segment.Dynamic:
		n, ok := next.Segment.(segment.Dynamic)
		if !ok || c.Param != n.Param || c.Kind != n.Kind {
			return true
		}
	default:
		if !segment.Equal(current.Segment, next.Segment) {
			return true
		}
	}

	if current.RootLayout {
		return !next.RootLayout
	}
	if next.RootLayout {
		return true
	}

	cc, nc := current.primary(), next.primary()
	if cc == nil || nc == nil {
		return true
	}
	return IsNavigatingToNewRootLayout(cc, nc)
}

// ShouldHardNavigate reports whether path leaves tree at a dynamic segment
// of the tree, so the tree's binding no longer applies. Leaving at a static
// segment is additive and does not force a hard navigation.
func ShouldHardNavigate(path Path, tree *Tree) bool {
	if len(path) == 0 || tree == nil {
		return false
	}
	step := path[0]
	if !segment.Match(step.Segment, tree.Segment) {
		_, dynamic := tree.Segment.(segment.Dynamic)
		return dynamic
	}
	if len(path) == 1 {
		return false
	}
	return ShouldHardNavigate(path[1:], tree.Children[step.Parallel])
}
