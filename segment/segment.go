// Package segment defines the unit of a route path.
//
// A segment is either Static (a literal path component, a route group such
// as "(shop)", or one of the reserved keys) or Dynamic (a parameter binding
// produced by a "[param]" style directory).
package segment

import (
	"strings"
)

// Reserved static segment values.
const (
	// Page marks the leaf page of a route.
	Page = "__PAGE__"
	// Default marks a parallel slot whose segment is not resolved yet.
	Default = "__DEFAULT__"
)

// Root is the segment of the root layout.
const Root = Static("")

// Kind distinguishes the flavours of dynamic segments.
type Kind string

const (
	// KindDynamic is a single parameter ("[id]").
	KindDynamic Kind = "d"
	// KindCatchAll is a catch-all parameter ("[...slug]").
	KindCatchAll Kind = "c"
	// KindOptionalCatchAll is an optional catch-all parameter ("[[...slug]]").
	KindOptionalCatchAll Kind = "oc"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDynamic, KindCatchAll, KindOptionalCatchAll:
		return true
	default:
		return false
	}
}

// Segment is the closed sum type Static | Dynamic.
type Segment interface {
	// String returns a human readable form of the segment.
	String() string

	isSegment()
}

// Static is a literal segment.
type Static string

func (s Static) String() string { return string(s) }

func (Static) isSegment() {}

// Dynamic is a parameter binding.
type Dynamic struct {
	Param string
	Value string
	Kind  Kind
}

func (d Dynamic) String() string {
	return "[" + d.Param + "=" + d.Value + "]"
}

func (Dynamic) isSegment() {}

// Match reports whether a and b address the same route position.
// Static segments must be equal; dynamic segments must agree on
// parameter name and value. The dynamic kind is not compared.
func Match(a, b Segment) bool {
	switch x := a.(type) {
	case Static:
		y, ok := b.(Static)
		return ok && x == y
	case Dynamic:
		y, ok := b.(Dynamic)
		return ok && x.Param == y.Param && x.Value == y.Value
	default:
		return false
	}
}

// Equal reports strict equality, including the dynamic kind.
func Equal(a, b Segment) bool {
	switch x := a.(type) {
	case Static:
		y, ok := b.(Static)
		return ok && x == y
	case Dynamic:
		y, ok := b.(Dynamic)
		return ok && x == y
	default:
		return a == nil && b == nil
	}
}

// CacheKey returns the canonical key of s inside a cache slot.
func CacheKey(s Segment) string {
	switch x := s.(type) {
	case Static:
		return string(x)
	case Dynamic:
		return x.Param + "|" + x.Value + "|" + string(x.Kind)
	default:
		panic("segment: nil segment has no cache key")
	}
}

// Value returns the URL-facing value of s: the literal for static segments
// and the bound value for dynamic ones.
func Value(s Segment) string {
	switch x := s.(type) {
	case Static:
		return string(x)
	case Dynamic:
		return x.Value
	default:
		return ""
	}
}

// IsPage reports whether s is a page leaf. Page segments may carry a
// serialized search string after the reserved key.
func IsPage(s Segment) bool {
	st, ok := s.(Static)
	return ok && strings.HasPrefix(string(st), Page)
}

// IsDefault reports whether s is the unresolved default placeholder.
func IsDefault(s Segment) bool {
	st, ok := s.(Static)
	return ok && st == Default
}

// IsGroup reports whether s is a route group such as "(marketing)".
// Groups structure the tree but never appear in URLs.
func IsGroup(s Segment) bool {
	st, ok := s.(Static)
	return ok && len(st) > 1 && st[0] == '(' && st[len(st)-1] == ')'
}

var interceptionMarkers = []string{"(..)(..)", "(.)", "(..)", "(...)"}

// IsInterception reports whether s starts with an interception marker.
func IsInterception(s Segment) bool {
	v := Value(s)
	for _, m := range interceptionMarkers {
		if strings.HasPrefix(v, m) {
			return true
		}
	}
	return false
}
