package reducer

import (
	"errors"
	"fmt"

	"github.com/hupe1980/routecache/route"
)

var (
	// ErrStalePatch is wrapped by StalePatchError.
	ErrStalePatch = errors.New("server patch computed against an old tree")

	// ErrPartialRefresh is reported when a refresh response does not patch
	// the root.
	ErrPartialRefresh = errors.New("refresh response is not a root patch")

	// ErrInvalidPrefetchKind is reported for prefetches that are neither
	// auto nor full.
	ErrInvalidPrefetchKind = errors.New("prefetch kind must be auto or full")
)

// StalePatchError is the warning emitted when a ServerPatch is dropped
// because the tree changed since its request.
type StalePatchError struct {
	Expected *route.Tree
	Current  *route.Tree
}

func (e *StalePatchError) Error() string {
	return ErrStalePatch.Error()
}

func (e *StalePatchError) Unwrap() error { return ErrStalePatch }

// FallbackReason is why an action gave up on client-side routing.
type FallbackReason uint8

const (
	FallbackStructuralMismatch FallbackReason = iota + 1
	FallbackNetwork
	FallbackRootLayout
	FallbackRedirect
	FallbackExternal
)

func (r FallbackReason) String() string {
	switch r {
	case FallbackStructuralMismatch:
		return "structural-mismatch"
	case FallbackNetwork:
		return "network"
	case FallbackRootLayout:
		return "root-layout"
	case FallbackRedirect:
		return "redirect"
	case FallbackExternal:
		return "external"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Fallback asks for a full document load of URL.
type Fallback struct {
	Reason FallbackReason
	URL    string
	// Err is the failure behind the fallback, if any.
	Err error
}
