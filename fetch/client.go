// Package fetch issues flight requests on behalf of the router.
//
// A Client performs the transport. The Launcher wraps a Client and exposes
// every request as a Future: navigations run immediately, prefetches go
// through a bounded Queue, and identical in-flight requests share one
// round trip.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/route"
)

// Mode is the purpose of a request.
type Mode uint8

const (
	// ModeNavigate fetches everything the target page needs.
	ModeNavigate Mode = iota
	// ModePrefetchAuto fetches the tree and content down to the first
	// loading boundary.
	ModePrefetchAuto
	// ModePrefetchFull fetches the complete page.
	ModePrefetchFull
)

func (m Mode) String() string {
	switch m {
	case ModeNavigate:
		return "navigate"
	case ModePrefetchAuto:
		return "prefetch-auto"
	case ModePrefetchFull:
		return "prefetch-full"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Request describes one flight fetch.
type Request struct {
	// URL is the path and query to fetch, without fragment.
	URL string
	// Tree is the current route tree, possibly carrying refetch markers,
	// so the server can compute a minimal patch.
	Tree *route.Tree
	// NextURL hints the path the router currently renders.
	NextURL string
	Mode    Mode
}

// Client performs flight requests.
type Client interface {
	FetchTree(ctx context.Context, req *Request) (*flight.Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req *Request) (*flight.Response, error)

// FetchTree calls f.
func (f ClientFunc) FetchTree(ctx context.Context, req *Request) (*flight.Response, error) {
	return f(ctx, req)
}

// ErrNetwork classifies transport failures.
var ErrNetwork = errors.New("network failure")

// NetworkError wraps a failed request.
//
// errors.Is(err, ErrNetwork) holds for every NetworkError; the underlying
// error is available through errors.Unwrap.
type NetworkError struct {
	URL   string
	Mode  Mode
	cause error
}

// NewNetworkError wraps cause as a NetworkError for req.
func NewNetworkError(req *Request, cause error) *NetworkError {
	return &NetworkError{URL: req.URL, Mode: req.Mode, cause: cause}
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Mode, e.URL, e.cause)
}

func (e *NetworkError) Unwrap() error { return e.cause }

// Is reports whether target is ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
