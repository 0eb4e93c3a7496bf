// Package reducer implements the router state machine: a pure function
// from a state and an action to the next state, plus the asynchronous work
// that has to finish before the action can complete.
package reducer

import (
	"net/url"

	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/prefetch"
	"github.com/hupe1980/routecache/rendercache"
	"github.com/hupe1980/routecache/route"
)

// PushRef tells the history layer what to do with the new URL.
type PushRef struct {
	// PendingPush asks for a new history entry instead of replacing the
	// current one.
	PendingPush bool
	// MPANavigation asks for a full document load of CanonicalURL.
	MPANavigation bool
	// PreserveCustomHistoryState keeps state the application stored on
	// the current history entry.
	PreserveCustomHistoryState bool
}

// FocusScroll describes where focus and scroll should move after render.
type FocusScroll struct {
	Apply          bool
	OnlyHashChange bool
	HashFragment   string
	// SegmentPaths are the leaves a navigation rendered. Default
	// placeholders are excluded.
	SegmentPaths []route.Leaf
}

// State is one immutable router snapshot. Prefetch is shared by every
// snapshot of a session.
type State struct {
	Tree         *route.Tree
	Cache        *rendercache.Node
	Prefetch     *prefetch.Cache
	PushRef      PushRef
	FocusScroll  FocusScroll
	CanonicalURL string
	// NextURL is the URL of the rendered route, sent with fetches so the
	// server can resolve intercepted routes.
	NextURL string
}

// InitialConfig describes the page the router starts on.
type InitialConfig struct {
	URL     *url.URL
	Tree    *route.Tree
	Content *flight.Payload
	Head    *flight.Payload
	Policy  prefetch.Policy
}

// NewInitialState builds the first state: a ready root holding content and
// lazy nodes for everything below it.
func NewInitialState(cfg InitialConfig) State {
	if cfg.URL == nil || cfg.Tree == nil {
		panic("reducer: initial state needs a URL and a tree")
	}

	tx := rendercache.Begin(nil)
	tx.FillRoot(cfg.Tree, cfg.Content, cfg.Head, false)

	return State{
		Tree:         cfg.Tree,
		Cache:        tx.Commit(),
		Prefetch:     prefetch.NewCache(cfg.Policy),
		PushRef:      PushRef{PreserveCustomHistoryState: true},
		CanonicalURL: Href(cfg.URL),
		NextURL:      nextURL(cfg.Tree, cfg.URL.EscapedPath()),
	}
}

// Href renders u the way it is stored in CanonicalURL: path, query and
// fragment, without scheme and host.
func Href(u *url.URL) string {
	h := prefetch.Key(u)
	if u.Fragment != "" {
		h += "#" + u.EscapedFragment()
	}
	return h
}

func nextURL(t *route.Tree, fallback string) string {
	if p, ok := route.ExtractPath(t); ok {
		return p
	}
	return fallback
}
