package reducer

import (
	"net/url"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/prefetch"
	"github.com/hupe1980/routecache/route"
)

// Action is one of Navigate, Refresh, FastRefresh, Restore, ServerPatch or
// Prefetch.
type Action interface {
	// Name identifies the action kind in logs, traces and metrics.
	Name() string
	isAction()
}

// Mode selects how a navigation updates history.
type Mode uint8

const (
	// ModePush adds a history entry.
	ModePush Mode = iota
	// ModeReplace replaces the current history entry.
	ModeReplace
)

// Navigate moves the router to URL.
type Navigate struct {
	URL  *url.URL
	Mode Mode
	// ForceOptimistic renders a best-guess tree before the server answers
	// when nothing was prefetched for URL.
	ForceOptimistic bool
	// Scroll moves focus and scroll to the rendered segments.
	Scroll bool

	entry  *prefetch.Entry
	status prefetch.Status
}

// Refresh refetches the current URL from the root and replaces the cache.
type Refresh struct {
	fut *fetch.Future
}

// FastRefresh is Refresh for development rebuilds. It keeps the prefetch
// cache and does nothing outside development.
type FastRefresh struct {
	fut *fetch.Future
}

// Restore adopts a tree and URL from history without fetching.
type Restore struct {
	URL  *url.URL
	Tree *route.Tree
}

// ServerPatch applies a response that was computed against PreviousTree.
type ServerPatch struct {
	Response     *flight.Response
	PreviousTree *route.Tree

	fut *fetch.Future
}

// PatchFromFuture returns a ServerPatch whose response is read from fut
// once it settles.
func PatchFromFuture(previous *route.Tree, fut *fetch.Future) ServerPatch {
	return ServerPatch{PreviousTree: previous, fut: fut}
}

// Prefetch speculatively fetches URL into the prefetch cache.
type Prefetch struct {
	URL  *url.URL
	Kind prefetch.Kind
}

func (Navigate) Name() string    { return "navigate" }
func (Refresh) Name() string     { return "refresh" }
func (FastRefresh) Name() string { return "fast-refresh" }
func (Restore) Name() string     { return "restore" }
func (ServerPatch) Name() string { return "server-patch" }
func (Prefetch) Name() string    { return "prefetch" }

func (Navigate) isAction()    {}
func (Refresh) isAction()     {}
func (FastRefresh) isAction() {}
func (Restore) isAction()     {}
func (ServerPatch) isAction() {}
func (Prefetch) isAction()    {}
