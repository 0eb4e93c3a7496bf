// Package render resolves a router state into the tree of payloads to
// display.
//
// Rendering never blocks. A segment whose content is still being fetched
// yields a *NotReadyError carrying the future to wait for; RenderWait wraps
// the retry loop. Segments missing from the cache are fetched lazily, once
// per cache position, and patched in through the Source.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/prefetch"
	"github.com/hupe1980/routecache/reducer"
	"github.com/hupe1980/routecache/rendercache"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

// ErrHardNavigation is returned when the state asks for a full document
// load instead of a render.
var ErrHardNavigation = errors.New("render: full page load required")

// NotReadyError reports a segment whose content is not available yet.
type NotReadyError struct {
	Path    route.Path
	Segment segment.Segment
	// Wait settles when the fetch for the segment completes.
	Wait *fetch.Future
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("render: segment %q at %q not ready", e.Segment, e.Path)
}

// Source is the router a Renderer reads from.
type Source interface {
	State() reducer.State
	Dispatch(ctx context.Context, a reducer.Action) reducer.State
	Fetcher() reducer.Fetcher
	// Changed returns a channel closed at the next state change.
	Changed() <-chan struct{}
}

// View is one rendered segment.
type View struct {
	Segment segment.Segment
	// Path is the path of the slot holding the view.
	Path    route.Path
	Content *flight.Payload
	// Lazy views have no content of their own; an ancestor payload
	// renders them.
	Lazy  bool
	Slots map[string]*View
}

// Frame is a complete render.
type Frame struct {
	Root *View
	// Head is the head of the active leaf.
	Head *flight.Payload
	URL  string
}

type lazyKey struct {
	parent   *rendercache.Node
	slot     string
	cacheKey string
}

// Renderer renders a Source. It is safe for concurrent use.
type Renderer struct {
	src Source

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	lazy map[lazyKey]*fetch.Future
}

// New creates a renderer for src.
func New(src Source) *Renderer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Renderer{
		src:    src,
		ctx:    ctx,
		cancel: cancel,
		lazy:   make(map[lazyKey]*fetch.Future),
	}
}

// Render renders the current state once.
func (r *Renderer) Render() (*Frame, error) {
	return r.render(r.src.State())
}

// RenderWait renders, waiting for state changes while some segment is not
// ready.
func (r *Renderer) RenderWait(ctx context.Context) (*Frame, error) {
	for {
		changed := r.src.Changed()

		f, err := r.Render()
		var nr *NotReadyError
		if !errors.As(err, &nr) {
			return f, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

// Close stops lazy fetches from being patched in and waits for their
// goroutines.
func (r *Renderer) Close() error {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Renderer) render(s reducer.State) (*Frame, error) {
	if s.PushRef.MPANavigation {
		return nil, ErrHardNavigation
	}

	w := walker{r: r, state: s}
	root, err := w.node(nil, s.Cache, nil, "", s.Tree, true)
	if err != nil {
		return nil, err
	}
	return &Frame{Root: root, Head: w.head, URL: s.CanonicalURL}, nil
}

type walker struct {
	r     *Renderer
	state reducer.State
	head  *flight.Payload
}

func (w *walker) node(path route.Path, n, parent *rendercache.Node, slot string, t *route.Tree, active bool) (*View, error) {
	if n == nil {
		return nil, &NotReadyError{Path: path, Segment: t.Segment, Wait: w.r.fetchLazy(w.state, path, parent, slot, t)}
	}
	if n.Status() == rendercache.StatusFetching {
		return nil, &NotReadyError{Path: path, Segment: t.Segment, Wait: n.Fetch()}
	}

	v := &View{
		Segment: t.Segment,
		Path:    path,
		Content: n.Content(),
		Lazy:    n.Status() == rendercache.StatusEmpty,
		Slots:   make(map[string]*View, len(t.Children)),
	}
	if t.IsLeaf() {
		if active {
			w.head = n.Head()
		}
		return v, nil
	}

	for _, key := range t.Keys() {
		child := t.Children[key]
		cv, err := w.node(path.Append(t.Segment, key), n.Child(key, child.Segment), n, key, child, active && key == route.ChildrenKey)
		if err != nil {
			return nil, err
		}
		v.Slots[key] = cv
	}
	return v, nil
}

// fetchLazy returns the fetch for a segment missing from the cache,
// starting it on first use.
func (r *Renderer) fetchLazy(s reducer.State, path route.Path, parent *rendercache.Node, slot string, t *route.Tree) *fetch.Future {
	key := lazyKey{parent: parent, slot: slot, cacheKey: segment.CacheKey(t.Segment)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if fut, ok := r.lazy[key]; ok {
		return fut
	}
	if r.ctx.Err() != nil {
		return fetch.Resolved(nil, fetch.ErrClosed)
	}

	reqTree := route.AddRefetchMarker(s.Tree, path)
	if len(path) == 0 {
		reqTree = route.WithRefetch(s.Tree)
	}
	fut := r.src.Fetcher().Fetch(&fetch.Request{
		URL:     requestURL(s.CanonicalURL),
		Tree:    reqTree,
		NextURL: s.NextURL,
		Mode:    fetch.ModeNavigate,
	})
	r.lazy[key] = fut

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-fut.Done():
			r.src.Dispatch(r.ctx, reducer.PatchFromFuture(s.Tree, fut))
		case <-r.ctx.Done():
		}

		r.mu.Lock()
		delete(r.lazy, key)
		r.mu.Unlock()
	}()

	return fut
}

func requestURL(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return canonical
	}
	return prefetch.Key(u)
}
