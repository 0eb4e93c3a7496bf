package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

// Tree builds a route tree node. seg is a segment.Segment or a string for a
// static segment; kv alternates parallel route keys and child trees.
func Tree(seg any, kv ...any) *route.Tree {
	if len(kv)%2 != 0 {
		panic("testutil: Tree needs key/child pairs")
	}
	t := route.New(toSegment(seg), nil)
	for i := 0; i < len(kv); i += 2 {
		t.Children[kv[i].(string)] = kv[i+1].(*route.Tree)
	}
	return t
}

func toSegment(v any) segment.Segment {
	switch s := v.(type) {
	case segment.Segment:
		return s
	case string:
		return segment.Static(s)
	default:
		panic(fmt.Sprintf("testutil: %T is not a segment", v))
	}
}

// Page returns a page leaf.
func Page() *route.Tree {
	return route.New(segment.Static(segment.Page), nil)
}

// Param returns a single-value dynamic segment.
func Param(name, value string) segment.Dynamic {
	return segment.Dynamic{Param: name, Value: value, Kind: segment.KindDynamic}
}

// RootLayout marks t as the root layout and returns it.
func RootLayout(t *route.Tree) *route.Tree {
	t.RootLayout = true
	return t
}

// ArticleTree returns "" -> a -> [id=v] -> __PAGE__ with the root layout at
// the root.
func ArticleTree(v string) *route.Tree {
	return RootLayout(Tree("",
		route.ChildrenKey, Tree("a",
			route.ChildrenKey, Tree(Param("id", v),
				route.ChildrenKey, Page()))))
}

// Step returns a path step through the children slot of seg.
func Step(seg any) route.Step {
	return route.Step{Segment: toSegment(seg), Parallel: route.ChildrenKey}
}

// Path builds a path through the children slots of segs.
func Path(segs ...any) route.Path {
	p := make(route.Path, 0, len(segs))
	for _, s := range segs {
		p = append(p, Step(s))
	}
	return p
}

// Call is one request seen by a FakeFetcher.
type Call struct {
	Request  *fetch.Request
	Prefetch bool
	Future   *fetch.Future

	resolve func(*flight.Response, error)
}

// Resolve settles the call's future.
func (c *Call) Resolve(resp *flight.Response, err error) {
	c.resolve(resp, err)
}

// FakeFetcher records requests and hands out futures that are settled by
// the test. It is safe for concurrent use.
type FakeFetcher struct {
	mu        sync.Mutex
	calls     []*Call
	responses map[string]*flight.Response
}

// NewFakeFetcher creates a fetcher with no canned responses.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{responses: make(map[string]*flight.Response)}
}

// Respond makes every later request for url settle immediately with resp.
func (f *FakeFetcher) Respond(url string, resp *flight.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = resp
}

// Forget drops the canned response for url.
func (f *FakeFetcher) Forget(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.responses, url)
}

// Fetch implements reducer.Fetcher.
func (f *FakeFetcher) Fetch(req *fetch.Request) *fetch.Future {
	return f.record(req, false)
}

// Prefetch implements reducer.Fetcher.
func (f *FakeFetcher) Prefetch(req *fetch.Request) *fetch.Future {
	return f.record(req, true)
}

func (f *FakeFetcher) record(req *fetch.Request, prefetch bool) *fetch.Future {
	fut, resolve := fetch.NewFuture()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, &Call{Request: req, Prefetch: prefetch, Future: fut, resolve: resolve})
	if resp, ok := f.responses[req.URL]; ok {
		resolve(resp, nil)
	}
	return fut
}

// Calls returns every request seen so far.
func (f *FakeFetcher) Calls() []*Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Call(nil), f.calls...)
}

// Len returns the number of requests seen so far.
func (f *FakeFetcher) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Last returns the latest request, or nil.
func (f *FakeFetcher) Last() *Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// Pending returns the requests for url whose futures have not settled.
func (f *FakeFetcher) Pending(url string) []*Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*Call
	for _, c := range f.calls {
		if c.Request.URL == url && !c.Future.Settled() {
			out = append(out, c)
		}
	}
	return out
}

// Clock is a manually advanced time source. It is safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
