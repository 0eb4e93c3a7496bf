package reducer

import (
	"net/url"
	"time"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/patch"
	"github.com/hupe1980/routecache/prefetch"
	"github.com/hupe1980/routecache/rendercache"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

// probe stands in for a real fetch while checking whether the cache can
// hold optimistic placeholders.
var probe = fetch.Resolved(nil, nil)

func navigate(env Env, s State, a Navigate) Outcome {
	if a.URL == nil {
		panic("reducer: navigate without URL")
	}
	now := env.now()
	pruned := s.Prefetch.Prune(now)

	out := navigateAt(env, s, a, now)
	out.Pruned += pruned
	return out
}

func navigateAt(env Env, s State, a Navigate, now time.Time) Outcome {
	href := Href(a.URL)
	pendingPush := a.Mode == ModePush

	if isExternal(env.Origin, a.URL) {
		return fallback(s, FallbackExternal, a.URL.String(), pendingPush, nil)
	}

	if a.entry == nil && onlyHashChange(s.CanonicalURL, a.URL) {
		s.CanonicalURL = href
		s.PushRef = PushRef{PendingPush: pendingPush}
		s.FocusScroll = FocusScroll{
			Apply:          a.Scroll,
			OnlyHashChange: true,
			HashFragment:   a.URL.Fragment,
			SegmentPaths:   s.FocusScroll.SegmentPaths,
		}
		return Outcome{State: s}
	}

	key := prefetch.Key(a.URL)
	if a.entry == nil {
		entry, ok := s.Prefetch.Get(key)
		switch {
		case ok:
			a.entry = entry
			a.status = s.Prefetch.Policy().Classify(entry, now)
		case a.ForceOptimistic:
			if out, ok := navigateOptimistic(env, s, a, now); ok {
				return out
			}
			fallthrough
		default:
			a.entry = &prefetch.Entry{
				Fetch: env.Fetcher.Fetch(&fetch.Request{
					URL:     key,
					Tree:    s.Tree,
					NextURL: s.NextURL,
					Mode:    fetch.ModeNavigate,
				}),
				Kind:         prefetch.KindTemporary,
				PrefetchTime: now,
				Tree:         s.Tree,
			}
			a.status = prefetch.StatusFresh
			s.Prefetch.Set(key, a.entry)
		}
	}

	entry := a.entry
	if !entry.Fetch.Settled() {
		return Outcome{State: s, Pending: &Suspension{Future: entry.Fetch, Action: a}}
	}
	entry.LastUsedTime = now

	resp, err := entry.Fetch.Result()
	if err != nil {
		return fallback(s, FallbackNetwork, href, pendingPush, err)
	}
	if resp.Redirect != "" {
		return fallback(s, FallbackRedirect, resp.Redirect, pendingPush, nil)
	}

	wasPrefetched := entry.Kind == prefetch.KindAuto && a.status == prefetch.StatusReusable

	tx := rendercache.Begin(s.Cache)
	current := s.Tree
	var (
		scroll    []route.Leaf
		leafFetch *fetch.Future
	)
	for _, e := range resp.Entries {
		next := route.ApplyPatch(e.Path, current, e.Tree)
		if next == nil {
			next = route.ApplyPatch(e.Path, entry.Tree, e.Tree)
		}
		if next == nil {
			return fallback(s, FallbackStructuralMismatch, href, pendingPush,
				&patch.StructuralMismatchError{Path: e.Path, Segment: e.Tree.Segment})
		}
		if route.IsNavigatingToNewRootLayout(current, next) {
			return fallback(s, FallbackRootLayout, href, pendingPush, nil)
		}

		if patch.ShouldHardNavigate(current, e) {
			patch.InvalidateForHardNavigation(tx, e)
		}
		switch {
		case a.status == prefetch.StatusStale:
			// Only the tree of a stale entry is reused; bodies are refetched.
			if leafFetch == nil {
				leafFetch = env.Fetcher.Fetch(&fetch.Request{
					URL:     key,
					Tree:    current,
					NextURL: s.NextURL,
					Mode:    fetch.ModeNavigate,
				})
			}
			patch.AddRefetchToLeafSegments(tx, e, leafFetch)
		default:
			patch.ApplyEntry(tx, e, wasPrefetched)
		}

		current = next
		scroll = appendScrollTargets(scroll, e)
	}

	previous := s.CanonicalURL
	s.Tree = current
	s.Cache = tx.Commit()
	s.CanonicalURL = canonical(href, resp)
	s.PushRef = PushRef{PendingPush: pendingPush}
	s.FocusScroll = FocusScroll{
		Apply:        a.Scroll && len(scroll) > 0,
		HashFragment: a.URL.Fragment,
		SegmentPaths: scroll,
	}
	s.NextURL = nextURL(current, previous)

	out := Outcome{State: s}
	if leafFetch != nil {
		out.Pending = &Suspension{Future: leafFetch, Action: PatchFromFuture(current, leafFetch)}
	}
	return out
}

// navigateOptimistic renders a guessed tree with fetching placeholders. It
// reports false when the cache cannot hold the placeholders.
func navigateOptimistic(env Env, s State, a Navigate, now time.Time) (Outcome, bool) {
	optimistic := route.Optimistic(route.SegmentsFromPath(a.URL.Path), s.Tree)
	path, target := primaryPath(optimistic)

	if rendercache.Begin(s.Cache).FillDataProperty(path, target, probe, true) {
		return Outcome{}, false
	}

	key := prefetch.Key(a.URL)
	fut := env.Fetcher.Fetch(&fetch.Request{
		URL:     key,
		Tree:    optimistic,
		NextURL: s.NextURL,
		Mode:    fetch.ModeNavigate,
	})

	tx := rendercache.Begin(s.Cache)
	tx.FillDataProperty(path, target, fut, true)

	s.Prefetch.Set(key, &prefetch.Entry{
		Fetch:        fut,
		Kind:         prefetch.KindTemporary,
		PrefetchTime: now,
		LastUsedTime: now,
		Tree:         s.Tree,
	})

	previous := s.CanonicalURL
	s.Tree = optimistic
	s.Cache = tx.Commit()
	s.CanonicalURL = Href(a.URL)
	s.PushRef = PushRef{PendingPush: a.Mode == ModePush}
	s.FocusScroll = FocusScroll{HashFragment: a.URL.Fragment}
	s.NextURL = nextURL(optimistic, previous)

	return Outcome{
		State:   s,
		Pending: &Suspension{Future: fut, Action: PatchFromFuture(optimistic, fut)},
	}, true
}

// primaryPath returns the path along the children slots of t and the
// segment it ends at.
func primaryPath(t *route.Tree) (route.Path, segment.Segment) {
	var p route.Path
	for {
		c := t.Children[route.ChildrenKey]
		if c == nil {
			return p, t.Segment
		}
		p = append(p, route.Step{Segment: t.Segment, Parallel: route.ChildrenKey})
		t = c
	}
}

func appendScrollTargets(dst []route.Leaf, e flight.Entry) []route.Leaf {
	for _, l := range route.LeafPaths(e.Tree) {
		if segment.IsDefault(l.Segment) {
			continue
		}
		dst = append(dst, route.Leaf{Path: e.Path.Concat(l.Path), Segment: l.Segment})
	}
	return dst
}

func canonical(href string, resp *flight.Response) string {
	if resp.CanonicalURL != "" {
		return resp.CanonicalURL
	}
	return href
}

func onlyHashChange(canonicalURL string, u *url.URL) bool {
	if u.Fragment == "" {
		return false
	}
	cur, err := url.Parse(canonicalURL)
	if err != nil {
		return false
	}
	return prefetch.Key(cur) == prefetch.Key(u)
}
