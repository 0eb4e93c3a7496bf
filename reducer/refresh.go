package reducer

import (
	"fmt"
	"net/url"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/patch"
	"github.com/hupe1980/routecache/prefetch"
	"github.com/hupe1980/routecache/rendercache"
	"github.com/hupe1980/routecache/route"
)

// refresh refetches the canonical URL from the root. The response must
// consist of root patches only.
func refresh(env Env, s State, fut *fetch.Future, keepPrefetch bool, resume func(*fetch.Future) Action) Outcome {
	href := s.CanonicalURL

	if fut == nil {
		u, err := url.Parse(href)
		if err != nil {
			panic(fmt.Sprintf("reducer: invalid canonical URL %q: %v", href, err))
		}
		fut = env.Fetcher.Fetch(&fetch.Request{
			URL:     prefetch.Key(u),
			Tree:    route.WithRefetch(s.Tree),
			NextURL: s.NextURL,
			Mode:    fetch.ModeNavigate,
		})
	}
	if !fut.Settled() {
		return Outcome{State: s, Pending: &Suspension{Future: fut, Action: resume(fut)}}
	}

	resp, err := fut.Result()
	if err != nil {
		return fallback(s, FallbackNetwork, href, s.PushRef.PendingPush, err)
	}
	if resp.Redirect != "" {
		return fallback(s, FallbackRedirect, resp.Redirect, s.PushRef.PendingPush, nil)
	}

	for _, e := range resp.Entries {
		if !e.IsRoot() {
			return Outcome{State: s, Warnings: []error{fmt.Errorf("%w: entry at %q", ErrPartialRefresh, e.Path)}}
		}
	}

	tx := rendercache.Begin(s.Cache)
	current := s.Tree
	replaced := false
	for _, e := range resp.Entries {
		next := route.ApplyPatch(nil, current, e.Tree)
		if route.IsNavigatingToNewRootLayout(current, next) {
			return fallback(s, FallbackRootLayout, href, s.PushRef.PendingPush, nil)
		}
		if !e.TreeOnly() {
			if !replaced {
				tx.Reset()
			}
			patch.ApplyEntry(tx, e, false)
			replaced = true
		}
		current = next
	}

	s.Tree = current
	s.Cache = tx.Commit()
	s.CanonicalURL = canonical(href, resp)
	if replaced && !keepPrefetch {
		s.Prefetch.Clear()
	}
	return Outcome{State: s}
}
