package reducer

import (
	"github.com/hupe1980/routecache/patch"
	"github.com/hupe1980/routecache/route"
)

// serverPatch applies a response to the tree it was computed against. A
// patch for an older tree is dropped with a warning.
func serverPatch(s State, a ServerPatch) Outcome {
	if a.Response == nil {
		if a.fut == nil {
			panic("reducer: server patch without response")
		}
		if !a.fut.Settled() {
			return Outcome{State: s, Pending: &Suspension{Future: a.fut, Action: a}}
		}
	}

	if !route.Equal(a.PreviousTree, s.Tree) {
		return Outcome{State: s, Warnings: []error{&StalePatchError{Expected: a.PreviousTree, Current: s.Tree}}}
	}

	resp := a.Response
	if resp == nil {
		var err error
		resp, err = a.fut.Result()
		if err != nil {
			return fallback(s, FallbackNetwork, s.CanonicalURL, s.PushRef.PendingPush, err)
		}
	}
	if resp.Redirect != "" {
		return fallback(s, FallbackRedirect, resp.Redirect, s.PushRef.PendingPush, nil)
	}

	res, err := patch.Apply(s.Tree, s.Cache, resp.Entries)
	if err != nil {
		return fallback(s, FallbackStructuralMismatch, s.CanonicalURL, s.PushRef.PendingPush, err)
	}
	if res.NewRootLayout {
		return fallback(s, FallbackRootLayout, s.CanonicalURL, s.PushRef.PendingPush, nil)
	}

	previous := s.CanonicalURL
	s.Tree = res.Tree
	s.Cache = res.Cache
	s.CanonicalURL = canonical(s.CanonicalURL, resp)
	s.NextURL = nextURL(res.Tree, previous)
	return Outcome{State: s}
}
