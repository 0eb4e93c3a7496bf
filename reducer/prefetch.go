package reducer

import (
	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/prefetch"
)

// prefetchURL records a speculative fetch. It never touches the tree or
// the URL.
func prefetchURL(env Env, s State, a Prefetch) Outcome {
	if a.URL == nil {
		panic("reducer: prefetch without URL")
	}
	now := env.now()
	out := Outcome{State: s, Pruned: s.Prefetch.Prune(now)}

	if isExternal(env.Origin, a.URL) {
		return out
	}
	var mode fetch.Mode
	switch a.Kind {
	case prefetch.KindAuto:
		mode = fetch.ModePrefetchAuto
	case prefetch.KindFull:
		mode = fetch.ModePrefetchFull
	default:
		out.Warnings = append(out.Warnings, ErrInvalidPrefetchKind)
		return out
	}

	key := prefetch.Key(a.URL)
	if !s.Prefetch.Upgrade(key, a.Kind) {
		return out
	}

	s.Prefetch.Set(key, &prefetch.Entry{
		Fetch:        env.Fetcher.Prefetch(&fetch.Request{URL: key, Tree: s.Tree, NextURL: s.NextURL, Mode: mode}),
		Kind:         a.Kind,
		PrefetchTime: now,
		Tree:         s.Tree,
	})
	return out
}
