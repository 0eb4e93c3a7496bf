package reducer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/rendercache"
)

// Fetcher issues fetches. *fetch.Launcher implements it.
type Fetcher interface {
	Fetch(req *fetch.Request) *fetch.Future
	Prefetch(req *fetch.Request) *fetch.Future
}

// Env is what the reducer needs from the outside world.
type Env struct {
	Fetcher Fetcher
	// Now defaults to time.Now.
	Now func() time.Time
	// Origin is the scheme and host of the application, e.g.
	// "https://example.com". Absolute URLs with another origin are
	// loaded as documents. An empty Origin treats every URL as internal.
	Origin string
	// Development enables FastRefresh.
	Development bool
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Suspension is work the reducer is waiting on. Once Future settles,
// Action must be dispatched to continue.
type Suspension struct {
	Future *fetch.Future
	Action Action
}

// Outcome is the result of one reduction.
type Outcome struct {
	State State
	// Pending is set when the action is not complete yet.
	Pending *Suspension
	// Warnings are recoverable problems, e.g. a dropped stale patch.
	Warnings []error
	// Fallback is set when the router must load CanonicalURL as a document.
	Fallback *Fallback
	// Pruned counts expired prefetch entries removed by this reduction.
	Pruned int
}

// Reduce applies a to s. It panics on an action type it does not know.
func Reduce(env Env, s State, a Action) Outcome {
	switch a := a.(type) {
	case Navigate:
		return navigate(env, s, a)
	case Refresh:
		return refresh(env, s, a.fut, false, func(f *fetch.Future) Action { return Refresh{fut: f} })
	case FastRefresh:
		if !env.Development {
			return Outcome{State: s}
		}
		return refresh(env, s, a.fut, true, func(f *fetch.Future) Action { return FastRefresh{fut: f} })
	case Restore:
		return restore(s, a)
	case ServerPatch:
		return serverPatch(s, a)
	case Prefetch:
		return prefetchURL(env, s, a)
	default:
		panic(fmt.Sprintf("reducer: unknown action %T", a))
	}
}

// fallback turns s into a full document load of href.
func fallback(s State, reason FallbackReason, href string, pendingPush bool, err error) Outcome {
	s.PushRef = PushRef{PendingPush: pendingPush, MPANavigation: true}
	s.CanonicalURL = href
	s.Cache = rendercache.Empty()
	s.FocusScroll = FocusScroll{}
	return Outcome{
		State:    s,
		Fallback: &Fallback{Reason: reason, URL: href, Err: err},
	}
}

func isExternal(origin string, u *url.URL) bool {
	if u.Host == "" || origin == "" {
		return false
	}
	o, err := url.Parse(origin)
	if err != nil || o.Host == "" {
		return false
	}
	return !strings.EqualFold(o.Scheme, u.Scheme) || !strings.EqualFold(o.Host, u.Host)
}
